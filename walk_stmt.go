package callgraph

import (
	"fmt"

	"github.com/jward/callgraph/internal/pyast"
)

// stmt routes the expressions of one statement to the expression walker and
// recurses into nested blocks under the same scope.
//
// Only the kinds with a case body below are visited. if/elif/else, class
// bodies, match, imports, raise, nested defs and the loop-control and
// scope-declaration statements are deliberately listed as no-ops: their
// calls are not recorded.
func (b *builder) stmt(scope string, s pyast.Stmt) {
	switch s := s.(type) {
	case *pyast.ExprStmt:
		b.exprs(scope, s.Value)
	case *pyast.Return:
		b.exprs(scope, s.Value)
	case *pyast.Assert:
		b.exprs(scope, s.Test, s.Msg)
	case *pyast.Try:
		b.block(scope, s.Body)
		b.block(scope, s.OrElse)
		b.block(scope, s.FinalBody)
	case *pyast.With:
		for _, item := range s.Items {
			b.exprs(scope, item.ContextExpr, item.OptionalVars)
		}
		b.block(scope, s.Body)
	case *pyast.For:
		b.exprs(scope, s.Target, s.Iter)
		b.block(scope, s.Body)
	case *pyast.Assign:
		b.exprs(scope, s.Targets...)
		b.exprs(scope, s.Value)
	case *pyast.AnnAssign:
		b.exprs(scope, s.Target, s.Value)
	case *pyast.Delete:
		b.exprs(scope, s.Targets...)
	case *pyast.While:
		b.exprs(scope, s.Test)
		b.block(scope, s.Body)
	case *pyast.AugAssign:
		b.exprs(scope, s.Target, s.Value)

	case *pyast.If:
	case *pyast.ClassDef:
	case *pyast.FunctionDef:
	case *pyast.Match:
	case *pyast.Raise:
	case *pyast.Import:
	case *pyast.ImportFrom:
	case *pyast.Global:
	case *pyast.Nonlocal:
	case *pyast.Pass:
	case *pyast.Break:
	case *pyast.Continue:
	case *pyast.TypeAlias:

	default:
		panic(fmt.Sprintf("callgraph: unhandled statement %T", s))
	}
}
