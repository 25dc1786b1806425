package callgraph

import (
	"fmt"

	"github.com/jward/callgraph/internal/pyast"
)

// callNames appends the callee name of every call reachable from e to acc.
//
// A call on an attribute records the attribute alone and does not descend
// into the receiver; a call on a bare name records the name; any other
// callee is ignored. Only positional arguments are searched. Keyword
// arguments and comprehension for/if clauses are not.
func callNames(acc []string, e pyast.Expr) []string {
	switch e := e.(type) {
	case nil:
		return acc

	case *pyast.Call:
		switch fn := e.Func.(type) {
		case *pyast.Attribute:
			acc = append(acc, fn.Attr)
		case *pyast.Name:
			acc = append(acc, fn.ID)
		}
		return each(acc, e.Args)

	case *pyast.BoolOp:
		return each(acc, e.Values)
	case *pyast.List:
		return each(acc, e.Elts)
	case *pyast.Set:
		return each(acc, e.Elts)
	case *pyast.Tuple:
		return each(acc, e.Elts)
	case *pyast.JoinedStr:
		return each(acc, e.Values)

	case *pyast.Dict:
		acc = each(acc, e.Values)
		for _, k := range e.Keys {
			if k != nil {
				acc = callNames(acc, k)
			}
		}
		return acc

	case *pyast.NamedExpr:
		return callNames(callNames(acc, e.Target), e.Value)
	case *pyast.BinOp:
		return callNames(callNames(acc, e.Left), e.Right)
	case *pyast.DictComp:
		return callNames(callNames(acc, e.Key), e.Value)
	case *pyast.Subscript:
		return callNames(callNames(acc, e.Value), e.Slice)

	case *pyast.UnaryOp:
		return callNames(acc, e.Operand)
	case *pyast.Lambda:
		return callNames(acc, e.Body)
	case *pyast.Await:
		return callNames(acc, e.Value)
	case *pyast.Yield:
		return callNames(acc, e.Value)
	case *pyast.YieldFrom:
		return callNames(acc, e.Value)
	case *pyast.ListComp:
		return callNames(acc, e.Elt)
	case *pyast.SetComp:
		return callNames(acc, e.Elt)
	case *pyast.GeneratorExp:
		return callNames(acc, e.Elt)
	case *pyast.Attribute:
		return callNames(acc, e.Value)
	case *pyast.Starred:
		return callNames(acc, e.Value)

	case *pyast.IfExp:
		return callNames(callNames(callNames(acc, e.Test), e.Body), e.OrElse)
	case *pyast.Compare:
		return each(callNames(acc, e.Left), e.Comparators)
	case *pyast.FormattedValue:
		return callNames(callNames(acc, e.Value), e.FormatSpec)
	case *pyast.Slice:
		return callNames(callNames(callNames(acc, e.Upper), e.Lower), e.Step)

	case *pyast.Constant:
		return acc
	case *pyast.Name:
		return acc

	default:
		panic(fmt.Sprintf("callgraph: unhandled expression %T", e))
	}
}

func each(acc []string, exprs []pyast.Expr) []string {
	for _, e := range exprs {
		acc = callNames(acc, e)
	}
	return acc
}
