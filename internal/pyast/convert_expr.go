package pyast

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

func (c *converter) expr(n *sitter.Node) Expr {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "identifier", "keyword_identifier":
		return &Name{node: at(n), ID: c.text(n)}
	case "integer":
		return &Constant{node: at(n), Kind: ConstInt, Value: c.text(n)}
	case "float":
		return &Constant{node: at(n), Kind: ConstFloat, Value: c.text(n)}
	case "true", "false":
		return &Constant{node: at(n), Kind: ConstBool, Value: c.text(n)}
	case "none":
		return &Constant{node: at(n), Kind: ConstNone, Value: "None"}
	case "ellipsis":
		return &Constant{node: at(n), Kind: ConstEllipsis, Value: "..."}
	case "string":
		return c.str(n)
	case "concatenated_string":
		return c.concatenated(n)
	case "parenthesized_expression":
		return c.exprsOrNil(namedChildren(n))
	case "attribute":
		return &Attribute{
			node:  at(n),
			Value: c.expr(n.ChildByFieldName("object")),
			Attr:  c.text(n.ChildByFieldName("attribute")),
		}
	case "call":
		return c.call(n)
	case "subscript":
		return c.subscript(n)
	case "slice":
		return c.slice(n)
	case "binary_operator":
		return &BinOp{
			node:  at(n),
			Left:  c.expr(n.ChildByFieldName("left")),
			Op:    n.ChildByFieldName("operator").Type(),
			Right: c.expr(n.ChildByFieldName("right")),
		}
	case "boolean_operator":
		op := n.ChildByFieldName("operator").Type()
		return &BoolOp{node: at(n), Op: op, Values: c.boolOperands(n, op)}
	case "not_operator":
		return &UnaryOp{node: at(n), Op: "not", Operand: c.expr(n.ChildByFieldName("argument"))}
	case "unary_operator":
		return &UnaryOp{
			node:    at(n),
			Op:      n.ChildByFieldName("operator").Type(),
			Operand: c.expr(n.ChildByFieldName("argument")),
		}
	case "comparison_operator":
		return c.compare(n)
	case "named_expression":
		return &NamedExpr{
			node:   at(n),
			Target: c.expr(n.ChildByFieldName("name")),
			Value:  c.expr(n.ChildByFieldName("value")),
		}
	case "lambda":
		return &Lambda{node: at(n), Body: c.expr(n.ChildByFieldName("body"))}
	case "conditional_expression":
		parts := namedChildren(n)
		if len(parts) != 3 {
			c.fail(n, "malformed conditional expression")
			return nil
		}
		return &IfExp{node: at(n), Body: c.expr(parts[0]), Test: c.expr(parts[1]), OrElse: c.expr(parts[2])}
	case "await":
		return &Await{node: at(n), Value: c.exprsOrNil(namedChildren(n))}
	case "yield":
		return c.yield(n)
	case "list", "list_pattern":
		return &List{node: at(n), Elts: c.exprs(namedChildren(n))}
	case "tuple", "tuple_pattern", "expression_list", "pattern_list":
		return &Tuple{node: at(n), Elts: c.exprs(namedChildren(n))}
	case "set":
		return &Set{node: at(n), Elts: c.exprs(namedChildren(n))}
	case "dictionary":
		return c.dict(n)
	case "list_comprehension":
		return &ListComp{node: at(n), Elt: c.expr(n.ChildByFieldName("body")), Generators: c.comprehensions(n)}
	case "set_comprehension":
		return &SetComp{node: at(n), Elt: c.expr(n.ChildByFieldName("body")), Generators: c.comprehensions(n)}
	case "generator_expression":
		return &GeneratorExp{node: at(n), Elt: c.expr(n.ChildByFieldName("body")), Generators: c.comprehensions(n)}
	case "dictionary_comprehension":
		dc := &DictComp{node: at(n), Generators: c.comprehensions(n)}
		if pair := n.ChildByFieldName("body"); pair != nil {
			dc.Key = c.expr(pair.ChildByFieldName("key"))
			dc.Value = c.expr(pair.ChildByFieldName("value"))
		}
		return dc
	case "list_splat", "list_splat_pattern", "parenthesized_list_splat":
		return &Starred{node: at(n), Value: c.exprsOrNil(namedChildren(n))}
	case "as_pattern":
		if parts := namedChildren(n); len(parts) > 0 {
			return c.expr(parts[0])
		}
		return nil
	case "type":
		return c.typeExpr(n)
	}
	c.fail(n, "unsupported expression %q", n.Type())
	return nil
}

func (c *converter) exprs(parts []*sitter.Node) []Expr {
	out := make([]Expr, 0, len(parts))
	for _, p := range parts {
		if e := c.expr(p); e != nil {
			out = append(out, e)
		}
	}
	return out
}

// exprsOrNil folds zero, one, or many expressions: nil, the expression
// itself, or an implicit tuple.
func (c *converter) exprsOrNil(parts []*sitter.Node) Expr {
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return c.expr(parts[0])
	}
	return &Tuple{node: at(parts[0]), Elts: c.exprs(parts)}
}

func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil &&
		a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

func (c *converter) call(n *sitter.Node) Expr {
	call := &Call{node: at(n), Func: c.expr(n.ChildByFieldName("function"))}
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return call
	}
	if args.Type() == "generator_expression" {
		call.Args = []Expr{c.expr(args)}
		return call
	}
	call.Args, call.Keywords = c.arguments(args)
	return call
}

// arguments splits an argument_list into positional and keyword arguments.
func (c *converter) arguments(n *sitter.Node) ([]Expr, []*Keyword) {
	var (
		args     []Expr
		keywords []*Keyword
	)
	for _, arg := range namedChildren(n) {
		switch arg.Type() {
		case "keyword_argument":
			keywords = append(keywords, &Keyword{
				Arg:   c.text(arg.ChildByFieldName("name")),
				Value: c.expr(arg.ChildByFieldName("value")),
			})
		case "dictionary_splat":
			keywords = append(keywords, &Keyword{Value: c.exprsOrNil(namedChildren(arg))})
		default:
			if e := c.expr(arg); e != nil {
				args = append(args, e)
			}
		}
	}
	return args, keywords
}

func (c *converter) subscript(n *sitter.Node) Expr {
	parts := namedChildren(n)
	if len(parts) < 2 {
		c.fail(n, "malformed subscript")
		return nil
	}
	sub := &Subscript{node: at(n), Value: c.expr(parts[0])}
	if len(parts) == 2 {
		sub.Slice = c.expr(parts[1])
	} else {
		sub.Slice = &Tuple{node: at(parts[1]), Elts: c.exprs(parts[1:])}
	}
	return sub
}

// slice assigns each bound by counting the colons that precede it.
func (c *converter) slice(n *sitter.Node) Expr {
	s := &Slice{node: at(n)}
	colons := 0
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || isExtra(child) {
			continue
		}
		if !child.IsNamed() {
			if child.Type() == ":" {
				colons++
			}
			continue
		}
		switch colons {
		case 0:
			s.Lower = c.expr(child)
		case 1:
			s.Upper = c.expr(child)
		default:
			s.Step = c.expr(child)
		}
	}
	return s
}

func (c *converter) boolOperands(n *sitter.Node, op string) []Expr {
	if n.Type() != "boolean_operator" || n.ChildByFieldName("operator").Type() != op {
		return []Expr{c.expr(n)}
	}
	left := c.boolOperands(n.ChildByFieldName("left"), op)
	return append(left, c.boolOperands(n.ChildByFieldName("right"), op)...)
}

// compare reads operands and operators in order. Two-token operators such
// as "not in" and "is not" arrive as adjacent anonymous children.
func (c *converter) compare(n *sitter.Node) Expr {
	cmp := &Compare{node: at(n)}
	first := true
	prevOp := false
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || isExtra(child) {
			continue
		}
		if child.IsNamed() {
			if first {
				cmp.Left = c.expr(child)
				first = false
			} else {
				cmp.Comparators = append(cmp.Comparators, c.expr(child))
			}
			prevOp = false
			continue
		}
		if prevOp {
			cmp.Ops[len(cmp.Ops)-1] += " " + child.Type()
		} else {
			cmp.Ops = append(cmp.Ops, child.Type())
		}
		prevOp = true
	}
	return cmp
}

func (c *converter) yield(n *sitter.Node) Expr {
	from := false
	for i := 0; i < int(n.ChildCount()); i++ {
		if child := n.Child(i); child != nil && child.Type() == "from" {
			from = true
		}
	}
	value := c.exprsOrNil(namedChildren(n))
	if from {
		return &YieldFrom{node: at(n), Value: value}
	}
	return &Yield{node: at(n), Value: value}
}

func (c *converter) dict(n *sitter.Node) Expr {
	d := &Dict{node: at(n)}
	for _, entry := range namedChildren(n) {
		switch entry.Type() {
		case "pair":
			d.Keys = append(d.Keys, c.expr(entry.ChildByFieldName("key")))
			d.Values = append(d.Values, c.expr(entry.ChildByFieldName("value")))
		case "dictionary_splat":
			d.Keys = append(d.Keys, nil)
			d.Values = append(d.Values, c.exprsOrNil(namedChildren(entry)))
		default:
			c.fail(entry, "unsupported dictionary entry %q", entry.Type())
		}
	}
	return d
}

// comprehensions collects for-in clauses in order; each if clause filters
// the clause before it.
func (c *converter) comprehensions(n *sitter.Node) []*Comprehension {
	var gens []*Comprehension
	for _, clause := range namedChildren(n) {
		switch clause.Type() {
		case "for_in_clause":
			left := clause.ChildByFieldName("left")
			var iters []*sitter.Node
			for _, part := range namedChildren(clause) {
				if !sameNode(part, left) {
					iters = append(iters, part)
				}
			}
			gens = append(gens, &Comprehension{
				Target:  c.expr(left),
				Iter:    c.exprsOrNil(iters),
				IsAsync: startsWith(clause, "async"),
			})
		case "if_clause":
			if len(gens) == 0 {
				c.fail(clause, "if clause before for clause")
				continue
			}
			last := gens[len(gens)-1]
			last.Ifs = append(last.Ifs, c.exprsOrNil(namedChildren(clause)))
		}
	}
	return gens
}

func (c *converter) str(n *sitter.Node) Expr {
	if c.isBacktick(n) {
		return nil
	}
	if !c.isFString(n) {
		return &Constant{node: at(n), Kind: ConstStr, Value: c.text(n)}
	}
	return &JoinedStr{node: at(n), Values: c.stringParts(n)}
}

// isBacktick reports, and fails on, the Python 2 `expr` repr form, which
// the grammar reads as a string.
func (c *converter) isBacktick(n *sitter.Node) bool {
	if !strings.HasPrefix(c.text(n), "`") {
		return false
	}
	c.fail(n, "backtick repr is not valid Python 3")
	return true
}

func (c *converter) isFString(n *sitter.Node) bool {
	text := c.text(n)
	if i := strings.IndexAny(text, `"'`); i > 0 {
		if strings.ContainsAny(text[:i], "fF") {
			return true
		}
	}
	return childOfType(n, "interpolation") != nil
}

func (c *converter) stringParts(n *sitter.Node) []Expr {
	var parts []Expr
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "string_content", "escape_sequence":
			parts = append(parts, &Constant{node: at(child), Kind: ConstStr, Value: c.text(child)})
		case "interpolation":
			parts = append(parts, c.interpolation(child))
		}
	}
	return parts
}

func (c *converter) interpolation(n *sitter.Node) Expr {
	fv := &FormattedValue{node: at(n)}
	value := n.ChildByFieldName("expression")
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "type_conversion":
			fv.Conversion = strings.TrimPrefix(c.text(child), "!")
		case "format_specifier":
			fv.FormatSpec = c.formatSpec(child)
		default:
			if value == nil {
				value = child
			}
		}
	}
	fv.Value = c.expr(value)
	return fv
}

func (c *converter) formatSpec(n *sitter.Node) Expr {
	js := &JoinedStr{node: at(n)}
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "interpolation":
			js.Values = append(js.Values, c.interpolation(child))
		case "format_expression":
			inner := child.ChildByFieldName("expression")
			if inner == nil {
				if parts := namedChildren(child); len(parts) > 0 {
					inner = parts[0]
				}
			}
			js.Values = append(js.Values, &FormattedValue{node: at(child), Value: c.expr(inner)})
		}
	}
	if len(js.Values) == 0 {
		js.Values = []Expr{&Constant{node: at(n), Kind: ConstStr, Value: strings.TrimPrefix(c.text(n), ":")}}
	}
	return js
}

func (c *converter) concatenated(n *sitter.Node) Expr {
	parts := namedChildren(n)
	anyF := false
	for _, p := range parts {
		if c.isBacktick(p) {
			return nil
		}
		if p.Type() == "string" && c.isFString(p) {
			anyF = true
			break
		}
	}
	if !anyF {
		return &Constant{node: at(n), Kind: ConstStr, Value: c.text(n)}
	}
	js := &JoinedStr{node: at(n)}
	for _, p := range parts {
		if c.isFString(p) {
			js.Values = append(js.Values, c.stringParts(p)...)
			continue
		}
		js.Values = append(js.Values, &Constant{node: at(p), Kind: ConstStr, Value: c.text(p)})
	}
	return js
}

// typeExpr converts an annotation. Type-only syntax with no expression
// equivalent is kept as a Name holding the source text.
func (c *converter) typeExpr(n *sitter.Node) Expr {
	if n == nil {
		return nil
	}
	if n.Type() != "type" {
		return c.expr(n)
	}
	parts := namedChildren(n)
	if len(parts) != 1 {
		return &Name{node: at(n), ID: c.text(n)}
	}
	switch parts[0].Type() {
	case "generic_type", "union_type", "constrained_type", "member_type", "splat_type":
		return &Name{node: at(n), ID: c.text(n)}
	}
	return c.expr(parts[0])
}
