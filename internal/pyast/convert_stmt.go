package pyast

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

func (c *converter) block(n *sitter.Node) []Stmt {
	if n == nil {
		return nil
	}
	children := namedChildren(n)
	c.checkIndent(n, children)
	var body []Stmt
	for _, child := range children {
		if s := c.stmt(child); s != nil {
			body = append(body, s)
		}
	}
	return body
}

// body converts the suite of a compound statement. The grammar recovers
// from a missing suite by leaving the block empty, so that case is
// reported here.
func (c *converter) body(owner, n *sitter.Node) []Stmt {
	if n == nil || len(namedChildren(n)) == 0 {
		if n != nil && n.EndByte() > n.StartByte() {
			owner = n
		}
		c.fail(owner, "expected an indented block")
		return nil
	}
	return c.block(n)
}

// checkIndent requires every statement that begins a line to sit at the
// block's indentation. The module is indented at column zero; a nested
// block takes the column of its first statement, or forbids further lines
// when that statement shares the header's line.
func (c *converter) checkIndent(n *sitter.Node, stmts []*sitter.Node) {
	if len(stmts) == 0 {
		return
	}
	want := -1
	switch {
	case n.Type() == "module":
		want = 0
	case c.startsLine(stmts[0]):
		want = int(stmts[0].StartPoint().Column)
	}
	for _, s := range stmts {
		if !c.startsLine(s) {
			continue
		}
		col := int(s.StartPoint().Column)
		switch {
		case want < 0 || col > want:
			c.fail(s, "unexpected indent")
			return
		case col < want:
			c.fail(s, "unindent does not match any outer indentation level")
			return
		}
	}
}

// startsLine reports whether only indentation precedes n on its line.
func (c *converter) startsLine(n *sitter.Node) bool {
	for i := int(n.StartByte()); i > 0; i-- {
		switch c.src[i-1] {
		case ' ', '\t', '\f':
		case '\n', '\r':
			return true
		default:
			return false
		}
	}
	return true
}

func (c *converter) stmt(n *sitter.Node) Stmt {
	switch n.Type() {
	case "expression_statement":
		return c.expressionStatement(n)
	case "return_statement":
		return &Return{node: at(n), Value: c.exprsOrNil(namedChildren(n))}
	case "delete_statement":
		return &Delete{node: at(n), Targets: c.targets(namedChildren(n))}
	case "assert_statement":
		parts := namedChildren(n)
		a := &Assert{node: at(n)}
		if len(parts) > 0 {
			a.Test = c.expr(parts[0])
		}
		if len(parts) > 1 {
			a.Msg = c.expr(parts[1])
		}
		return a
	case "pass_statement":
		return &Pass{node: at(n)}
	case "break_statement":
		return &Break{node: at(n)}
	case "continue_statement":
		return &Continue{node: at(n)}
	case "global_statement":
		return &Global{node: at(n), Names: c.identifiers(n)}
	case "nonlocal_statement":
		return &Nonlocal{node: at(n), Names: c.identifiers(n)}
	case "import_statement":
		return &Import{node: at(n), Names: c.aliases(namedChildren(n))}
	case "import_from_statement":
		return c.importFrom(n)
	case "future_import_statement":
		return &ImportFrom{node: at(n), Module: "__future__", Names: c.aliases(namedChildren(n))}
	case "raise_statement":
		return c.raise(n)
	case "if_statement":
		return c.ifStatement(n)
	case "for_statement":
		return &For{
			node:    at(n),
			Target:  c.expr(n.ChildByFieldName("left")),
			Iter:    c.expr(n.ChildByFieldName("right")),
			Body:    c.body(n, n.ChildByFieldName("body")),
			OrElse:  c.elseBody(n.ChildByFieldName("alternative")),
			IsAsync: startsWith(n, "async"),
		}
	case "while_statement":
		return &While{
			node:   at(n),
			Test:   c.expr(n.ChildByFieldName("condition")),
			Body:   c.body(n, n.ChildByFieldName("body")),
			OrElse: c.elseBody(n.ChildByFieldName("alternative")),
		}
	case "try_statement":
		return c.try(n)
	case "with_statement":
		return c.with(n)
	case "function_definition":
		return c.functionDef(n, nil)
	case "class_definition":
		return c.classDef(n, nil)
	case "decorated_definition":
		return c.decorated(n)
	case "match_statement":
		return c.match(n)
	case "type_alias_statement":
		return &TypeAlias{
			node:  at(n),
			Name:  c.typeExpr(n.ChildByFieldName("left")),
			Value: c.typeExpr(n.ChildByFieldName("right")),
		}
	case "print_statement", "exec_statement":
		c.fail(n, "Python 2 %s statement is not supported", strings.TrimSuffix(n.Type(), "_statement"))
		return nil
	}
	c.fail(n, "unsupported statement %q", n.Type())
	return nil
}

func (c *converter) expressionStatement(n *sitter.Node) Stmt {
	parts := namedChildren(n)
	if len(parts) == 1 {
		switch parts[0].Type() {
		case "assignment":
			return c.assignment(parts[0])
		case "augmented_assignment":
			return &AugAssign{
				node:   at(parts[0]),
				Target: c.expr(parts[0].ChildByFieldName("left")),
				Op:     parts[0].ChildByFieldName("operator").Type(),
				Value:  c.expr(parts[0].ChildByFieldName("right")),
			}
		}
	}
	return &ExprStmt{node: at(n), Value: c.exprsOrNil(parts)}
}

func (c *converter) assignment(n *sitter.Node) Stmt {
	target := c.expr(n.ChildByFieldName("left"))
	right := n.ChildByFieldName("right")

	if typ := n.ChildByFieldName("type"); typ != nil {
		ann := &AnnAssign{node: at(n), Target: target, Annotation: c.typeExpr(typ)}
		if right != nil {
			ann.Value = c.expr(right)
		}
		return ann
	}

	targets := []Expr{target}
	for right != nil && right.Type() == "assignment" && right.ChildByFieldName("type") == nil {
		targets = append(targets, c.expr(right.ChildByFieldName("left")))
		right = right.ChildByFieldName("right")
	}
	if right == nil || right.Type() == "assignment" || right.Type() == "augmented_assignment" {
		c.fail(n, "unsupported assignment form")
		return nil
	}
	return &Assign{node: at(n), Targets: targets, Value: c.expr(right)}
}

func (c *converter) targets(parts []*sitter.Node) []Expr {
	if len(parts) == 1 && parts[0].Type() == "expression_list" {
		parts = namedChildren(parts[0])
	}
	out := make([]Expr, 0, len(parts))
	for _, p := range parts {
		out = append(out, c.expr(p))
	}
	return out
}

func (c *converter) identifiers(n *sitter.Node) []string {
	var names []string
	for _, child := range namedChildren(n) {
		names = append(names, c.text(child))
	}
	return names
}

func (c *converter) aliases(parts []*sitter.Node) []*Alias {
	var out []*Alias
	for _, p := range parts {
		switch p.Type() {
		case "aliased_import":
			out = append(out, &Alias{
				Name:   c.text(p.ChildByFieldName("name")),
				AsName: c.text(p.ChildByFieldName("alias")),
			})
		case "wildcard_import":
			out = append(out, &Alias{Name: "*"})
		default:
			out = append(out, &Alias{Name: c.text(p)})
		}
	}
	return out
}

func (c *converter) importFrom(n *sitter.Node) Stmt {
	imp := &ImportFrom{node: at(n)}
	mod := n.ChildByFieldName("module_name")
	var names []*sitter.Node
	for _, child := range namedChildren(n) {
		if sameNode(child, mod) {
			continue
		}
		names = append(names, child)
	}
	if mod != nil {
		if mod.Type() == "relative_import" {
			for _, part := range namedChildren(mod) {
				switch part.Type() {
				case "import_prefix":
					imp.Level = len(c.text(part))
				default:
					imp.Module = c.text(part)
				}
			}
		} else {
			imp.Module = c.text(mod)
		}
	}
	imp.Names = c.aliases(names)
	return imp
}

func (c *converter) raise(n *sitter.Node) Stmt {
	r := &Raise{node: at(n)}
	cause := n.ChildByFieldName("cause")
	for _, child := range namedChildren(n) {
		if sameNode(child, cause) {
			r.Cause = c.expr(child)
			continue
		}
		r.Exc = c.expr(child)
	}
	return r
}

func (c *converter) ifStatement(n *sitter.Node) Stmt {
	root := &If{
		node: at(n),
		Test: c.expr(n.ChildByFieldName("condition")),
		Body: c.body(n, n.ChildByFieldName("consequence")),
	}
	tail := root
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "elif_clause":
			elif := &If{
				node: at(child),
				Test: c.expr(child.ChildByFieldName("condition")),
				Body: c.body(child, child.ChildByFieldName("consequence")),
			}
			tail.OrElse = []Stmt{elif}
			tail = elif
		case "else_clause":
			tail.OrElse = c.elseBody(child)
		}
	}
	return root
}

func (c *converter) elseBody(n *sitter.Node) []Stmt {
	if n == nil {
		return nil
	}
	if body := n.ChildByFieldName("body"); body != nil {
		return c.body(n, body)
	}
	return c.body(n, childOfType(n, "block"))
}

func (c *converter) try(n *sitter.Node) Stmt {
	t := &Try{node: at(n), Body: c.body(n, n.ChildByFieldName("body"))}
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "except_clause":
			t.Handlers = append(t.Handlers, c.exceptHandler(child))
		case "except_group_clause":
			t.IsStar = true
			t.Handlers = append(t.Handlers, c.exceptHandler(child))
		case "else_clause":
			t.OrElse = c.elseBody(child)
		case "finally_clause":
			t.FinalBody = c.body(child, childOfType(child, "block"))
		}
	}
	return t
}

func (c *converter) exceptHandler(n *sitter.Node) *ExceptHandler {
	h := &ExceptHandler{}
	var head []*sitter.Node
	suite := childOfType(n, "block")
	for _, child := range namedChildren(n) {
		if child.Type() != "block" {
			head = append(head, child)
		}
	}
	h.Body = c.body(n, suite)
	switch {
	case len(head) == 1 && head[0].Type() == "as_pattern":
		inner := namedChildren(head[0])
		if len(inner) > 0 {
			h.Type = c.expr(inner[0])
		}
		if alias := head[0].ChildByFieldName("alias"); alias != nil {
			h.Name = c.text(alias)
		}
	case len(head) >= 1:
		h.Type = c.expr(head[0])
		if len(head) > 1 {
			h.Name = c.text(head[1])
		}
	}
	return h
}

func (c *converter) with(n *sitter.Node) Stmt {
	w := &With{
		node:    at(n),
		Body:    c.body(n, n.ChildByFieldName("body")),
		IsAsync: startsWith(n, "async"),
	}
	clause := childOfType(n, "with_clause")
	if clause == nil {
		return w
	}
	for _, item := range namedChildren(clause) {
		if item.Type() != "with_item" {
			continue
		}
		w.Items = append(w.Items, c.withItem(item))
	}
	return w
}

func (c *converter) withItem(n *sitter.Node) *WithItem {
	value := n.ChildByFieldName("value")
	if value == nil {
		if parts := namedChildren(n); len(parts) > 0 {
			value = parts[0]
		}
	}
	item := &WithItem{}
	if value == nil {
		return item
	}
	if alias := n.ChildByFieldName("alias"); alias != nil {
		item.ContextExpr = c.expr(value)
		item.OptionalVars = c.expr(alias)
		return item
	}
	if value.Type() != "as_pattern" {
		item.ContextExpr = c.expr(value)
		return item
	}
	if inner := namedChildren(value); len(inner) > 0 {
		item.ContextExpr = c.expr(inner[0])
	}
	if alias := value.ChildByFieldName("alias"); alias != nil {
		item.OptionalVars = c.asTarget(alias)
	}
	return item
}

// asTarget unwraps an as_pattern_target to the expression it names.
func (c *converter) asTarget(n *sitter.Node) Expr {
	if n.Type() != "as_pattern_target" {
		return c.expr(n)
	}
	if inner := namedChildren(n); len(inner) == 1 {
		return c.expr(inner[0])
	}
	return &Name{node: at(n), ID: c.text(n)}
}

func (c *converter) functionDef(n *sitter.Node, decorators []Expr) Stmt {
	fn := &FunctionDef{
		node:          at(n),
		Name:          c.text(n.ChildByFieldName("name")),
		Body:          c.body(n, n.ChildByFieldName("body")),
		DecoratorList: decorators,
		IsAsync:       startsWith(n, "async"),
	}
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		fn.Returns = c.typeExpr(ret)
	}
	return fn
}

func (c *converter) classDef(n *sitter.Node, decorators []Expr) Stmt {
	cls := &ClassDef{
		node:          at(n),
		Name:          c.text(n.ChildByFieldName("name")),
		Body:          c.body(n, n.ChildByFieldName("body")),
		DecoratorList: decorators,
	}
	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		cls.Bases, cls.Keywords = c.arguments(supers)
	}
	return cls
}

func (c *converter) decorated(n *sitter.Node) Stmt {
	var decorators []Expr
	for _, child := range namedChildren(n) {
		if child.Type() != "decorator" {
			continue
		}
		if inner := namedChildren(child); len(inner) > 0 {
			decorators = append(decorators, c.expr(inner[0]))
		}
	}
	def := n.ChildByFieldName("definition")
	if def == nil {
		c.fail(n, "decorator without definition")
		return nil
	}
	switch def.Type() {
	case "function_definition":
		return c.functionDef(def, decorators)
	case "class_definition":
		return c.classDef(def, decorators)
	}
	c.fail(def, "unsupported decorated definition %q", def.Type())
	return nil
}

func (c *converter) match(n *sitter.Node) Stmt {
	m := &Match{node: at(n)}
	body := n.ChildByFieldName("body")

	var subjects []*sitter.Node
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "block", "case_clause":
			continue
		}
		subjects = append(subjects, child)
	}
	m.Subject = c.exprsOrNil(subjects)

	clauses := namedChildren(n)
	if body != nil {
		clauses = namedChildren(body)
	}
	for _, clause := range clauses {
		if clause.Type() != "case_clause" {
			continue
		}
		mc := &MatchCase{Body: c.body(clause, clause.ChildByFieldName("consequence"))}
		var patterns []string
		for _, part := range namedChildren(clause) {
			if part.Type() == "case_pattern" {
				patterns = append(patterns, c.text(part))
			}
		}
		mc.Pattern = strings.Join(patterns, ", ")
		if guard := clause.ChildByFieldName("guard"); guard != nil {
			if inner := namedChildren(guard); len(inner) > 0 {
				mc.Guard = c.expr(inner[0])
			}
		}
		m.Cases = append(m.Cases, mc)
	}
	return m
}
