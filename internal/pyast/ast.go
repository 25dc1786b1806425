// Package pyast parses Python source with tree-sitter and normalizes the
// concrete syntax tree into a small, closed set of statement and expression
// node types shaped after Python's own ast module.
//
// The set is closed: Stmt and Expr carry unexported marker methods, so only
// the types declared here satisfy them. Consumers are expected to match on
// every type explicitly.
package pyast

// Pos is a 1-based line and 0-based column in the source.
type Pos struct {
	Line int
	Col  int
}

type node struct {
	pos Pos
}

// Pos returns the start position of the node.
func (n node) Pos() Pos { return n.pos }

// Node is implemented by every statement and expression.
type Node interface {
	Pos() Pos
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Module is the root of a parsed source file.
type Module struct {
	Path string
	Body []Stmt
}

// --- Statements ---

// FunctionDef is a def or async def.
type FunctionDef struct {
	node
	Name          string
	Body          []Stmt
	DecoratorList []Expr
	Returns       Expr // nil when unannotated
	IsAsync       bool
}

type ClassDef struct {
	node
	Name          string
	Bases         []Expr
	Keywords      []*Keyword
	Body          []Stmt
	DecoratorList []Expr
}

type Return struct {
	node
	Value Expr // nil for a bare return
}

type Delete struct {
	node
	Targets []Expr
}

// Assign holds every target of a chained assignment (a = b = value).
type Assign struct {
	node
	Targets []Expr
	Value   Expr
}

type AugAssign struct {
	node
	Target Expr
	Op     string
	Value  Expr
}

type AnnAssign struct {
	node
	Target     Expr
	Annotation Expr
	Value      Expr // nil for a bare annotation
}

type For struct {
	node
	Target  Expr
	Iter    Expr
	Body    []Stmt
	OrElse  []Stmt
	IsAsync bool
}

type While struct {
	node
	Test   Expr
	Body   []Stmt
	OrElse []Stmt
}

// If holds elif chains as a nested If in OrElse.
type If struct {
	node
	Test   Expr
	Body   []Stmt
	OrElse []Stmt
}

type WithItem struct {
	ContextExpr  Expr
	OptionalVars Expr // nil without "as"
}

type With struct {
	node
	Items   []*WithItem
	Body    []Stmt
	IsAsync bool
}

type MatchCase struct {
	Pattern string // source text of the pattern
	Guard   Expr
	Body    []Stmt
}

type Match struct {
	node
	Subject Expr
	Cases   []*MatchCase
}

type Raise struct {
	node
	Exc   Expr
	Cause Expr
}

type ExceptHandler struct {
	Type Expr
	Name string
	Body []Stmt
}

// Try covers both try/except and try/except*.
type Try struct {
	node
	Body      []Stmt
	Handlers  []*ExceptHandler
	OrElse    []Stmt
	FinalBody []Stmt
	IsStar    bool
}

type Assert struct {
	node
	Test Expr
	Msg  Expr
}

type Alias struct {
	Name   string
	AsName string
}

type Import struct {
	node
	Names []*Alias
}

type ImportFrom struct {
	node
	Module string
	Names  []*Alias
	Level  int
}

type Global struct {
	node
	Names []string
}

type Nonlocal struct {
	node
	Names []string
}

// ExprStmt is an expression used as a statement.
type ExprStmt struct {
	node
	Value Expr
}

type Pass struct{ node }

type Break struct{ node }

type Continue struct{ node }

type TypeAlias struct {
	node
	Name  Expr
	Value Expr
}

func (*FunctionDef) stmtNode() {}
func (*ClassDef) stmtNode()    {}
func (*Return) stmtNode()      {}
func (*Delete) stmtNode()      {}
func (*Assign) stmtNode()      {}
func (*AugAssign) stmtNode()   {}
func (*AnnAssign) stmtNode()   {}
func (*For) stmtNode()         {}
func (*While) stmtNode()       {}
func (*If) stmtNode()          {}
func (*With) stmtNode()        {}
func (*Match) stmtNode()       {}
func (*Raise) stmtNode()       {}
func (*Try) stmtNode()         {}
func (*Assert) stmtNode()      {}
func (*Import) stmtNode()      {}
func (*ImportFrom) stmtNode()  {}
func (*Global) stmtNode()      {}
func (*Nonlocal) stmtNode()    {}
func (*ExprStmt) stmtNode()    {}
func (*Pass) stmtNode()        {}
func (*Break) stmtNode()       {}
func (*Continue) stmtNode()    {}
func (*TypeAlias) stmtNode()   {}

// --- Expressions ---

// BoolOp flattens a chain of the same operator: a and b and c.
type BoolOp struct {
	node
	Op     string
	Values []Expr
}

type NamedExpr struct {
	node
	Target Expr
	Value  Expr
}

type BinOp struct {
	node
	Left  Expr
	Op    string
	Right Expr
}

type UnaryOp struct {
	node
	Op      string
	Operand Expr
}

type Lambda struct {
	node
	Body Expr
}

type IfExp struct {
	node
	Test   Expr
	Body   Expr
	OrElse Expr
}

// Dict keeps Keys and Values aligned; a nil key marks a **mapping entry.
type Dict struct {
	node
	Keys   []Expr
	Values []Expr
}

type Set struct {
	node
	Elts []Expr
}

type Comprehension struct {
	Target  Expr
	Iter    Expr
	Ifs     []Expr
	IsAsync bool
}

type ListComp struct {
	node
	Elt        Expr
	Generators []*Comprehension
}

type SetComp struct {
	node
	Elt        Expr
	Generators []*Comprehension
}

type DictComp struct {
	node
	Key        Expr
	Value      Expr
	Generators []*Comprehension
}

type GeneratorExp struct {
	node
	Elt        Expr
	Generators []*Comprehension
}

type Await struct {
	node
	Value Expr
}

type Yield struct {
	node
	Value Expr // nil for a bare yield
}

type YieldFrom struct {
	node
	Value Expr
}

type Compare struct {
	node
	Left        Expr
	Ops         []string
	Comparators []Expr
}

// Keyword is a keyword argument; Arg is empty for **kwargs.
type Keyword struct {
	Arg   string
	Value Expr
}

type Call struct {
	node
	Func     Expr
	Args     []Expr
	Keywords []*Keyword
}

// FormattedValue is one {...} interpolation inside an f-string.
type FormattedValue struct {
	node
	Value      Expr
	Conversion string
	FormatSpec Expr // *JoinedStr or nil
}

// JoinedStr is an f-string; Values are Constant and FormattedValue parts.
type JoinedStr struct {
	node
	Values []Expr
}

type ConstKind string

const (
	ConstStr      ConstKind = "str"
	ConstInt      ConstKind = "int"
	ConstFloat    ConstKind = "float"
	ConstBool     ConstKind = "bool"
	ConstNone     ConstKind = "none"
	ConstEllipsis ConstKind = "ellipsis"
)

type Constant struct {
	node
	Kind  ConstKind
	Value string
}

type Attribute struct {
	node
	Value Expr
	Attr  string
}

type Subscript struct {
	node
	Value Expr
	Slice Expr
}

type Starred struct {
	node
	Value Expr
}

type Name struct {
	node
	ID string
}

type List struct {
	node
	Elts []Expr
}

type Tuple struct {
	node
	Elts []Expr
}

type Slice struct {
	node
	Lower Expr
	Upper Expr
	Step  Expr
}

func (*BoolOp) exprNode()         {}
func (*NamedExpr) exprNode()      {}
func (*BinOp) exprNode()          {}
func (*UnaryOp) exprNode()        {}
func (*Lambda) exprNode()         {}
func (*IfExp) exprNode()          {}
func (*Dict) exprNode()           {}
func (*Set) exprNode()            {}
func (*ListComp) exprNode()       {}
func (*SetComp) exprNode()        {}
func (*DictComp) exprNode()       {}
func (*GeneratorExp) exprNode()   {}
func (*Await) exprNode()          {}
func (*Yield) exprNode()          {}
func (*YieldFrom) exprNode()      {}
func (*Compare) exprNode()        {}
func (*Call) exprNode()           {}
func (*FormattedValue) exprNode() {}
func (*JoinedStr) exprNode()      {}
func (*Constant) exprNode()       {}
func (*Attribute) exprNode()      {}
func (*Subscript) exprNode()      {}
func (*Starred) exprNode()        {}
func (*Name) exprNode()           {}
func (*List) exprNode()           {}
func (*Tuple) exprNode()          {}
func (*Slice) exprNode()          {}
