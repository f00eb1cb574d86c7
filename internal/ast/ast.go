package ast

import "github.com/AlexTDWilkinson/Nail-sub000/internal/lexer"

// Node represents any AST node with an associated source span.
type Node interface {
	Span() lexer.Span
}

// Expr represents an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt represents a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Program represents a parsed compilation unit: an ordered list of
// top-level statements.
type Program struct {
	Stmts []Stmt
	span  lexer.Span
}

func (p *Program) Span() lexer.Span { return p.span }

// NewProgram constructs a program node with the provided span.
func NewProgram(span lexer.Span) *Program {
	return &Program{span: span}
}

// SetSpan updates the program span.
func (p *Program) SetSpan(span lexer.Span) { p.span = span }

// Param represents a function or lambda parameter.
type Param struct {
	Name string
	Type lexer.TypeDesc
	span lexer.Span
}

func (p *Param) Span() lexer.Span { return p.span }

// NewParam constructs a parameter node.
func NewParam(name string, typ lexer.TypeDesc, span lexer.Span) *Param {
	return &Param{Name: name, Type: typ, span: span}
}

// FnDecl represents a named function declaration.
type FnDecl struct {
	Name       string
	Params     []*Param
	ReturnType lexer.TypeDesc
	Body       *Block
	span       lexer.Span
}

func (d *FnDecl) Span() lexer.Span { return d.span }
func (*FnDecl) stmtNode()          {}

// LambdaDecl represents an anonymous function expression.
type LambdaDecl struct {
	Params     []*Param
	ReturnType lexer.TypeDesc
	Body       *Block
	span       lexer.Span
}

func (d *LambdaDecl) Span() lexer.Span { return d.span }
func (*LambdaDecl) exprNode()          {}

// ConstDecl represents `c name:T = expr;`.
type ConstDecl struct {
	Name  string
	Type  lexer.TypeDesc
	Value Expr
	span  lexer.Span
}

func (d *ConstDecl) Span() lexer.Span { return d.span }
func (*ConstDecl) stmtNode()          {}

// VarDecl represents `v name:T = expr;`.
type VarDecl struct {
	Name  string
	Type  lexer.TypeDesc
	Value Expr
	span  lexer.Span
}

func (d *VarDecl) Span() lexer.Span { return d.span }
func (*VarDecl) stmtNode()          {}

// Branch is one (condition, block) pair of an if construct.
type Branch struct {
	Cond  Expr
	Block *Block
}

// IfStmt is the multi-branch conditional used in statement position:
// an ordered list of (condition, block) pairs evaluated top to bottom,
// first true branch wins, plus an optional else block. It is one construct,
// not a chain of nested ifs.
type IfStmt struct {
	Branches []Branch
	Else     *Block
	span     lexer.Span
}

func (s *IfStmt) Span() lexer.Span { return s.span }
func (*IfStmt) stmtNode()          {}

// IfExpr is the same construct in expression position; each branch's value
// is the tail expression of its block.
type IfExpr struct {
	Branches []Branch
	Else     *Block
	span     lexer.Span
}

func (e *IfExpr) Span() lexer.Span { return e.span }
func (*IfExpr) exprNode()          {}

// Block is an ordered list of statements with its own lexical scope.
type Block struct {
	Stmts []Stmt
	span  lexer.Span
}

func (b *Block) Span() lexer.Span { return b.span }
func (*Block) stmtNode()          {}

// SetSpan updates the block span.
func (b *Block) SetSpan(span lexer.Span) { b.span = span }

// ReturnStmt represents `r expr;`.
type ReturnStmt struct {
	Value Expr
	span  lexer.Span
}

func (s *ReturnStmt) Span() lexer.Span { return s.span }
func (*ReturnStmt) stmtNode()          {}

// ParallelBlock represents `parallel { ... }`: every statement is an
// independent unit of work, joined before control proceeds.
type ParallelBlock struct {
	Stmts []Stmt
	span  lexer.Span
}

func (b *ParallelBlock) Span() lexer.Span { return b.span }
func (*ParallelBlock) stmtNode()          {}

// RustEscapeSegment is either raw target text or a spliced expression.
type RustEscapeSegment struct {
	Raw  string
	Expr Expr // non-nil for splices
}

// RustEscape represents a `#{ ... }#` foreign-code block.
type RustEscape struct {
	Segments []RustEscapeSegment
	span     lexer.Span
}

func (e *RustEscape) Span() lexer.Span { return e.span }
func (*RustEscape) stmtNode()          {}

// ExprStmt wraps an expression used as a statement.
type ExprStmt struct {
	Value Expr
	span  lexer.Span
}

func (s *ExprStmt) Span() lexer.Span { return s.span }
func (*ExprStmt) stmtNode()          {}

// StructDecl represents a struct declaration. Field types may not
// themselves be structs or enums by value; the checker enforces that.
type StructField struct {
	Name string
	Type lexer.TypeDesc
	Span lexer.Span
}

type StructDecl struct {
	Name   string
	Fields []StructField
	span   lexer.Span
}

func (d *StructDecl) Span() lexer.Span { return d.span }
func (*StructDecl) stmtNode()          {}

// StructLitField is one field-name/value pair of a struct instantiation.
type StructLitField struct {
	Name  string
	Value Expr
}

// StructLit represents a struct instantiation expression.
type StructLit struct {
	Name   string
	Fields []StructLitField
	span   lexer.Span
}

func (e *StructLit) Span() lexer.Span { return e.span }
func (*StructLit) exprNode()          {}

// EnumDecl represents an enum declaration with ordered, unique variants.
type EnumDecl struct {
	Name     string
	Variants []string
	span     lexer.Span
}

func (d *EnumDecl) Span() lexer.Span { return d.span }
func (*EnumDecl) stmtNode()          {}

// EnumVariant represents a `Name::Variant` reference.
type EnumVariant struct {
	Enum    string
	Variant string
	span    lexer.Span
}

func (e *EnumVariant) Span() lexer.Span { return e.span }
func (*EnumVariant) exprNode()          {}

// ArrayLit represents an array literal. Non-empty and homogeneous by
// checker invariant.
type ArrayLit struct {
	Elems []Expr
	span  lexer.Span
}

func (e *ArrayLit) Span() lexer.Span { return e.span }
func (*ArrayLit) exprNode()          {}

// CallExpr represents a function call by name.
type CallExpr struct {
	Name string
	Args []Expr
	span lexer.Span
}

func (e *CallExpr) Span() lexer.Span { return e.span }
func (*CallExpr) exprNode()          {}

// BinaryExpr represents a binary operation.
type BinaryExpr struct {
	Left  Expr
	Op    lexer.TokenType
	Right Expr
	span  lexer.Span
}

func (e *BinaryExpr) Span() lexer.Span { return e.span }
func (*BinaryExpr) exprNode()          {}

// UnaryExpr represents a unary operation.
type UnaryExpr struct {
	Op      lexer.TokenType
	Operand Expr
	span    lexer.Span
}

func (e *UnaryExpr) Span() lexer.Span { return e.span }
func (*UnaryExpr) exprNode()          {}

// Ident represents an identifier reference.
type Ident struct {
	Name string
	span lexer.Span
}

func (e *Ident) Span() lexer.Span { return e.span }
func (*Ident) exprNode()          {}

// NewIdent constructs an identifier node.
func NewIdent(name string, span lexer.Span) *Ident {
	return &Ident{Name: name, span: span}
}

// NumberLit represents a numeric literal. IsFloat carries the lexed
// int/float distinction into the checker.
type NumberLit struct {
	Value   string
	IsFloat bool
	span    lexer.Span
}

func (e *NumberLit) Span() lexer.Span { return e.span }
func (*NumberLit) exprNode()          {}

// NewNumberLit constructs a numeric literal node.
func NewNumberLit(value string, isFloat bool, span lexer.Span) *NumberLit {
	return &NumberLit{Value: value, IsFloat: isFloat, span: span}
}

// StringLit represents a backtick string literal (already decoded).
type StringLit struct {
	Value string
	span  lexer.Span
}

func (e *StringLit) Span() lexer.Span { return e.span }
func (*StringLit) exprNode()          {}

// NewStringLit constructs a string literal node.
func NewStringLit(value string, span lexer.Span) *StringLit {
	return &StringLit{Value: value, span: span}
}

// Constructor helpers for nodes that carry private spans. These keep span
// assignment in one place, mirroring the discipline the parser relies on.

func NewFnDecl(name string, params []*Param, ret lexer.TypeDesc, body *Block, span lexer.Span) *FnDecl {
	return &FnDecl{Name: name, Params: params, ReturnType: ret, Body: body, span: span}
}

func NewLambdaDecl(params []*Param, ret lexer.TypeDesc, body *Block, span lexer.Span) *LambdaDecl {
	return &LambdaDecl{Params: params, ReturnType: ret, Body: body, span: span}
}

func NewConstDecl(name string, typ lexer.TypeDesc, value Expr, span lexer.Span) *ConstDecl {
	return &ConstDecl{Name: name, Type: typ, Value: value, span: span}
}

func NewVarDecl(name string, typ lexer.TypeDesc, value Expr, span lexer.Span) *VarDecl {
	return &VarDecl{Name: name, Type: typ, Value: value, span: span}
}

func NewIfStmt(branches []Branch, els *Block, span lexer.Span) *IfStmt {
	return &IfStmt{Branches: branches, Else: els, span: span}
}

func NewIfExpr(branches []Branch, els *Block, span lexer.Span) *IfExpr {
	return &IfExpr{Branches: branches, Else: els, span: span}
}

func NewBlock(stmts []Stmt, span lexer.Span) *Block {
	return &Block{Stmts: stmts, span: span}
}

func NewReturnStmt(value Expr, span lexer.Span) *ReturnStmt {
	return &ReturnStmt{Value: value, span: span}
}

func NewParallelBlock(stmts []Stmt, span lexer.Span) *ParallelBlock {
	return &ParallelBlock{Stmts: stmts, span: span}
}

func NewRustEscape(segments []RustEscapeSegment, span lexer.Span) *RustEscape {
	return &RustEscape{Segments: segments, span: span}
}

func NewExprStmt(value Expr, span lexer.Span) *ExprStmt {
	return &ExprStmt{Value: value, span: span}
}

func NewStructDecl(name string, fields []StructField, span lexer.Span) *StructDecl {
	return &StructDecl{Name: name, Fields: fields, span: span}
}

func NewStructLit(name string, fields []StructLitField, span lexer.Span) *StructLit {
	return &StructLit{Name: name, Fields: fields, span: span}
}

func NewEnumDecl(name string, variants []string, span lexer.Span) *EnumDecl {
	return &EnumDecl{Name: name, Variants: variants, span: span}
}

func NewEnumVariant(enum, variant string, span lexer.Span) *EnumVariant {
	return &EnumVariant{Enum: enum, Variant: variant, span: span}
}

func NewArrayLit(elems []Expr, span lexer.Span) *ArrayLit {
	return &ArrayLit{Elems: elems, span: span}
}

func NewCallExpr(name string, args []Expr, span lexer.Span) *CallExpr {
	return &CallExpr{Name: name, Args: args, span: span}
}

func NewBinaryExpr(left Expr, op lexer.TokenType, right Expr, span lexer.Span) *BinaryExpr {
	return &BinaryExpr{Left: left, Op: op, Right: right, span: span}
}

func NewUnaryExpr(op lexer.TokenType, operand Expr, span lexer.Span) *UnaryExpr {
	return &UnaryExpr{Op: op, Operand: operand, span: span}
}
