// Package codegen walks a checked AST and emits Rust source text. The walk
// is mostly 1:1; the interesting transformations are fallible-return
// wrapping, the error-handling primitives, parallel-block expansion and the
// blanket clone policy on identifier arguments.
package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AlexTDWilkinson/Nail-sub000/internal/ast"
	"github.com/AlexTDWilkinson/Nail-sub000/internal/diag"
	"github.com/AlexTDWilkinson/Nail-sub000/internal/lexer"
	"github.com/AlexTDWilkinson/Nail-sub000/internal/stdlib"
)

// GenError is an internal invariant violation: the checker let through a
// shape the generator has no case for. It aborts generation immediately.
type GenError struct {
	Message string
	Span    lexer.Span
	Code    diag.Code
}

func (e *GenError) Error() string {
	if e.Span.Line > 0 {
		return fmt.Sprintf("%d:%d: %s", e.Span.Line, e.Span.Column, e.Message)
	}
	return e.Message
}

// ToDiagnostic converts the generation error into the shared diagnostic
// structure.
func (e *GenError) ToDiagnostic() diag.Diagnostic {
	code := e.Code
	if code == "" {
		code = diag.CodeGenUnsupportedNode
	}
	return diag.Diagnostic{
		Stage:    diag.StageCodegen,
		Severity: diag.SeverityError,
		Code:     code,
		Message:  e.Message,
		Span: diag.Span{
			Filename:  e.Span.Filename,
			Line:      e.Span.Line,
			Column:    e.Span.Column,
			EndLine:   e.Span.EndLine,
			EndColumn: e.Span.EndColumn,
		},
	}
}

// Generator emits Rust source for one program. Not safe for reuse across
// programs; create one per Generate call.
type Generator struct {
	registry *stdlib.Registry

	out    strings.Builder
	indent int

	// Context threaded through the walk: return emission depends on the
	// enclosing function's declared return type, and synthesized error
	// messages are tagged with the function's name.
	currentFnName   string
	currentFnReturn lexer.TypeDesc

	used map[string]stdlib.Function
}

// New creates a generator using the given stdlib registry.
func New(registry *stdlib.Registry) *Generator {
	return &Generator{
		registry: registry,
		used:     make(map[string]stdlib.Function),
	}
}

// Generate emits the whole program as Rust source text.
func (g *Generator) Generate(prog *ast.Program) (string, error) {
	// Pre-walk so struct derives contributed by stdlib usage are known
	// before the first struct declaration is emitted.
	g.collectCalls(prog)

	g.writeLine("#![allow(unused)]")
	g.writeLine("")

	var loose []ast.Stmt
	var fns []*ast.FnDecl

	for _, stmt := range prog.Stmts {
		switch s := stmt.(type) {
		case *ast.StructDecl:
			if err := g.emitStructDecl(s); err != nil {
				return "", err
			}
		case *ast.EnumDecl:
			g.emitEnumDecl(s)
		case *ast.FnDecl:
			fns = append(fns, s)
		default:
			loose = append(loose, stmt)
		}
	}

	for _, fn := range fns {
		attr := len(loose) == 0 && fn.Name == "main"
		if err := g.emitFnDecl(fn, attr); err != nil {
			return "", err
		}
	}

	// Loose top-level statements become the program entry point.
	if len(loose) > 0 {
		g.writeLine("#[tokio::main]")
		g.writeLine("async fn main() {")
		g.indent++
		prevName := g.currentFnName
		g.currentFnName = "main"
		for _, stmt := range loose {
			if err := g.emitStmt(stmt); err != nil {
				return "", err
			}
		}
		g.currentFnName = prevName
		g.indent--
		g.writeLine("}")
	}

	return Normalize(g.out.String()), nil
}

// Dependencies returns the sorted cargo crates the generated program needs.
// Valid after Generate.
func (g *Generator) Dependencies() []string {
	set := map[string]bool{"tokio": true}
	for _, fn := range g.used {
		for _, dep := range fn.Dependencies {
			set[dep] = true
		}
	}
	deps := make([]string, 0, len(set))
	for dep := range set {
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	return deps
}

func (g *Generator) collectCalls(node ast.Node) {
	switch n := node.(type) {
	case *ast.Program:
		for _, s := range n.Stmts {
			g.collectCalls(s)
		}
	case *ast.FnDecl:
		g.collectCalls(n.Body)
	case *ast.LambdaDecl:
		g.collectCalls(n.Body)
	case *ast.Block:
		for _, s := range n.Stmts {
			g.collectCalls(s)
		}
	case *ast.ParallelBlock:
		for _, s := range n.Stmts {
			g.collectCalls(s)
		}
	case *ast.ConstDecl:
		g.collectCalls(n.Value)
	case *ast.VarDecl:
		g.collectCalls(n.Value)
	case *ast.ReturnStmt:
		g.collectCalls(n.Value)
	case *ast.ExprStmt:
		g.collectCalls(n.Value)
	case *ast.IfStmt:
		for _, br := range n.Branches {
			g.collectCalls(br.Cond)
			g.collectCalls(br.Block)
		}
		if n.Else != nil {
			g.collectCalls(n.Else)
		}
	case *ast.IfExpr:
		for _, br := range n.Branches {
			g.collectCalls(br.Cond)
			g.collectCalls(br.Block)
		}
		if n.Else != nil {
			g.collectCalls(n.Else)
		}
	case *ast.RustEscape:
		for _, seg := range n.Segments {
			if seg.Expr != nil {
				g.collectCalls(seg.Expr)
			}
		}
	case *ast.CallExpr:
		if fn, ok := g.registry.Lookup(n.Name); ok {
			g.used[n.Name] = fn
		}
		for _, arg := range n.Args {
			g.collectCalls(arg)
		}
	case *ast.BinaryExpr:
		g.collectCalls(n.Left)
		g.collectCalls(n.Right)
	case *ast.UnaryExpr:
		g.collectCalls(n.Operand)
	case *ast.ArrayLit:
		for _, el := range n.Elems {
			g.collectCalls(el)
		}
	case *ast.StructLit:
		for _, f := range n.Fields {
			g.collectCalls(f.Value)
		}
	}
}

func (g *Generator) writeLine(line string) {
	if line != "" {
		g.out.WriteString(strings.Repeat("    ", g.indent))
	}
	g.out.WriteString(line)
	g.out.WriteString("\n")
}

func (g *Generator) structDerives() []string {
	derives := []string{"Debug", "Clone"}
	seen := map[string]bool{"Debug": true, "Clone": true}
	names := make([]string, 0, len(g.used))
	for name := range g.used {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, d := range g.used[name].StructDerives {
			if !seen[d] {
				derives = append(derives, d)
				seen[d] = true
			}
		}
	}
	return derives
}

func (g *Generator) emitStructDecl(d *ast.StructDecl) error {
	g.writeLine("#[derive(" + strings.Join(g.structDerives(), ", ") + ")]")
	g.writeLine("pub struct " + d.Name + " {")
	g.indent++
	for _, field := range d.Fields {
		typ, err := g.rustType(field.Type, field.Span)
		if err != nil {
			return err
		}
		g.writeLine("pub " + field.Name + ": " + typ + ",")
	}
	g.indent--
	g.writeLine("}")
	g.writeLine("")
	return nil
}

func (g *Generator) emitEnumDecl(d *ast.EnumDecl) {
	g.writeLine("#[derive(Debug, Clone, PartialEq)]")
	g.writeLine("pub enum " + d.Name + " {")
	g.indent++
	for _, variant := range d.Variants {
		g.writeLine(variant + ",")
	}
	g.indent--
	g.writeLine("}")
	g.writeLine("")
}

func (g *Generator) emitFnDecl(fn *ast.FnDecl, mainAttr bool) error {
	prevName, prevReturn := g.currentFnName, g.currentFnReturn
	g.currentFnName = fn.Name
	g.currentFnReturn = fn.ReturnType
	defer func() {
		g.currentFnName, g.currentFnReturn = prevName, prevReturn
	}()

	params := make([]string, 0, len(fn.Params))
	for _, p := range fn.Params {
		typ, err := g.rustType(p.Type, p.Span())
		if err != nil {
			return err
		}
		params = append(params, p.Name+": "+typ)
	}

	sig := "pub async fn " + fn.Name + "(" + strings.Join(params, ", ") + ")"
	if fn.ReturnType.Kind != lexer.TypeVoid {
		ret, err := g.rustType(fn.ReturnType, fn.Span())
		if err != nil {
			return err
		}
		sig += " -> " + ret
	}

	if mainAttr {
		g.writeLine("#[tokio::main]")
		sig = strings.Replace(sig, "pub async fn", "async fn", 1)
	}
	g.writeLine(sig + " {")
	g.indent++
	for _, stmt := range fn.Body.Stmts {
		if err := g.emitStmt(stmt); err != nil {
			return err
		}
	}
	g.indent--
	g.writeLine("}")
	g.writeLine("")
	return nil
}

func (g *Generator) emitStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.ConstDecl:
		return g.emitBinding(s.Name, s.Type, s.Value, false, s.Span())
	case *ast.VarDecl:
		return g.emitBinding(s.Name, s.Type, s.Value, true, s.Span())
	case *ast.ReturnStmt:
		return g.emitReturn(s)
	case *ast.IfStmt:
		return g.emitIfStmt(s.Branches, s.Else)
	case *ast.Block:
		g.writeLine("{")
		g.indent++
		for _, inner := range s.Stmts {
			if err := g.emitStmt(inner); err != nil {
				return err
			}
		}
		g.indent--
		g.writeLine("}")
		return nil
	case *ast.ParallelBlock:
		return g.emitParallelBlock(s)
	case *ast.RustEscape:
		return g.emitRustEscape(s)
	case *ast.ExprStmt:
		expr, err := g.emitExpr(s.Value)
		if err != nil {
			return err
		}
		g.writeLine(expr + ";")
		return nil
	default:
		return &GenError{Message: fmt.Sprintf("unsupported statement %T", stmt), Span: stmt.Span()}
	}
}

func (g *Generator) emitBinding(name string, typ lexer.TypeDesc, value ast.Expr, mutable bool, span lexer.Span) error {
	rtyp, err := g.rustType(typ, span)
	if err != nil {
		return err
	}
	expr, err := g.emitExpr(value)
	if err != nil {
		return err
	}
	kw := "let "
	if mutable {
		kw = "let mut "
	}
	g.writeLine(kw + name + ": " + rtyp + " = " + expr + ";")
	return nil
}

// emitReturn wraps the returned expression in the success constructor when
// the enclosing function is fallible, unless the expression is itself an
// e(...) error construction, which already is the failure case and must go
// out unwrapped.
func (g *Generator) emitReturn(s *ast.ReturnStmt) error {
	if call, ok := s.Value.(*ast.CallExpr); ok && call.Name == "e" {
		expr, err := g.emitExpr(call)
		if err != nil {
			return err
		}
		g.writeLine("return " + expr + ";")
		return nil
	}

	expr, err := g.emitExpr(s.Value)
	if err != nil {
		return err
	}
	if _, fallible := g.currentFnReturn.FailAlternative(); fallible {
		g.writeLine("return Ok(" + expr + ");")
		return nil
	}
	g.writeLine("return " + expr + ";")
	return nil
}

// emitIfStmt realizes the multi-branch construct as sequential
// if/else-if/else blocks; evaluation order and fallthrough-to-else
// semantics carry over unchanged.
func (g *Generator) emitIfStmt(branches []ast.Branch, els *ast.Block) error {
	// An if with only an else arm always runs it; emit a plain block.
	if len(branches) == 0 {
		if els == nil {
			return nil
		}
		g.writeLine("{")
		g.indent++
		for _, stmt := range els.Stmts {
			if err := g.emitStmt(stmt); err != nil {
				return err
			}
		}
		g.indent--
		g.writeLine("}")
		return nil
	}
	for i, br := range branches {
		cond, err := g.emitExpr(br.Cond)
		if err != nil {
			return err
		}
		head := "if "
		if i > 0 {
			head = "} else if "
		}
		g.writeLine(head + cond + " {")
		g.indent++
		for _, stmt := range br.Block.Stmts {
			if err := g.emitStmt(stmt); err != nil {
				return err
			}
		}
		g.indent--
	}
	if els != nil {
		g.writeLine("} else {")
		g.indent++
		for _, stmt := range els.Stmts {
			if err := g.emitStmt(stmt); err != nil {
				return err
			}
		}
		g.indent--
	}
	g.writeLine("}")
	return nil
}

// emitParallelBlock expands a parallel block into one join: every statement
// becomes a concurrently-scheduled unit, and declaration order in source
// becomes destructuring position order in the join. Statements that bind
// nothing get a placeholder name.
func (g *Generator) emitParallelBlock(block *ast.ParallelBlock) error {
	if len(block.Stmts) == 0 {
		return nil
	}

	names := make([]string, 0, len(block.Stmts))
	units := make([]string, 0, len(block.Stmts))

	for _, stmt := range block.Stmts {
		var value ast.Expr
		switch s := stmt.(type) {
		case *ast.ConstDecl:
			names = append(names, s.Name)
			value = s.Value
		case *ast.VarDecl:
			names = append(names, s.Name)
			value = s.Value
		case *ast.ExprStmt:
			names = append(names, "_")
			value = s.Value
		default:
			return &GenError{Message: fmt.Sprintf("unsupported statement %T in parallel block", stmt), Span: stmt.Span()}
		}
		expr, err := g.emitExpr(value)
		if err != nil {
			return err
		}
		units = append(units, "async move { "+expr+" }")
	}

	pattern := strings.Join(names, ", ")
	if len(names) == 1 {
		// A one-element tuple pattern needs the trailing comma, or the
		// binding would take the whole 1-tuple.
		pattern += ","
	}
	g.writeLine("let (" + pattern + ") = tokio::join!(")
	g.indent++
	for i, unit := range units {
		suffix := ","
		if i == len(units)-1 {
			suffix = ""
		}
		g.writeLine(unit + suffix)
	}
	g.indent--
	g.writeLine(");")
	return nil
}

func (g *Generator) emitRustEscape(esc *ast.RustEscape) error {
	var b strings.Builder
	for _, seg := range esc.Segments {
		if seg.Expr == nil {
			b.WriteString(seg.Raw)
			continue
		}
		expr, err := g.emitExpr(seg.Expr)
		if err != nil {
			return err
		}
		b.WriteString(expr)
	}
	for _, line := range strings.Split(strings.TrimSpace(b.String()), "\n") {
		g.writeLine(strings.TrimSpace(line))
	}
	return nil
}

func (g *Generator) emitExpr(expr ast.Expr) (string, error) {
	switch e := expr.(type) {
	case *ast.NumberLit:
		return e.Value, nil

	case *ast.StringLit:
		return rustString(e.Value) + ".to_string()", nil

	case *ast.Ident:
		return e.Name, nil

	case *ast.BinaryExpr:
		left, err := g.emitExpr(e.Left)
		if err != nil {
			return "", err
		}
		right, err := g.emitExpr(e.Right)
		if err != nil {
			return "", err
		}
		return "(" + left + " " + string(e.Op) + " " + right + ")", nil

	case *ast.UnaryExpr:
		operand, err := g.emitExpr(e.Operand)
		if err != nil {
			return "", err
		}
		return "(" + string(e.Op) + operand + ")", nil

	case *ast.ArrayLit:
		elems := make([]string, 0, len(e.Elems))
		for _, el := range e.Elems {
			s, err := g.emitArg(el)
			if err != nil {
				return "", err
			}
			elems = append(elems, s)
		}
		return "vec![" + strings.Join(elems, ", ") + "]", nil

	case *ast.StructLit:
		fields := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			s, err := g.emitArg(f.Value)
			if err != nil {
				return "", err
			}
			fields = append(fields, f.Name+": "+s)
		}
		return e.Name + " { " + strings.Join(fields, ", ") + " }", nil

	case *ast.EnumVariant:
		return e.Enum + "::" + e.Variant, nil

	case *ast.CallExpr:
		return g.emitCall(e)

	case *ast.LambdaDecl:
		return g.emitLambda(e)

	case *ast.IfExpr:
		return g.emitIfExpr(e)

	default:
		return "", &GenError{Message: fmt.Sprintf("unsupported expression %T", expr), Span: expr.Span()}
	}
}

// emitArg emits a call argument or array element. Identifiers get an
// explicit clone: the source language assumes value semantics, so every
// reference that the target would move or borrow is duplicated instead.
// Blanket rule, no escape analysis.
func (g *Generator) emitArg(expr ast.Expr) (string, error) {
	if ident, ok := expr.(*ast.Ident); ok {
		return ident.Name + ".clone()", nil
	}
	return g.emitExpr(expr)
}

// emitCall handles the error-handling primitives before the generic
// stdlib and user-function paths; they are macro-like constructs, not
// ordinary calls.
func (g *Generator) emitCall(e *ast.CallExpr) (string, error) {
	switch e.Name {
	case "e":
		if len(e.Args) != 1 {
			return "", &GenError{Message: "e expects exactly one argument", Span: e.Span()}
		}
		msg, err := g.emitExpr(e.Args[0])
		if err != nil {
			return "", err
		}
		return "Err(format!(\"[" + g.currentFnName + "] {}\", " + msg + "))", nil

	case "safe":
		if len(e.Args) != 2 {
			return "", &GenError{Message: "safe expects an expression and a handler", Span: e.Span()}
		}
		value, err := g.emitExpr(e.Args[0])
		if err != nil {
			return "", err
		}
		handler, err := g.emitExpr(e.Args[1])
		if err != nil {
			return "", err
		}
		return "match " + value + " { Ok(nail_value) => nail_value, Err(nail_error) => (" + handler + ")(nail_error) }", nil

	case "dangerous", "expect":
		// Semantically identical: unconditional unwrap with a tagged panic.
		// expect exists for reader intent only.
		if len(e.Args) != 1 {
			return "", &GenError{Message: e.Name + " expects exactly one argument", Span: e.Span()}
		}
		value, err := g.emitExpr(e.Args[0])
		if err != nil {
			return "", err
		}
		return value + ".unwrap_or_else(|nail_error| panic!(\"[" + g.currentFnName + "] {}\", nail_error))", nil
	}

	args := make([]string, 0, len(e.Args))
	for _, arg := range e.Args {
		s, err := g.emitArg(arg)
		if err != nil {
			return "", err
		}
		args = append(args, s)
	}
	argList := "(" + strings.Join(args, ", ") + ")"

	if fn, ok := g.registry.Lookup(e.Name); ok {
		g.used[e.Name] = fn
		call := fn.Path + argList
		if fn.IsAsync {
			call += ".await"
		}
		if stdlib.TrustedGroup(fn.Group) {
			call += ".unwrap()"
		}
		return call, nil
	}

	// User functions are all emitted async.
	return e.Name + argList + ".await", nil
}

func (g *Generator) emitLambda(e *ast.LambdaDecl) (string, error) {
	params := make([]string, 0, len(e.Params))
	for _, p := range e.Params {
		typ, err := g.rustType(p.Type, p.Span())
		if err != nil {
			return "", err
		}
		params = append(params, p.Name+": "+typ)
	}

	var body strings.Builder
	sub := &Generator{
		registry:        g.registry,
		used:            g.used,
		currentFnName:   g.currentFnName,
		currentFnReturn: e.ReturnType,
	}
	for _, stmt := range e.Body.Stmts {
		if err := sub.emitStmt(stmt); err != nil {
			return "", err
		}
	}
	body.WriteString(sub.out.String())

	sig := "|" + strings.Join(params, ", ") + "|"
	if e.ReturnType.Kind != lexer.TypeVoid {
		ret, err := g.rustType(e.ReturnType, e.Span())
		if err != nil {
			return "", err
		}
		sig += " -> " + ret
	}
	inner := strings.TrimSpace(strings.ReplaceAll(body.String(), "\n", " "))
	return sig + " { " + inner + " }", nil
}

// emitIfExpr realizes the construct in expression position: each branch
// yields its block's tail expression.
func (g *Generator) emitIfExpr(e *ast.IfExpr) (string, error) {
	if len(e.Branches) == 0 {
		if e.Else == nil {
			return "{ }", nil
		}
		return g.emitBlockTail(e.Else)
	}
	var b strings.Builder
	for i, br := range e.Branches {
		cond, err := g.emitExpr(br.Cond)
		if err != nil {
			return "", err
		}
		if i > 0 {
			b.WriteString(" else ")
		}
		b.WriteString("if " + cond + " ")
		tail, err := g.emitBlockTail(br.Block)
		if err != nil {
			return "", err
		}
		b.WriteString(tail)
	}
	if e.Else != nil {
		tail, err := g.emitBlockTail(e.Else)
		if err != nil {
			return "", err
		}
		b.WriteString(" else " + tail)
	}
	return b.String(), nil
}

// emitBlockTail emits a block whose last statement's expression is the
// block's value.
func (g *Generator) emitBlockTail(block *ast.Block) (string, error) {
	if len(block.Stmts) == 0 {
		return "{ }", nil
	}

	var parts []string
	for i, stmt := range block.Stmts {
		last := i == len(block.Stmts)-1
		if last {
			var value ast.Expr
			switch s := stmt.(type) {
			case *ast.ExprStmt:
				value = s.Value
			case *ast.ReturnStmt:
				value = s.Value
			default:
				return "", &GenError{Message: "if-expression branch must end in an expression", Span: stmt.Span()}
			}
			expr, err := g.emitExpr(value)
			if err != nil {
				return "", err
			}
			parts = append(parts, expr)
			continue
		}

		sub := &Generator{
			registry:        g.registry,
			used:            g.used,
			currentFnName:   g.currentFnName,
			currentFnReturn: g.currentFnReturn,
		}
		if err := sub.emitStmt(stmt); err != nil {
			return "", err
		}
		parts = append(parts, strings.TrimSpace(strings.ReplaceAll(sub.out.String(), "\n", " ")))
	}
	return "{ " + strings.Join(parts, " ") + " }", nil
}

func (g *Generator) rustType(desc lexer.TypeDesc, span lexer.Span) (string, error) {
	switch desc.Kind {
	case lexer.TypeInt:
		return "i64", nil
	case lexer.TypeFloat:
		return "f64", nil
	case lexer.TypeString:
		return "String", nil
	case lexer.TypeBoolean:
		return "bool", nil
	case lexer.TypeVoid:
		return "()", nil
	case lexer.TypeError:
		return "String", nil
	case lexer.TypeArrayInt:
		return "Vec<i64>", nil
	case lexer.TypeArrayFloat:
		return "Vec<f64>", nil
	case lexer.TypeArrayString:
		return "Vec<String>", nil
	case lexer.TypeArrayBoolean:
		return "Vec<bool>", nil
	case lexer.TypeArrayStruct, lexer.TypeArrayEnum:
		return "Vec<" + desc.Name + ">", nil
	case lexer.TypeStruct, lexer.TypeEnum:
		return desc.Name, nil
	case lexer.TypeAny:
		if success, ok := desc.FailAlternative(); ok {
			inner, err := g.rustType(success, span)
			if err != nil {
				return "", err
			}
			return "Result<" + inner + ", String>", nil
		}
		return "", &GenError{Message: "unsupported type union " + desc.String(), Span: span, Code: diag.CodeGenUnsupportedType}
	default:
		return "", &GenError{Message: "unsupported type " + desc.String(), Span: span, Code: diag.CodeGenUnsupportedType}
	}
}

func rustString(value string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range value {
		switch r {
		case '\\':
			b.WriteString("\\\\")
		case '"':
			b.WriteString("\\\"")
		case '\n':
			b.WriteString("\\n")
		case '\t':
			b.WriteString("\\t")
		case '\r':
			b.WriteString("\\r")
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
