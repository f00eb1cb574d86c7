package parser

import (
	"strings"
	"testing"

	"github.com/AlexTDWilkinson/Nail-sub000/internal/ast"
	"github.com/AlexTDWilkinson/Nail-sub000/internal/lexer"
)

func parseSource(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := Parse(lexer.Lex(src))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return prog
}

func parseError(t *testing.T, src string) *ParseError {
	t.Helper()
	_, err := Parse(lexer.Lex(src))
	if err == nil {
		t.Fatalf("expected parse error for %q", src)
	}
	perr, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	return perr
}

func TestParse_FnDecl(t *testing.T) {
	prog := parseSource(t, `fn add(x:i, y:i):i { r x + y; }`)

	if len(prog.Stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Stmts))
	}
	fn, ok := prog.Stmts[0].(*ast.FnDecl)
	if !ok {
		t.Fatalf("expected *ast.FnDecl, got %T", prog.Stmts[0])
	}
	if fn.Name != "add" {
		t.Fatalf("expected function 'add', got %q", fn.Name)
	}
	if len(fn.Params) != 2 {
		t.Fatalf("expected 2 parameters, got %d", len(fn.Params))
	}
	if fn.Params[0].Name != "x" || fn.Params[0].Type.Kind != lexer.TypeInt {
		t.Fatalf("parameter 0 wrong: %s:%s", fn.Params[0].Name, fn.Params[0].Type.String())
	}
	if fn.ReturnType.Kind != lexer.TypeInt {
		t.Fatalf("expected return type i, got %q", fn.ReturnType.String())
	}
	if len(fn.Body.Stmts) != 1 {
		t.Fatalf("expected 1 body statement, got %d", len(fn.Body.Stmts))
	}
	ret, ok := fn.Body.Stmts[0].(*ast.ReturnStmt)
	if !ok {
		t.Fatalf("expected *ast.ReturnStmt, got %T", fn.Body.Stmts[0])
	}
	bin, ok := ret.Value.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected *ast.BinaryExpr, got %T", ret.Value)
	}
	if bin.Op != lexer.PLUS {
		t.Fatalf("expected +, got %q", bin.Op)
	}
}

func TestParse_PrecedenceMulBindsTighter(t *testing.T) {
	prog := parseSource(t, `c x:i = 1 + 2 * 3;`)

	decl := prog.Stmts[0].(*ast.ConstDecl)
	top, ok := decl.Value.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected *ast.BinaryExpr, got %T", decl.Value)
	}
	if top.Op != lexer.PLUS {
		t.Fatalf("expected + at the top, got %q", top.Op)
	}
	right, ok := top.Right.(*ast.BinaryExpr)
	if !ok || right.Op != lexer.ASTERISK {
		t.Fatalf("expected * on the right, got %T", top.Right)
	}
}

func TestParse_PrecedenceLeftAssociative(t *testing.T) {
	prog := parseSource(t, `c x:i = 2 * 3 + 1;`)

	decl := prog.Stmts[0].(*ast.ConstDecl)
	top := decl.Value.(*ast.BinaryExpr)
	if top.Op != lexer.PLUS {
		t.Fatalf("expected + at the top, got %q", top.Op)
	}
	left, ok := top.Left.(*ast.BinaryExpr)
	if !ok || left.Op != lexer.ASTERISK {
		t.Fatalf("expected * on the left, got %T", top.Left)
	}
}

func TestParse_PrecedenceComparisonVsLogic(t *testing.T) {
	prog := parseSource(t, `c x:b = a < 1 && b > 2;`)

	decl := prog.Stmts[0].(*ast.ConstDecl)
	top := decl.Value.(*ast.BinaryExpr)
	if top.Op != lexer.AND {
		t.Fatalf("expected && at the top, got %q", top.Op)
	}
	if l, ok := top.Left.(*ast.BinaryExpr); !ok || l.Op != lexer.LT {
		t.Fatalf("expected < on the left, got %T", top.Left)
	}
	if r, ok := top.Right.(*ast.BinaryExpr); !ok || r.Op != lexer.GT {
		t.Fatalf("expected > on the right, got %T", top.Right)
	}
}

func TestParse_Grouping(t *testing.T) {
	prog := parseSource(t, `c x:i = (1 + 2) * 3;`)

	decl := prog.Stmts[0].(*ast.ConstDecl)
	top := decl.Value.(*ast.BinaryExpr)
	if top.Op != lexer.ASTERISK {
		t.Fatalf("expected * at the top, got %q", top.Op)
	}
	if l, ok := top.Left.(*ast.BinaryExpr); !ok || l.Op != lexer.PLUS {
		t.Fatalf("expected grouped + on the left, got %T", top.Left)
	}
}

func TestParse_IfStmtMultiBranch(t *testing.T) {
	src := `
fn classify(x:i):i {
    if {
        x > 10 => { r 2; },
        x > 0 => { r 1; },
        else => { r 0; }
    };
}
`
	prog := parseSource(t, src)

	fn := prog.Stmts[0].(*ast.FnDecl)
	stmt, ok := fn.Body.Stmts[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected *ast.IfStmt, got %T", fn.Body.Stmts[0])
	}
	if len(stmt.Branches) != 2 {
		t.Fatalf("expected one node with 2 branches, got %d", len(stmt.Branches))
	}
	if stmt.Else == nil {
		t.Fatalf("expected an else block")
	}
}

func TestParse_IfInExpressionPosition(t *testing.T) {
	src := "c label:s = if { x > 0 => { `pos`; }, else => { `neg`; } };"
	prog := parseSource(t, src)

	decl := prog.Stmts[0].(*ast.ConstDecl)
	ifExpr, ok := decl.Value.(*ast.IfExpr)
	if !ok {
		t.Fatalf("expected *ast.IfExpr, got %T", decl.Value)
	}
	if len(ifExpr.Branches) != 1 || ifExpr.Else == nil {
		t.Fatalf("if expression shape wrong: %d branches, else=%v",
			len(ifExpr.Branches), ifExpr.Else != nil)
	}
}

func TestParse_ParallelBlock(t *testing.T) {
	src := `
parallel {
    c a:i = f();
    c b:i = g();
    h();
}
`
	prog := parseSource(t, src)

	block, ok := prog.Stmts[0].(*ast.ParallelBlock)
	if !ok {
		t.Fatalf("expected *ast.ParallelBlock, got %T", prog.Stmts[0])
	}
	if len(block.Stmts) != 3 {
		t.Fatalf("expected 3 parallel statements, got %d", len(block.Stmts))
	}
}

func TestParse_StructAndEnumDecls(t *testing.T) {
	src := `
struct Point { x:i, y:i }
enum Color { Red, Green }
`
	prog := parseSource(t, src)

	if len(prog.Stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(prog.Stmts))
	}
	sd := prog.Stmts[0].(*ast.StructDecl)
	if sd.Name != "Point" || len(sd.Fields) != 2 {
		t.Fatalf("struct decl wrong: %s with %d fields", sd.Name, len(sd.Fields))
	}
	ed := prog.Stmts[1].(*ast.EnumDecl)
	if ed.Name != "Color" || len(ed.Variants) != 2 {
		t.Fatalf("enum decl wrong: %s with %d variants", ed.Name, len(ed.Variants))
	}
}

func TestParse_StructLitAndEnumVariant(t *testing.T) {
	src := "c p:struct:Point = Point { x:1, y:2 };\nc col:enum:Color = Color::Red;"
	prog := parseSource(t, src)

	lit := prog.Stmts[0].(*ast.ConstDecl).Value.(*ast.StructLit)
	if lit.Name != "Point" || len(lit.Fields) != 2 {
		t.Fatalf("struct literal wrong: %s with %d fields", lit.Name, len(lit.Fields))
	}
	variant := prog.Stmts[1].(*ast.ConstDecl).Value.(*ast.EnumVariant)
	if variant.Enum != "Color" || variant.Variant != "Red" {
		t.Fatalf("enum variant wrong: %s::%s", variant.Enum, variant.Variant)
	}
}

func TestParse_Lambda(t *testing.T) {
	src := "c x:i = safe(risky(), |err:s|:i { r 0; });"
	prog := parseSource(t, src)

	call := prog.Stmts[0].(*ast.ConstDecl).Value.(*ast.CallExpr)
	if call.Name != "safe" || len(call.Args) != 2 {
		t.Fatalf("call wrong: %s with %d args", call.Name, len(call.Args))
	}
	lambda, ok := call.Args[1].(*ast.LambdaDecl)
	if !ok {
		t.Fatalf("expected *ast.LambdaDecl, got %T", call.Args[1])
	}
	if len(lambda.Params) != 1 || lambda.Params[0].Name != "err" {
		t.Fatalf("lambda parameters wrong: %+v", lambda.Params)
	}
	if lambda.ReturnType.Kind != lexer.TypeInt {
		t.Fatalf("lambda return type wrong: %q", lambda.ReturnType.String())
	}
}

func TestParse_RustEscapeSplices(t *testing.T) {
	src := "#{ println!(\"{}\", ${count + 1}); }#"
	prog := parseSource(t, src)

	esc, ok := prog.Stmts[0].(*ast.RustEscape)
	if !ok {
		t.Fatalf("expected *ast.RustEscape, got %T", prog.Stmts[0])
	}
	if len(esc.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(esc.Segments))
	}
	if esc.Segments[1].Expr == nil {
		t.Fatalf("expected middle segment to carry a spliced expression")
	}
	if _, ok := esc.Segments[1].Expr.(*ast.BinaryExpr); !ok {
		t.Fatalf("expected spliced binary expression, got %T", esc.Segments[1].Expr)
	}
}

func TestParse_CommentsAreSkipped(t *testing.T) {
	src := "// leading\nc x:i = 1; // trailing\n"
	prog := parseSource(t, src)

	if len(prog.Stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Stmts))
	}
	if _, ok := prog.Stmts[0].(*ast.ConstDecl); !ok {
		t.Fatalf("expected *ast.ConstDecl, got %T", prog.Stmts[0])
	}
}

func TestParse_Deterministic(t *testing.T) {
	src := `
fn add(x:i, y:i):i { r x + y; }
c total:i = add(1, 2 * 3);
`
	first := parseSource(t, src)
	second := parseSource(t, src)

	if len(first.Stmts) != len(second.Stmts) {
		t.Fatalf("parse runs disagree: %d vs %d statements",
			len(first.Stmts), len(second.Stmts))
	}
}

func TestParse_FailFast(t *testing.T) {
	tests := []string{
		"c x:i = ;",
		"c x:i 5;",
		"r 1",
		"c x:i = (1 + 2;",
		"if { x > 0 { r 1; } };",
	}

	for _, src := range tests {
		perr := parseError(t, src)
		if perr.Message == "" {
			t.Fatalf("expected error message for %q", src)
		}
		if perr.Span.Line == 0 {
			t.Fatalf("expected positioned error for %q, got %+v", src, perr.Span)
		}
	}
}

func TestParse_LexerErrorTokenFailsParse(t *testing.T) {
	perr := parseError(t, "c x:i = `unterminated;")
	if perr.Message == "" {
		t.Fatalf("expected lexer error to surface as parse failure")
	}
}

// sourceOf renders a small statement subset back to source text, enough to
// reparse a directly-constructed AST. Binary expressions are always
// parenthesized so the printed form is unambiguous.
func sourceOf(prog *ast.Program) string {
	var b strings.Builder
	for _, stmt := range prog.Stmts {
		writeStmtSource(&b, stmt)
	}
	return b.String()
}

func writeStmtSource(b *strings.Builder, stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.FnDecl:
		b.WriteString("fn " + s.Name + "(")
		for i, p := range s.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.Name + ":" + p.Type.String())
		}
		b.WriteString("):" + s.ReturnType.String() + " { ")
		for _, inner := range s.Body.Stmts {
			writeStmtSource(b, inner)
		}
		b.WriteString("} ")
	case *ast.ConstDecl:
		b.WriteString("c " + s.Name + ":" + s.Type.String() + " = " + exprSource(s.Value) + "; ")
	case *ast.ReturnStmt:
		b.WriteString("r " + exprSource(s.Value) + "; ")
	}
}

func exprSource(e ast.Expr) string {
	switch x := e.(type) {
	case *ast.Ident:
		return x.Name
	case *ast.NumberLit:
		return x.Value
	case *ast.StringLit:
		return "`" + x.Value + "`"
	case *ast.BinaryExpr:
		return "(" + exprSource(x.Left) + " " + string(x.Op) + " " + exprSource(x.Right) + ")"
	case *ast.CallExpr:
		args := make([]string, len(x.Args))
		for i, a := range x.Args {
			args[i] = exprSource(a)
		}
		return x.Name + "(" + strings.Join(args, ", ") + ")"
	}
	return ""
}

func TestParse_PrintedASTReparsesToSameShape(t *testing.T) {
	span := lexer.Span{Line: 1, Column: 1}
	tInt := lexer.TypeDesc{Kind: lexer.TypeInt}

	body := ast.NewBlock([]ast.Stmt{
		ast.NewConstDecl("doubled", tInt,
			ast.NewBinaryExpr(ast.NewIdent("x", span), lexer.ASTERISK, ast.NewNumberLit("2", false, span), span),
			span),
		ast.NewReturnStmt(
			ast.NewBinaryExpr(ast.NewIdent("doubled", span), lexer.PLUS, ast.NewIdent("y", span), span),
			span),
	}, span)

	built := ast.NewProgram(span)
	built.Stmts = []ast.Stmt{
		ast.NewFnDecl("combine", []*ast.Param{
			ast.NewParam("x", tInt, span),
			ast.NewParam("y", tInt, span),
		}, tInt, body, span),
		ast.NewConstDecl("total", tInt,
			ast.NewCallExpr("combine", []ast.Expr{
				ast.NewNumberLit("3", false, span),
				ast.NewNumberLit("4", false, span),
			}, span),
			span),
	}

	src := sourceOf(built)
	reparsed := parseSource(t, src)

	if got := sourceOf(reparsed); got != src {
		t.Fatalf("reparsed AST shape differs\nprinted:  %s\nreparsed: %s", src, got)
	}

	fn, ok := reparsed.Stmts[0].(*ast.FnDecl)
	if !ok || fn.Name != "combine" || len(fn.Params) != 2 {
		t.Fatalf("expected combine function declaration, got %+v", reparsed.Stmts[0])
	}
	if !fn.ReturnType.Equal(tInt) {
		t.Fatalf("return type changed across the round trip: %s", fn.ReturnType)
	}
	ret, ok := fn.Body.Stmts[1].(*ast.ReturnStmt)
	if !ok {
		t.Fatalf("expected return statement, got %+v", fn.Body.Stmts[1])
	}
	if bin, ok := ret.Value.(*ast.BinaryExpr); !ok || bin.Op != lexer.PLUS {
		t.Fatalf("expected addition in return position, got %+v", ret.Value)
	}
}
