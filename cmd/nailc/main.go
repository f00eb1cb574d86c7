package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlexTDWilkinson/Nail-sub000/internal/ast"
	"github.com/AlexTDWilkinson/Nail-sub000/internal/codegen"
	"github.com/AlexTDWilkinson/Nail-sub000/internal/diag"
	"github.com/AlexTDWilkinson/Nail-sub000/internal/lexer"
	"github.com/AlexTDWilkinson/Nail-sub000/internal/parser"
	"github.com/AlexTDWilkinson/Nail-sub000/internal/stdlib"
	"github.com/AlexTDWilkinson/Nail-sub000/internal/types"
)

func main() {
	lexOnly := flag.Bool("lex-only", false, "print the token stream and stop")
	parseOnly := flag.Bool("parse-only", false, "print the AST and stop")
	checkOnly := flag.Bool("check-only", false, "run the type checker and stop")
	skipCheck := flag.Bool("skip-check", false, "transpile without type checking")
	depsOnly := flag.Bool("deps-only", false, "print required cargo crates and stop")
	output := flag.String("o", "", "output path (default: input with .rs extension)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: nailc [options] <file.nail>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	path := flag.Arg(0)
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nailc: %v\n", err)
		os.Exit(1)
	}

	fmtOut := diag.NewFormatter()
	fmtOut.SetSource(path, string(src))

	l := lexer.New(string(src))
	l.SetFilename(path)
	tokens := l.Tokens()

	// Lex-only prints whatever came out, error tokens included.
	if *lexOnly {
		printTokens(tokens)
		return
	}

	if len(l.Errors) > 0 {
		for _, lerr := range l.Errors {
			fmtOut.Format(lerr.ToDiagnostic())
		}
		os.Exit(1)
	}

	prog, err := parser.Parse(tokens)
	if err != nil {
		if perr, ok := err.(*parser.ParseError); ok {
			fmtOut.Format(perr.ToDiagnostic())
		} else {
			fmt.Fprintf(os.Stderr, "nailc: %v\n", err)
		}
		os.Exit(1)
	}

	if *parseOnly {
		printProgram(prog)
		return
	}

	registry := stdlib.Default()

	// The checker always runs and always reports; --skip-check only stops
	// its errors from blocking transpilation.
	diags := types.NewChecker(registry).Check(prog)
	fmtOut.FormatAll(diags)
	if diag.HasErrors(diags) && !*skipCheck {
		os.Exit(1)
	}
	if *checkOnly {
		printProgram(prog)
		return
	}

	gen := codegen.New(registry)
	rust, err := gen.Generate(prog)
	if err != nil {
		if gerr, ok := err.(*codegen.GenError); ok {
			fmtOut.Format(gerr.ToDiagnostic())
		} else {
			fmt.Fprintf(os.Stderr, "nailc: %v\n", err)
		}
		os.Exit(1)
	}

	if *depsOnly {
		for _, dep := range gen.Dependencies() {
			fmt.Println(dep)
		}
		return
	}

	fmt.Print(rust)

	outPath := *output
	if outPath == "" {
		outPath = strings.TrimSuffix(path, filepath.Ext(path)) + ".rs"
	}
	if err := os.WriteFile(outPath, []byte(rust), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "nailc: %v\n", err)
		os.Exit(1)
	}
}

func printTokens(tokens []lexer.Token) {
	for _, tok := range tokens {
		loc := fmt.Sprintf("%d:%d", tok.Span.Line, tok.Span.Column)
		switch tok.Type {
		case lexer.FUNC_SIG, lexer.STRUCT_DECL, lexer.ENUM_DECL, lexer.STRUCT_LIT:
			fmt.Printf("%-8s %-18s %s\n", loc, tok.Type, tok.Name)
		case lexer.ENUM_VARIANT:
			fmt.Printf("%-8s %-18s %s::%s\n", loc, tok.Type, tok.Name, tok.Variant)
		case lexer.TYPE_DECLARATION, lexer.RETURN_DECLARATION:
			fmt.Printf("%-8s %-18s %s\n", loc, tok.Type, tok.TypeDesc.String())
		default:
			fmt.Printf("%-8s %-18s %s\n", loc, tok.Type, tok.Literal)
		}
	}
}

func printProgram(prog *ast.Program) {
	for _, stmt := range prog.Stmts {
		printNode(stmt, 0)
	}
}

func printNode(node ast.Node, depth int) {
	pad := strings.Repeat("  ", depth)
	switch n := node.(type) {
	case *ast.FnDecl:
		params := make([]string, len(n.Params))
		for i, p := range n.Params {
			params[i] = p.Name + ":" + p.Type.String()
		}
		fmt.Printf("%sFnDecl %s(%s) %s\n", pad, n.Name, strings.Join(params, ", "), n.ReturnType.String())
		printNode(n.Body, depth+1)
	case *ast.LambdaDecl:
		fmt.Printf("%sLambdaDecl %s\n", pad, n.ReturnType.String())
		printNode(n.Body, depth+1)
	case *ast.ConstDecl:
		fmt.Printf("%sConstDecl %s:%s\n", pad, n.Name, n.Type.String())
		printNode(n.Value, depth+1)
	case *ast.VarDecl:
		fmt.Printf("%sVarDecl %s:%s\n", pad, n.Name, n.Type.String())
		printNode(n.Value, depth+1)
	case *ast.ReturnStmt:
		fmt.Printf("%sReturnStmt\n", pad)
		printNode(n.Value, depth+1)
	case *ast.IfStmt:
		fmt.Printf("%sIfStmt (%d branches)\n", pad, len(n.Branches))
		for _, br := range n.Branches {
			printNode(br.Cond, depth+1)
			printNode(br.Block, depth+1)
		}
		if n.Else != nil {
			fmt.Printf("%s  else\n", pad)
			printNode(n.Else, depth+2)
		}
	case *ast.IfExpr:
		fmt.Printf("%sIfExpr (%d branches)\n", pad, len(n.Branches))
		for _, br := range n.Branches {
			printNode(br.Cond, depth+1)
			printNode(br.Block, depth+1)
		}
		if n.Else != nil {
			fmt.Printf("%s  else\n", pad)
			printNode(n.Else, depth+2)
		}
	case *ast.Block:
		fmt.Printf("%sBlock\n", pad)
		for _, s := range n.Stmts {
			printNode(s, depth+1)
		}
	case *ast.ParallelBlock:
		fmt.Printf("%sParallelBlock\n", pad)
		for _, s := range n.Stmts {
			printNode(s, depth+1)
		}
	case *ast.RustEscape:
		fmt.Printf("%sRustEscape (%d segments)\n", pad, len(n.Segments))
		for _, seg := range n.Segments {
			if seg.Expr != nil {
				printNode(seg.Expr, depth+1)
			}
		}
	case *ast.ExprStmt:
		fmt.Printf("%sExprStmt\n", pad)
		printNode(n.Value, depth+1)
	case *ast.StructDecl:
		fmt.Printf("%sStructDecl %s (%d fields)\n", pad, n.Name, len(n.Fields))
	case *ast.EnumDecl:
		fmt.Printf("%sEnumDecl %s (%d variants)\n", pad, n.Name, len(n.Variants))
	case *ast.StructLit:
		fmt.Printf("%sStructLit %s\n", pad, n.Name)
		for _, f := range n.Fields {
			printNode(f.Value, depth+1)
		}
	case *ast.EnumVariant:
		fmt.Printf("%sEnumVariant %s::%s\n", pad, n.Enum, n.Variant)
	case *ast.ArrayLit:
		fmt.Printf("%sArrayLit (%d elems)\n", pad, len(n.Elems))
		for _, el := range n.Elems {
			printNode(el, depth+1)
		}
	case *ast.CallExpr:
		fmt.Printf("%sCallExpr %s\n", pad, n.Name)
		for _, arg := range n.Args {
			printNode(arg, depth+1)
		}
	case *ast.BinaryExpr:
		fmt.Printf("%sBinaryExpr %s\n", pad, n.Op)
		printNode(n.Left, depth+1)
		printNode(n.Right, depth+1)
	case *ast.UnaryExpr:
		fmt.Printf("%sUnaryExpr %s\n", pad, n.Op)
		printNode(n.Operand, depth+1)
	case *ast.Ident:
		fmt.Printf("%sIdent %s\n", pad, n.Name)
	case *ast.NumberLit:
		fmt.Printf("%sNumberLit %s\n", pad, n.Value)
	case *ast.StringLit:
		fmt.Printf("%sStringLit %q\n", pad, n.Value)
	default:
		fmt.Printf("%s%T\n", pad, node)
	}
}
