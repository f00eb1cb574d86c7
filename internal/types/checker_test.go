package types

import (
	"strings"
	"testing"

	"github.com/AlexTDWilkinson/Nail-sub000/internal/diag"
	"github.com/AlexTDWilkinson/Nail-sub000/internal/lexer"
	"github.com/AlexTDWilkinson/Nail-sub000/internal/parser"
	"github.com/AlexTDWilkinson/Nail-sub000/internal/stdlib"
)

func checkSource(t *testing.T, src string) []diag.Diagnostic {
	t.Helper()
	prog, err := parser.Parse(lexer.Lex(src))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return NewChecker(stdlib.Default()).Check(prog)
}

func errorsOf(diags []diag.Diagnostic) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range diags {
		if d.Severity == diag.SeverityError {
			out = append(out, d)
		}
	}
	return out
}

func findMessage(diags []diag.Diagnostic, substr string) *diag.Diagnostic {
	for i, d := range diags {
		if strings.Contains(d.Message, substr) {
			return &diags[i]
		}
	}
	return nil
}

func TestCheck_ValidFunction(t *testing.T) {
	diags := checkSource(t, `fn add(x:i, y:i):i { r x + y; }`)

	if len(errorsOf(diags)) != 0 {
		t.Fatalf("expected no errors, got %+v", diags)
	}
	if len(diags) != 0 {
		t.Fatalf("expected no warnings either, got %+v", diags)
	}
}

func TestCheck_UndefinedVariable(t *testing.T) {
	diags := checkSource(t, `fn f():i { r missing; }`)

	errs := errorsOf(diags)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d: %+v", len(errs), errs)
	}
	if findMessage(errs, "Undefined variable: missing") == nil {
		t.Fatalf("expected undefined variable error, got %+v", errs)
	}
}

func TestCheck_UndefinedFunction(t *testing.T) {
	diags := checkSource(t, `nonexistent();`)

	if findMessage(errorsOf(diags), "Undefined function: nonexistent") == nil {
		t.Fatalf("expected undefined function error, got %+v", diags)
	}
}

func TestCheck_DuplicateSymbolInScope(t *testing.T) {
	diags := checkSource(t, `
fn f():v {
    c x:i = 1;
    c x:i = 2;
}
`)

	errs := errorsOf(diags)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d: %+v", len(errs), errs)
	}
	if findMessage(errs, "Symbol x already defined in this scope") == nil {
		t.Fatalf("expected duplicate symbol error, got %+v", errs)
	}
}

func TestCheck_BindingTypeMismatch(t *testing.T) {
	diags := checkSource(t, "fn f():v { c x:i = `hello`; print(x); }")

	errs := errorsOf(diags)
	if findMessage(errs, "Type mismatch in variable declaration: expected i, got s") == nil {
		t.Fatalf("expected binding mismatch error, got %+v", errs)
	}
}

func TestCheck_MissingReturn(t *testing.T) {
	diags := checkSource(t, `fn f():i { c x:i = 1; print(x); }`)

	if findMessage(errorsOf(diags), "Function f must end with a return statement") == nil {
		t.Fatalf("expected missing return error, got %+v", diags)
	}
}

func TestCheck_FallibleReturnAcceptsBothAlternatives(t *testing.T) {
	diags := checkSource(t, "fn ok(x:i):i!e { r x; }\nfn bad():i!e { r e(`went wrong`); }")

	if len(errorsOf(diags)) != 0 {
		t.Fatalf("expected no errors, got %+v", diags)
	}
}

func TestCheck_NestedStructTypesRejected(t *testing.T) {
	src := `
struct Point { x:i, y:i }
struct Line { a:struct:Point, n:i }
`
	diags := checkSource(t, src)

	errs := errorsOf(diags)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d: %+v", len(errs), errs)
	}
	if findMessage(errs, "Nested struct or enum types are not allowed: struct Line field a") == nil {
		t.Fatalf("expected nesting error naming Line and a, got %+v", errs)
	}
}

func TestCheck_EmptyArrayRejected(t *testing.T) {
	diags := checkSource(t, `fn f():v { c xs:a:i = []; print(xs); }`)

	if findMessage(errorsOf(diags), "Empty array literals are not allowed") == nil {
		t.Fatalf("expected empty array error, got %+v", diags)
	}
}

func TestCheck_HeterogeneousArrayRejected(t *testing.T) {
	diags := checkSource(t, "fn f():v { c xs:a:i = [1, `two`]; print(xs); }")

	if findMessage(errorsOf(diags), "Array elements must all have the same type") == nil {
		t.Fatalf("expected heterogeneous array error, got %+v", diags)
	}
}

func TestCheck_UnknownEnumVariant(t *testing.T) {
	src := `
enum Color { Red, Green }
fn f():v { c x:enum:Color = Color::Blue; print(x); }
`
	diags := checkSource(t, src)

	if findMessage(errorsOf(diags), "Enum Color has no variant Blue") == nil {
		t.Fatalf("expected unknown variant error, got %+v", diags)
	}
}

func TestCheck_DuplicateEnumVariant(t *testing.T) {
	diags := checkSource(t, `enum Color { Red, Red }`)

	if findMessage(errorsOf(diags), "Duplicate variant Red in enum Color") == nil {
		t.Fatalf("expected duplicate variant error, got %+v", diags)
	}
}

func TestCheck_StructLitFieldChecks(t *testing.T) {
	src := "struct Point { x:i, y:i }\nfn f():v { c p:struct:Point = Point { x:1, z:2 }; print(p); }"
	diags := checkSource(t, src)

	if findMessage(errorsOf(diags), "Struct Point has no field z") == nil {
		t.Fatalf("expected unknown field error, got %+v", diags)
	}
}

func TestCheck_UnusedVariableWarning(t *testing.T) {
	diags := checkSource(t, `fn f():v { c x:i = 1; }`)

	if len(errorsOf(diags)) != 0 {
		t.Fatalf("expected no errors, got %+v", diags)
	}
	warn := findMessage(diags, "Unused variable: x")
	if warn == nil {
		t.Fatalf("expected unused variable warning, got %+v", diags)
	}
	if warn.Severity != diag.SeverityWarning {
		t.Fatalf("expected a warning severity, got %q", warn.Severity)
	}
}

func TestCheck_UnusedWarningsAtEveryScope(t *testing.T) {
	src := `
fn f(x:i):v {
    if {
        x > 0 => { c inner:i = 1; },
        else => { print(x); }
    };
}
c top:i = 1;
`
	diags := checkSource(t, src)

	if findMessage(diags, "Unused variable: inner") == nil {
		t.Fatalf("expected warning for block-local binding, got %+v", diags)
	}
	if findMessage(diags, "Unused variable: top") == nil {
		t.Fatalf("expected warning for top-level binding, got %+v", diags)
	}
}

func TestCheck_ParallelSiblingReferenceRejected(t *testing.T) {
	src := `
fn f():v {
    parallel {
        c a:i = 1;
        c b:i = a + 1;
    }
    print(b);
}
`
	diags := checkSource(t, src)

	if findMessage(errorsOf(diags), "Parallel statement may not reference sibling binding a") == nil {
		t.Fatalf("expected parallel dependency error, got %+v", diags)
	}
}

func TestCheck_ParallelIndependentStatementsPass(t *testing.T) {
	src := `
fn f():v {
    parallel {
        c a:s = fs_read(` + "`a.txt`" + `);
        c b:s = fs_read(` + "`b.txt`" + `);
        process_sleep(100);
    }
    print(a);
    print(b);
}
`
	diags := checkSource(t, src)

	if len(errorsOf(diags)) != 0 {
		t.Fatalf("expected no errors, got %+v", diags)
	}
}

func TestCheck_StdlibSignatures(t *testing.T) {
	diags := checkSource(t, "fn f():v { c root:f = math_sqrt(2.0); print(root); }")
	if len(errorsOf(diags)) != 0 {
		t.Fatalf("expected stdlib call to check, got %+v", diags)
	}

	diags = checkSource(t, "fn f():v { c root:f = math_sqrt(`nope`); print(root); }")
	if findMessage(errorsOf(diags), "Type mismatch for argument 1 of math_sqrt") == nil {
		t.Fatalf("expected stdlib argument mismatch, got %+v", diags)
	}

	diags = checkSource(t, "fn f():v { c root:f = math_sqrt(); print(root); }")
	if findMessage(errorsOf(diags), "math_sqrt expects 1 arguments, got 0") == nil {
		t.Fatalf("expected stdlib arity error, got %+v", diags)
	}
}

func TestCheck_UserFunctionArgChecks(t *testing.T) {
	src := "fn add(x:i, y:i):i { r x + y; }\nfn f():v { c s:i = add(1, `two`); print(s); }"
	diags := checkSource(t, src)

	if findMessage(errorsOf(diags), "Type mismatch for argument y of add") == nil {
		t.Fatalf("expected user function argument mismatch, got %+v", diags)
	}
}

func TestCheck_SafeUnwrapsFallibleType(t *testing.T) {
	src := "fn f():v { c body:s = safe(http_get(`http://x`), |err:s|:s { r err; }); print(body); }"
	diags := checkSource(t, src)

	if len(errorsOf(diags)) != 0 {
		t.Fatalf("expected safe to produce the success type, got %+v", diags)
	}
}

func TestCheck_ComparisonPropagatesOperandType(t *testing.T) {
	// Comparisons type as their operand, not as boolean. Pinned on purpose;
	// see the design notes.
	diags := checkSource(t, `fn f(x:i):i { r x < 10; }`)
	if len(errorsOf(diags)) != 0 {
		t.Fatalf("expected comparison to type as its operand, got %+v", diags)
	}

	diags = checkSource(t, `fn g(x:i):b { r x < 10; }`)
	if findMessage(errorsOf(diags), "Type mismatch in return of function g") == nil {
		t.Fatalf("expected boolean-declared return to mismatch, got %+v", diags)
	}
}

func TestCheck_AccumulatesMultipleErrors(t *testing.T) {
	src := "fn f():v { c a:i = `x`; c b:i = missing; print(a); print(b); }"
	diags := checkSource(t, src)

	errs := errorsOf(diags)
	if len(errs) < 2 {
		t.Fatalf("expected at least 2 accumulated errors, got %d: %+v", len(errs), errs)
	}
}

func TestScope_LookupWalksParents(t *testing.T) {
	parent := NewScope(nil)
	parent.Insert(&Symbol{Name: "outer", Type: lexer.TypeDesc{Kind: lexer.TypeInt}})
	child := NewScope(parent)
	child.Insert(&Symbol{Name: "inner", Type: lexer.TypeDesc{Kind: lexer.TypeString}})

	if child.Lookup("outer") == nil {
		t.Fatalf("expected lookup to reach the parent scope")
	}
	if child.Lookup("inner") == nil {
		t.Fatalf("expected lookup to find the local symbol")
	}
	if parent.Lookup("inner") != nil {
		t.Fatalf("expected parent not to see child symbols")
	}
	if child.LookupLocal("outer") != nil {
		t.Fatalf("expected local lookup not to walk parents")
	}
}

func TestScope_InsertRejectsDuplicates(t *testing.T) {
	s := NewScope(nil)
	if !s.Insert(&Symbol{Name: "x"}) {
		t.Fatalf("expected first insert to succeed")
	}
	if s.Insert(&Symbol{Name: "x"}) {
		t.Fatalf("expected duplicate insert to fail")
	}
}
