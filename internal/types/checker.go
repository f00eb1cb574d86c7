package types

import (
	"fmt"

	"github.com/AlexTDWilkinson/Nail-sub000/internal/ast"
	"github.com/AlexTDWilkinson/Nail-sub000/internal/diag"
	"github.com/AlexTDWilkinson/Nail-sub000/internal/lexer"
	"github.com/AlexTDWilkinson/Nail-sub000/internal/stdlib"
)

// Checker performs type checking on the AST. Unlike the parser it does not
// fail fast: semantic errors are independent of each other, so all
// diagnostics from one run are accumulated and returned together.
type Checker struct {
	registry *stdlib.Registry
	scope    *Scope

	structs map[string]*ast.StructDecl
	enums   map[string]*ast.EnumDecl
	fns     map[string]*ast.FnDecl

	Diags []diag.Diagnostic
}

// NewChecker creates a type checker using the given stdlib registry.
func NewChecker(registry *stdlib.Registry) *Checker {
	return &Checker{
		registry: registry,
		scope:    NewScope(nil),
		structs:  make(map[string]*ast.StructDecl),
		enums:    make(map[string]*ast.EnumDecl),
		fns:      make(map[string]*ast.FnDecl),
	}
}

// Check validates the program and returns all accumulated diagnostics.
// Hard errors make the check fail; unused-symbol warnings do not.
func (c *Checker) Check(prog *ast.Program) []diag.Diagnostic {
	// Pass 1: collect top-level declarations so bodies can reference
	// functions and types declared later in the file.
	c.collectDecls(prog)

	// Pass 2: check everything.
	for _, stmt := range prog.Stmts {
		c.checkStmt(stmt)
	}

	// Final pass over the still-live scope stack. Function scopes already
	// reported their unused symbols when they were popped.
	c.reportUnused(c.scope)

	return c.Diags
}

func (c *Checker) errorf(span lexer.Span, code diag.Code, format string, args ...interface{}) {
	c.Diags = append(c.Diags, diag.Diagnostic{
		Stage:    diag.StageTypeCheck,
		Severity: diag.SeverityError,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Span:     toDiagSpan(span),
	})
}

func (c *Checker) warnf(span lexer.Span, code diag.Code, format string, args ...interface{}) {
	c.Diags = append(c.Diags, diag.Diagnostic{
		Stage:    diag.StageTypeCheck,
		Severity: diag.SeverityWarning,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Span:     toDiagSpan(span),
	})
}

func toDiagSpan(span lexer.Span) diag.Span {
	return diag.Span{
		Filename:  span.Filename,
		Line:      span.Line,
		Column:    span.Column,
		EndLine:   span.EndLine,
		EndColumn: span.EndColumn,
	}
}

func (c *Checker) collectDecls(prog *ast.Program) {
	for _, stmt := range prog.Stmts {
		switch d := stmt.(type) {
		case *ast.FnDecl:
			if _, exists := c.fns[d.Name]; exists {
				c.errorf(d.Span(), diag.CodeTypeDuplicateSymbol, "Function %s already defined", d.Name)
				continue
			}
			c.fns[d.Name] = d
		case *ast.StructDecl:
			if _, exists := c.structs[d.Name]; exists {
				c.errorf(d.Span(), diag.CodeTypeDuplicateSymbol, "Struct %s already defined", d.Name)
				continue
			}
			c.structs[d.Name] = d
		case *ast.EnumDecl:
			if _, exists := c.enums[d.Name]; exists {
				c.errorf(d.Span(), diag.CodeTypeDuplicateSymbol, "Enum %s already defined", d.Name)
				continue
			}
			c.enums[d.Name] = d
		}
	}
}

func (c *Checker) pushScope() {
	c.scope = NewScope(c.scope)
}

// popScope reports unused symbols of the innermost scope before dropping
// it. Accumulating at every pop means unused locals inside function bodies
// are caught, not only bindings in scopes still live at the end.
func (c *Checker) popScope() {
	c.reportUnused(c.scope)
	c.scope = c.scope.Parent
}

func (c *Checker) reportUnused(scope *Scope) {
	for _, sym := range scope.InOrder() {
		if !sym.Used {
			c.warnf(sym.Span, diag.CodeTypeUnusedSymbol, "Unused variable: %s", sym.Name)
		}
	}
}

// checkStmt checks one statement and returns the static type of its
// expression when it has one (used for return-type verification).
func (c *Checker) checkStmt(stmt ast.Stmt) lexer.TypeDesc {
	switch s := stmt.(type) {
	case *ast.ConstDecl:
		c.checkBinding(s.Name, s.Type, s.Value, false, s.Span())
	case *ast.VarDecl:
		c.checkBinding(s.Name, s.Type, s.Value, true, s.Span())
	case *ast.FnDecl:
		c.checkFnDecl(s)
	case *ast.StructDecl:
		c.checkStructDecl(s)
	case *ast.EnumDecl:
		c.checkEnumDecl(s)
	case *ast.IfStmt:
		// Every condition and every branch is checked unconditionally.
		for _, br := range s.Branches {
			c.checkExpr(br.Cond)
			c.checkBlock(br.Block)
		}
		if s.Else != nil {
			c.checkBlock(s.Else)
		}
	case *ast.Block:
		c.checkBlock(s)
	case *ast.ReturnStmt:
		return c.checkExpr(s.Value)
	case *ast.ParallelBlock:
		c.checkParallelBlock(s)
	case *ast.RustEscape:
		for _, seg := range s.Segments {
			if seg.Expr != nil {
				c.checkExpr(seg.Expr)
			}
		}
	case *ast.ExprStmt:
		return c.checkExpr(s.Value)
	}
	return lexer.TypeDesc{}
}

func (c *Checker) checkBinding(name string, declared lexer.TypeDesc, value ast.Expr, mutable bool, span lexer.Span) {
	actual := c.checkExpr(value)
	if isKnown(actual) && !assignable(declared, actual) {
		c.errorf(span, diag.CodeTypeMismatch,
			"Type mismatch in variable declaration: expected %s, got %s", declared, actual)
	}
	ok := c.scope.Insert(&Symbol{
		Name:    name,
		Type:    declared,
		Mutable: mutable,
		Span:    span,
	})
	if !ok {
		c.errorf(span, diag.CodeTypeDuplicateSymbol, "Symbol %s already defined in this scope", name)
	}
}

func (c *Checker) checkBlock(block *ast.Block) lexer.TypeDesc {
	c.pushScope()
	defer c.popScope()

	var last lexer.TypeDesc
	for _, stmt := range block.Stmts {
		last = c.checkStmt(stmt)
	}
	return last
}

// checkFnDecl checks a function body in a fresh scope with its parameters
// registered, then verifies the body ends in a return whose type matches
// the declared return type. Void functions are exempt from the trailing
// return requirement.
func (c *Checker) checkFnDecl(fn *ast.FnDecl) {
	c.pushScope()
	for _, param := range fn.Params {
		ok := c.scope.Insert(&Symbol{
			Name: param.Name,
			Type: param.Type,
			Span: param.Span(),
		})
		if !ok {
			c.errorf(param.Span(), diag.CodeTypeDuplicateSymbol, "Symbol %s already defined in this scope", param.Name)
		}
	}

	var last lexer.TypeDesc
	for _, stmt := range fn.Body.Stmts {
		last = c.checkStmt(stmt)
	}

	if fn.ReturnType.Kind != lexer.TypeVoid {
		n := len(fn.Body.Stmts)
		if n == 0 {
			c.errorf(fn.Span(), diag.CodeTypeMissingReturn, "Function %s must end with a return statement", fn.Name)
		} else if _, isReturn := fn.Body.Stmts[n-1].(*ast.ReturnStmt); !isReturn {
			c.errorf(fn.Body.Stmts[n-1].Span(), diag.CodeTypeMissingReturn, "Function %s must end with a return statement", fn.Name)
		} else if isKnown(last) && !returnAssignable(fn.ReturnType, last) {
			c.errorf(fn.Body.Stmts[n-1].Span(), diag.CodeTypeMismatch,
				"Type mismatch in return of function %s: expected %s, got %s", fn.Name, fn.ReturnType, last)
		}
	}

	c.popScope()
}

func (c *Checker) checkStructDecl(d *ast.StructDecl) {
	for _, field := range d.Fields {
		switch field.Type.Kind {
		case lexer.TypeStruct, lexer.TypeEnum:
			// Composition by value is forbidden; nesting must go through
			// named references outside the struct.
			c.errorf(field.Span, diag.CodeTypeInvalidNesting,
				"Nested struct or enum types are not allowed: struct %s field %s", d.Name, field.Name)
		}
	}
}

func (c *Checker) checkEnumDecl(d *ast.EnumDecl) {
	seen := make(map[string]bool)
	for _, variant := range d.Variants {
		if seen[variant] {
			c.errorf(d.Span(), diag.CodeTypeDuplicateVariant,
				"Duplicate variant %s in enum %s", variant, d.Name)
		}
		seen[variant] = true
	}
}

// checkParallelBlock verifies that no statement in the block references a
// binding introduced by a sibling statement: the join transformation is only
// correct when the units are independent.
func (c *Checker) checkParallelBlock(block *ast.ParallelBlock) {
	bound := make(map[string]bool)
	for _, stmt := range block.Stmts {
		if name, ok := bindingName(stmt); ok {
			bound[name] = true
		}
	}

	for _, stmt := range block.Stmts {
		ownName, hasName := bindingName(stmt)
		for _, ident := range stmtIdents(stmt) {
			if bound[ident] && (!hasName || ident != ownName) {
				c.errorf(stmt.Span(), diag.CodeTypeParallelDependency,
					"Parallel statement may not reference sibling binding %s", ident)
			}
		}
		c.checkStmt(stmt)
	}
}

func bindingName(stmt ast.Stmt) (string, bool) {
	switch s := stmt.(type) {
	case *ast.ConstDecl:
		return s.Name, true
	case *ast.VarDecl:
		return s.Name, true
	default:
		return "", false
	}
}

func stmtIdents(stmt ast.Stmt) []string {
	switch s := stmt.(type) {
	case *ast.ConstDecl:
		return exprIdents(s.Value)
	case *ast.VarDecl:
		return exprIdents(s.Value)
	case *ast.ExprStmt:
		return exprIdents(s.Value)
	default:
		return nil
	}
}

func exprIdents(expr ast.Expr) []string {
	switch e := expr.(type) {
	case *ast.Ident:
		return []string{e.Name}
	case *ast.BinaryExpr:
		return append(exprIdents(e.Left), exprIdents(e.Right)...)
	case *ast.UnaryExpr:
		return exprIdents(e.Operand)
	case *ast.CallExpr:
		var out []string
		for _, arg := range e.Args {
			out = append(out, exprIdents(arg)...)
		}
		return out
	case *ast.ArrayLit:
		var out []string
		for _, elem := range e.Elems {
			out = append(out, exprIdents(elem)...)
		}
		return out
	case *ast.StructLit:
		var out []string
		for _, f := range e.Fields {
			out = append(out, exprIdents(f.Value)...)
		}
		return out
	default:
		return nil
	}
}

// checkExpr computes an expression's static type bottom-up, reporting
// errors along the way. An unknown result means "could not determine";
// callers skip comparisons against unknown types.
func (c *Checker) checkExpr(expr ast.Expr) lexer.TypeDesc {
	switch e := expr.(type) {
	case *ast.NumberLit:
		if e.IsFloat {
			return lexer.TypeDesc{Kind: lexer.TypeFloat}
		}
		return lexer.TypeDesc{Kind: lexer.TypeInt}

	case *ast.StringLit:
		return lexer.TypeDesc{Kind: lexer.TypeString}

	case *ast.Ident:
		sym := c.scope.Lookup(e.Name)
		if sym == nil {
			c.errorf(e.Span(), diag.CodeTypeUndefinedIdentifier, "Undefined variable: %s", e.Name)
			return lexer.TypeDesc{}
		}
		sym.Used = true
		return sym.Type

	case *ast.BinaryExpr:
		lt := c.checkExpr(e.Left)
		rt := c.checkExpr(e.Right)
		if isKnown(lt) && isKnown(rt) && !lt.Equal(rt) {
			c.errorf(e.Span(), diag.CodeTypeMismatch,
				"Type mismatch in binary operation: %s %s %s", lt, e.Op, rt)
		}
		// Comparisons propagate the operand type, same as arithmetic. The
		// checker tests pin this down; see the design notes before changing.
		return lt

	case *ast.UnaryExpr:
		return c.checkExpr(e.Operand)

	case *ast.ArrayLit:
		return c.checkArrayLit(e)

	case *ast.StructLit:
		return c.checkStructLit(e)

	case *ast.EnumVariant:
		decl, ok := c.enums[e.Enum]
		if !ok {
			c.errorf(e.Span(), diag.CodeTypeUndefinedIdentifier, "Undefined enum: %s", e.Enum)
			return lexer.TypeDesc{}
		}
		found := false
		for _, v := range decl.Variants {
			if v == e.Variant {
				found = true
				break
			}
		}
		if !found {
			c.errorf(e.Span(), diag.CodeTypeUndefinedIdentifier, "Enum %s has no variant %s", e.Enum, e.Variant)
		}
		return lexer.TypeDesc{Kind: lexer.TypeEnum, Name: e.Enum}

	case *ast.CallExpr:
		return c.checkCall(e)

	case *ast.LambdaDecl:
		c.pushScope()
		for _, param := range e.Params {
			c.scope.Insert(&Symbol{Name: param.Name, Type: param.Type, Span: param.Span()})
		}
		for _, stmt := range e.Body.Stmts {
			c.checkStmt(stmt)
		}
		c.popScope()
		return lexer.TypeDesc{}

	case *ast.IfExpr:
		var first lexer.TypeDesc
		for i, br := range e.Branches {
			c.checkExpr(br.Cond)
			t := c.checkBlock(br.Block)
			if i == 0 {
				first = t
			}
		}
		if e.Else != nil {
			c.checkBlock(e.Else)
		}
		return first

	default:
		// Node kinds without an explicit case fall through without raising;
		// the checker is deliberately partial here.
		return lexer.TypeDesc{}
	}
}

func (c *Checker) checkArrayLit(e *ast.ArrayLit) lexer.TypeDesc {
	if len(e.Elems) == 0 {
		c.errorf(e.Span(), diag.CodeTypeInvalidArray, "Empty array literals are not allowed")
		return lexer.TypeDesc{}
	}
	// The first element's type is the reference type for all others.
	ref := c.checkExpr(e.Elems[0])
	for _, elem := range e.Elems[1:] {
		t := c.checkExpr(elem)
		if isKnown(ref) && isKnown(t) && !ref.Equal(t) {
			c.errorf(elem.Span(), diag.CodeTypeInvalidArray,
				"Array elements must all have the same type: expected %s, got %s", ref, t)
		}
	}
	return arrayOf(ref)
}

func (c *Checker) checkStructLit(e *ast.StructLit) lexer.TypeDesc {
	decl, ok := c.structs[e.Name]
	if !ok {
		c.errorf(e.Span(), diag.CodeTypeUndefinedIdentifier, "Undefined struct: %s", e.Name)
		return lexer.TypeDesc{Kind: lexer.TypeStruct, Name: e.Name}
	}

	declared := make(map[string]lexer.TypeDesc, len(decl.Fields))
	for _, f := range decl.Fields {
		declared[f.Name] = f.Type
	}

	for _, f := range e.Fields {
		want, known := declared[f.Name]
		if !known {
			c.errorf(e.Span(), diag.CodeTypeUndefinedIdentifier,
				"Struct %s has no field %s", e.Name, f.Name)
			continue
		}
		got := c.checkExpr(f.Value)
		if isKnown(got) && !assignable(want, got) {
			c.errorf(e.Span(), diag.CodeTypeMismatch,
				"Type mismatch for field %s of %s: expected %s, got %s", f.Name, e.Name, want, got)
		}
	}
	return lexer.TypeDesc{Kind: lexer.TypeStruct, Name: e.Name}
}

// checkCall types a function call. The error-handling primitives are not
// ordinary calls and are handled before user functions and the stdlib.
func (c *Checker) checkCall(e *ast.CallExpr) lexer.TypeDesc {
	switch e.Name {
	case "e":
		if len(e.Args) != 1 {
			c.errorf(e.Span(), diag.CodeTypeMismatch, "e expects exactly one message argument")
			return lexer.TypeDesc{Kind: lexer.TypeError}
		}
		t := c.checkExpr(e.Args[0])
		if isKnown(t) && t.Kind != lexer.TypeString {
			c.errorf(e.Args[0].Span(), diag.CodeTypeMismatch, "e expects a string message, got %s", t)
		}
		return lexer.TypeDesc{Kind: lexer.TypeError}

	case "safe":
		if len(e.Args) != 2 {
			c.errorf(e.Span(), diag.CodeTypeMismatch, "safe expects a fallible expression and a handler")
			return lexer.TypeDesc{}
		}
		t := c.checkExpr(e.Args[0])
		c.checkExpr(e.Args[1])
		if success, ok := t.FailAlternative(); ok {
			return success
		}
		return t

	case "dangerous", "expect":
		if len(e.Args) != 1 {
			c.errorf(e.Span(), diag.CodeTypeMismatch, "%s expects exactly one argument", e.Name)
			return lexer.TypeDesc{}
		}
		t := c.checkExpr(e.Args[0])
		if success, ok := t.FailAlternative(); ok {
			return success
		}
		return t
	}

	argTypes := make([]lexer.TypeDesc, len(e.Args))
	for i, arg := range e.Args {
		argTypes[i] = c.checkExpr(arg)
	}

	if fn, ok := c.fns[e.Name]; ok {
		if len(e.Args) != len(fn.Params) {
			c.errorf(e.Span(), diag.CodeTypeMismatch,
				"Function %s expects %d arguments, got %d", e.Name, len(fn.Params), len(e.Args))
			return fn.ReturnType
		}
		for i, param := range fn.Params {
			if isKnown(argTypes[i]) && !assignable(param.Type, argTypes[i]) {
				c.errorf(e.Args[i].Span(), diag.CodeTypeMismatch,
					"Type mismatch for argument %s of %s: expected %s, got %s", param.Name, e.Name, param.Type, argTypes[i])
			}
		}
		return fn.ReturnType
	}

	if sig, ok := c.registry.LookupType(e.Name); ok {
		if len(sig.Params) != len(e.Args) {
			c.errorf(e.Span(), diag.CodeTypeMismatch,
				"Function %s expects %d arguments, got %d", e.Name, len(sig.Params), len(e.Args))
			return sig.Return
		}
		for i, want := range sig.Params {
			if isKnown(want) && isKnown(argTypes[i]) && !assignable(want, argTypes[i]) {
				c.errorf(e.Args[i].Span(), diag.CodeTypeMismatch,
					"Type mismatch for argument %d of %s: expected %s, got %s", i+1, e.Name, want, argTypes[i])
			}
		}
		return sig.Return
	}

	c.errorf(e.Span(), diag.CodeTypeUndefinedIdentifier, "Undefined function: %s", e.Name)
	return lexer.TypeDesc{}
}

func isKnown(d lexer.TypeDesc) bool {
	return d.Kind != lexer.TypeUnknown
}

// assignable reports whether a value of the actual type can initialize a
// binding of the declared type. Union-typed declarations accept any of
// their alternatives.
func assignable(declared, actual lexer.TypeDesc) bool {
	if declared.Equal(actual) {
		return true
	}
	if declared.Kind == lexer.TypeAny {
		for _, alt := range declared.Alts {
			if alt.Equal(actual) {
				return true
			}
		}
	}
	return false
}

// returnAssignable is assignable plus the fallible special case: a function
// declared `T!e` may return a T or an error construction.
func returnAssignable(declared, actual lexer.TypeDesc) bool {
	if assignable(declared, actual) {
		return true
	}
	if actual.Kind == lexer.TypeError {
		_, fallible := declared.FailAlternative()
		return fallible
	}
	return false
}

func arrayOf(elem lexer.TypeDesc) lexer.TypeDesc {
	switch elem.Kind {
	case lexer.TypeInt:
		return lexer.TypeDesc{Kind: lexer.TypeArrayInt}
	case lexer.TypeFloat:
		return lexer.TypeDesc{Kind: lexer.TypeArrayFloat}
	case lexer.TypeString:
		return lexer.TypeDesc{Kind: lexer.TypeArrayString}
	case lexer.TypeBoolean:
		return lexer.TypeDesc{Kind: lexer.TypeArrayBoolean}
	case lexer.TypeStruct:
		return lexer.TypeDesc{Kind: lexer.TypeArrayStruct, Name: elem.Name}
	case lexer.TypeEnum:
		return lexer.TypeDesc{Kind: lexer.TypeArrayEnum, Name: elem.Name}
	default:
		return lexer.TypeDesc{}
	}
}
