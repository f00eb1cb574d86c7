package diag

import "fmt"

// Stage identifies which compiler phase produced the diagnostic.
type Stage string

const (
	StageLexer     Stage = "lexer"
	StageParser    Stage = "parser"
	StageTypeCheck Stage = "typecheck"
	StageCodegen   Stage = "codegen"
)

// Severity captures how impactful the diagnostic is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
)

// Code is a stable identifier for a diagnostic.
type Code string

const (
	// Lexer errors
	CodeLexerUnterminatedString Code = "LEXER_UNTERMINATED_STRING"
	CodeLexerUnterminatedEscape Code = "LEXER_UNTERMINATED_ESCAPE"
	CodeLexerMalformedConstruct Code = "LEXER_MALFORMED_CONSTRUCT"
	CodeLexerIllegalRune        Code = "LEXER_ILLEGAL_RUNE"

	// Parser errors
	CodeParseUnexpectedToken Code = "PARSE_UNEXPECTED_TOKEN"
	CodeParseUnexpectedEOF   Code = "PARSE_UNEXPECTED_EOF"

	// Type checker errors
	CodeTypeUndefinedIdentifier Code = "TYPE_UNDEFINED_IDENTIFIER"
	CodeTypeMismatch            Code = "TYPE_MISMATCH"
	CodeTypeDuplicateSymbol     Code = "TYPE_DUPLICATE_SYMBOL"
	CodeTypeInvalidNesting      Code = "TYPE_INVALID_NESTING"
	CodeTypeDuplicateVariant    Code = "TYPE_DUPLICATE_VARIANT"
	CodeTypeInvalidArray        Code = "TYPE_INVALID_ARRAY"
	CodeTypeMissingReturn       Code = "TYPE_MISSING_RETURN"
	CodeTypeParallelDependency  Code = "TYPE_PARALLEL_DEPENDENCY"
	CodeTypeUnusedSymbol        Code = "TYPE_UNUSED_SYMBOL"

	// Codegen errors
	CodeGenUnsupportedNode Code = "CODEGEN_UNSUPPORTED_NODE"
	CodeGenUnsupportedType Code = "CODEGEN_UNSUPPORTED_TYPE"
)

// Span represents a location in source code.
type Span struct {
	Filename  string
	Line      int
	Column    int
	EndLine   int
	EndColumn int
}

// String returns a human-readable representation of the span.
func (s Span) String() string {
	if s.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", s.Filename, s.Line, s.Column)
	}
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// IsValid returns true if the span has valid location information.
func (s Span) IsValid() bool {
	return s.Line > 0 && s.Column > 0
}

// Diagnostic is a compiler diagnostic surfaced to end-users.
type Diagnostic struct {
	Stage    Stage
	Severity Severity
	Code     Code
	Message  string
	Span     Span
}

// HasErrors reports whether any diagnostic in the slice is a hard error.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
