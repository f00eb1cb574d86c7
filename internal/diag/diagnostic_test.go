package diag_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/AlexTDWilkinson/Nail-sub000/internal/diag"
	"github.com/AlexTDWilkinson/Nail-sub000/internal/lexer"
)

func TestFromLexerError(t *testing.T) {
	err := lexer.LexerError{
		Kind:    lexer.ErrUnterminatedString,
		Message: "unterminated string literal",
		Span: lexer.Span{
			Line:      1,
			Column:    3,
			EndLine:   1,
			EndColumn: 7,
		},
	}

	diagnostic := err.ToDiagnostic()

	if diagnostic.Stage != diag.StageLexer {
		t.Fatalf("expected stage %q, got %q", diag.StageLexer, diagnostic.Stage)
	}
	if diagnostic.Code != diag.CodeLexerUnterminatedString {
		t.Fatalf("expected code %q, got %q", diag.CodeLexerUnterminatedString, diagnostic.Code)
	}
	if diagnostic.Message != err.Message {
		t.Fatalf("expected message %q, got %q", err.Message, diagnostic.Message)
	}
	if diagnostic.Severity != diag.SeverityError {
		t.Fatalf("expected severity %q, got %q", diag.SeverityError, diagnostic.Severity)
	}

	wantSpan := diag.Span{
		Line:      err.Span.Line,
		Column:    err.Span.Column,
		EndLine:   err.Span.EndLine,
		EndColumn: err.Span.EndColumn,
	}
	if diagnostic.Span != wantSpan {
		t.Fatalf("expected span %+v, got %+v", wantSpan, diagnostic.Span)
	}
}

func TestSpanString(t *testing.T) {
	s := diag.Span{Filename: "main.nail", Line: 3, Column: 7}
	if s.String() != "main.nail:3:7" {
		t.Fatalf("expected 'main.nail:3:7', got %q", s.String())
	}

	s = diag.Span{Line: 3, Column: 7}
	if s.String() != "3:7" {
		t.Fatalf("expected '3:7', got %q", s.String())
	}
}

func TestHasErrors(t *testing.T) {
	diags := []diag.Diagnostic{
		{Severity: diag.SeverityWarning},
		{Severity: diag.SeverityNote},
	}
	if diag.HasErrors(diags) {
		t.Fatalf("warnings alone must not count as errors")
	}

	diags = append(diags, diag.Diagnostic{Severity: diag.SeverityError})
	if !diag.HasErrors(diags) {
		t.Fatalf("expected errors to be detected")
	}
}

func TestFormatter_SourceLineAndCaret(t *testing.T) {
	var buf bytes.Buffer
	f := diag.NewFormatterTo(&buf)
	f.SetSource("main.nail", "c x:i = `oops;\nc y:i = 2;")

	f.Format(diag.Diagnostic{
		Severity: diag.SeverityError,
		Message:  "unterminated string literal",
		Span: diag.Span{
			Filename:  "main.nail",
			Line:      1,
			Column:    9,
			EndLine:   1,
			EndColumn: 15,
		},
	})

	out := buf.String()
	if !strings.Contains(out, "main.nail:1:9: error: unterminated string literal") {
		t.Fatalf("header wrong:\n%s", out)
	}
	if !strings.Contains(out, "c x:i = `oops;") {
		t.Fatalf("expected source line in output:\n%s", out)
	}
	if !strings.Contains(out, "        ^^^^^^") {
		t.Fatalf("expected caret run under the span:\n%s", out)
	}
}

func TestFormatter_NoSpanFallsBack(t *testing.T) {
	var buf bytes.Buffer
	f := diag.NewFormatterTo(&buf)

	f.Format(diag.Diagnostic{Severity: diag.SeverityError, Message: "boom"})

	if buf.String() != "error: boom\n" {
		t.Fatalf("expected plain fallback line, got %q", buf.String())
	}
}
