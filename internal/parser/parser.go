package parser

import (
	"fmt"

	"github.com/AlexTDWilkinson/Nail-sub000/internal/ast"
	"github.com/AlexTDWilkinson/Nail-sub000/internal/diag"
	"github.com/AlexTDWilkinson/Nail-sub000/internal/lexer"
)

// ParseError is the fatal error aborting a parse. The parser fails fast: the
// first structurally invalid token sequence stops the run and no partial AST
// is returned.
type ParseError struct {
	Message string
	Span    lexer.Span
	AtEOF   bool
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Span.Line, e.Span.Column, e.Message)
}

// ToDiagnostic converts the parse error into the shared diagnostic structure.
func (e *ParseError) ToDiagnostic() diag.Diagnostic {
	code := diag.CodeParseUnexpectedToken
	if e.AtEOF {
		code = diag.CodeParseUnexpectedEOF
	}
	return diag.Diagnostic{
		Stage:    diag.StageParser,
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

// Parser consumes a pre-lexed token sequence with one token of lookahead.
// curTok is the token under examination, peekTok the next one; both are only
// mutated via advance so the lookahead window stays consistent.
type Parser struct {
	tokens []lexer.Token
	pos    int

	curTok  lexer.Token
	peekTok lexer.Token

	err *ParseError
}

// New returns a parser over the given token sequence. The sequence is
// expected to end with an EOF token, as produced by lexer.Lex.
func New(tokens []lexer.Token) *Parser {
	p := &Parser{tokens: tokens, pos: -1}
	// Seed curTok/peekTok.
	p.advance()
	p.advance()
	return p
}

// Parse lexes nothing and checks nothing: it builds an AST from the token
// sequence or returns the first structural error.
func Parse(tokens []lexer.Token) (*ast.Program, error) {
	p := New(tokens)
	prog := p.parseProgram()
	if p.err != nil {
		return nil, p.err
	}
	return prog, nil
}

// advance moves the token window forward, skipping comment tokens; comments
// carry no syntactic weight past the lexer.
func (p *Parser) advance() {
	p.curTok = p.peekTok
	for {
		p.pos++
		if p.pos >= len(p.tokens) {
			p.peekTok = lexer.Token{Type: lexer.EOF}
			return
		}
		if p.tokens[p.pos].Type == lexer.COMMENT {
			continue
		}
		p.peekTok = p.tokens[p.pos]
		return
	}
}

// failf records the first fatal error. Later failures are discarded; by then
// the parse is already aborted.
func (p *Parser) failf(span lexer.Span, format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	p.err = &ParseError{
		Message: fmt.Sprintf(format, args...),
		Span:    span,
		AtEOF:   p.curTok.Type == lexer.EOF,
	}
}

// expect asserts the current token type and consumes it.
func (p *Parser) expect(tt lexer.TokenType) lexer.Token {
	if p.curTok.Type != tt {
		p.failf(p.curTok.Span, "expected '%s', got '%s'", tt, p.curTok.Type)
		return lexer.Token{}
	}
	tok := p.curTok
	p.advance()
	return tok
}

func (p *Parser) parseProgram() *ast.Program {
	prog := ast.NewProgram(p.curTok.Span)
	for p.curTok.Type != lexer.EOF && p.err == nil {
		stmt := p.parseStatement()
		if stmt != nil {
			prog.Stmts = append(prog.Stmts, stmt)
		}
	}
	prog.SetSpan(mergeSpan(prog.Span(), p.curTok.Span))
	return prog
}

// parseStatement dispatches on the current token's kind. Composite
// declaration tokens arrive pre-structured from the lexer and only need
// translation here.
func (p *Parser) parseStatement() ast.Stmt {
	switch p.curTok.Type {
	case lexer.LEXER_ERROR:
		p.failf(p.curTok.Span, "lexer error: %s", p.curTok.Literal)
		return nil
	case lexer.STRUCT_DECL:
		return p.parseStructDecl()
	case lexer.ENUM_DECL:
		return p.parseEnumDecl()
	case lexer.FUNC_SIG:
		return p.parseFnDecl()
	case lexer.CONST:
		return p.parseBindingDecl(true)
	case lexer.VAR:
		return p.parseBindingDecl(false)
	case lexer.IF:
		return p.parseIfStmt()
	case lexer.RETURN:
		return p.parseReturnStmt()
	case lexer.PARALLEL:
		return p.parseParallelBlock()
	case lexer.RUST_ESCAPE:
		return p.parseRustEscape()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseStructDecl() ast.Stmt {
	tok := p.curTok
	p.advance()
	p.consumeOptionalSemicolon()

	fields := make([]ast.StructField, 0, len(tok.Fields))
	for _, f := range tok.Fields {
		fields = append(fields, ast.StructField{Name: f.Name, Type: f.Type, Span: f.Span})
	}
	return ast.NewStructDecl(tok.Name, fields, tok.Span)
}

func (p *Parser) parseEnumDecl() ast.Stmt {
	tok := p.curTok
	p.advance()
	p.consumeOptionalSemicolon()
	return ast.NewEnumDecl(tok.Name, tok.Variants, tok.Span)
}

func (p *Parser) parseFnDecl() ast.Stmt {
	tok := p.curTok
	p.advance()

	params, ret, ok := p.convertSignature(tok)
	if !ok {
		return nil
	}

	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return ast.NewFnDecl(tok.Name, params, ret, body, mergeSpan(tok.Span, body.Span()))
}

// convertSignature translates a FUNC_SIG or LAMBDA_SIG token's children,
// alternating IDENT/TYPE_DECLARATION pairs ending with a RETURN_DECLARATION,
// into parameter nodes and a return type.
func (p *Parser) convertSignature(tok lexer.Token) ([]*ast.Param, lexer.TypeDesc, bool) {
	children := tok.Children
	if len(children) == 0 || children[len(children)-1].Type != lexer.RETURN_DECLARATION {
		p.failf(tok.Span, "malformed signature: missing return type")
		return nil, lexer.TypeDesc{}, false
	}
	ret := children[len(children)-1].TypeDesc
	children = children[:len(children)-1]

	if len(children)%2 != 0 {
		p.failf(tok.Span, "malformed signature: unbalanced parameter list")
		return nil, lexer.TypeDesc{}, false
	}

	var params []*ast.Param
	for i := 0; i < len(children); i += 2 {
		nameTok, typeTok := children[i], children[i+1]
		if nameTok.Type != lexer.IDENT || typeTok.Type != lexer.TYPE_DECLARATION {
			p.failf(tok.Span, "malformed signature: expected parameter name and type")
			return nil, lexer.TypeDesc{}, false
		}
		params = append(params, ast.NewParam(nameTok.Literal, typeTok.TypeDesc, nameTok.Span))
	}
	return params, ret, true
}

func (p *Parser) parseBindingDecl(isConst bool) ast.Stmt {
	declTok := p.curTok
	p.advance()

	nameTok := p.expect(lexer.IDENT)
	typeTok := p.expect(lexer.TYPE_DECLARATION)
	p.expect(lexer.ASSIGN)
	if p.err != nil {
		return nil
	}

	value := p.parseExpression(precLowest)
	if value == nil {
		return nil
	}
	p.expect(lexer.SEMICOLON)
	if p.err != nil {
		return nil
	}

	span := mergeSpan(declTok.Span, value.Span())
	if isConst {
		return ast.NewConstDecl(nameTok.Literal, typeTok.TypeDesc, value, span)
	}
	return ast.NewVarDecl(nameTok.Literal, typeTok.TypeDesc, value, span)
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	tok := p.curTok
	p.advance()

	value := p.parseExpression(precLowest)
	if value == nil {
		return nil
	}
	p.expect(lexer.SEMICOLON)
	if p.err != nil {
		return nil
	}
	return ast.NewReturnStmt(value, mergeSpan(tok.Span, value.Span()))
}

// parseIfBranches reads the shared multi-branch body of an if construct:
// `{ cond => block, cond => block, else => block }`.
func (p *Parser) parseIfBranches() ([]ast.Branch, *ast.Block, lexer.Span, bool) {
	start := p.curTok.Span
	p.expect(lexer.IF)
	p.expect(lexer.LBRACE)
	if p.err != nil {
		return nil, nil, start, false
	}

	var branches []ast.Branch
	var els *ast.Block

	for p.curTok.Type != lexer.RBRACE && p.err == nil {
		if p.curTok.Type == lexer.ELSE {
			p.advance()
			p.expect(lexer.FATARROW)
			if p.err != nil {
				return nil, nil, start, false
			}
			els = p.parseBlock()
			if els == nil {
				return nil, nil, start, false
			}
		} else {
			cond := p.parseExpression(precLowest)
			if cond == nil {
				return nil, nil, start, false
			}
			p.expect(lexer.FATARROW)
			if p.err != nil {
				return nil, nil, start, false
			}
			block := p.parseBlock()
			if block == nil {
				return nil, nil, start, false
			}
			branches = append(branches, ast.Branch{Cond: cond, Block: block})
		}

		if p.curTok.Type == lexer.COMMA {
			p.advance()
		}
	}

	end := p.curTok.Span
	p.expect(lexer.RBRACE)
	if p.err != nil {
		return nil, nil, start, false
	}
	return branches, els, mergeSpan(start, end), true
}

func (p *Parser) parseIfStmt() ast.Stmt {
	branches, els, span, ok := p.parseIfBranches()
	if !ok {
		return nil
	}
	p.consumeOptionalSemicolon()
	return ast.NewIfStmt(branches, els, span)
}

func (p *Parser) parseParallelBlock() ast.Stmt {
	start := p.curTok.Span
	p.advance()
	p.expect(lexer.LBRACE)
	if p.err != nil {
		return nil
	}

	var stmts []ast.Stmt
	for p.curTok.Type != lexer.RBRACE && p.curTok.Type != lexer.EOF && p.err == nil {
		stmt := p.parseStatement()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	end := p.curTok.Span
	p.expect(lexer.RBRACE)
	p.consumeOptionalSemicolon()
	if p.err != nil {
		return nil
	}
	return ast.NewParallelBlock(stmts, mergeSpan(start, end))
}

func (p *Parser) parseRustEscape() ast.Stmt {
	tok := p.curTok
	p.advance()
	p.consumeOptionalSemicolon()

	var segments []ast.RustEscapeSegment
	for _, seg := range tok.Segments {
		if seg.Tokens == nil {
			segments = append(segments, ast.RustEscapeSegment{Raw: seg.Raw})
			continue
		}
		// Splices were re-lexed by the main lexer; parse them as ordinary
		// expressions over a bounded sub-sequence.
		sub := append(append([]lexer.Token(nil), seg.Tokens...), lexer.Token{Type: lexer.EOF})
		subParser := New(sub)
		expr := subParser.parseExpression(precLowest)
		if subParser.err != nil {
			p.failf(tok.Span, "invalid splice in rust escape: %s", subParser.err.Message)
			return nil
		}
		segments = append(segments, ast.RustEscapeSegment{Expr: expr})
	}
	return ast.NewRustEscape(segments, tok.Span)
}

func (p *Parser) parseExprStmt() ast.Stmt {
	start := p.curTok.Span
	value := p.parseExpression(precLowest)
	if value == nil {
		return nil
	}
	p.expect(lexer.SEMICOLON)
	if p.err != nil {
		return nil
	}
	return ast.NewExprStmt(value, mergeSpan(start, value.Span()))
}

// parseBlock reads `{ stmt* }` with the generic statement routine.
func (p *Parser) parseBlock() *ast.Block {
	start := p.curTok.Span
	p.expect(lexer.LBRACE)
	if p.err != nil {
		return nil
	}

	var stmts []ast.Stmt
	for p.curTok.Type != lexer.RBRACE && p.curTok.Type != lexer.EOF && p.err == nil {
		stmt := p.parseStatement()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	end := p.curTok.Span
	p.expect(lexer.RBRACE)
	if p.err != nil {
		return nil
	}
	return ast.NewBlock(stmts, mergeSpan(start, end))
}

func (p *Parser) consumeOptionalSemicolon() {
	if p.curTok.Type == lexer.SEMICOLON {
		p.advance()
	}
}

// mergeSpan returns a span covering both inputs. Callers pass the earlier
// span first so node spans grow monotonically.
func mergeSpan(start, end lexer.Span) lexer.Span {
	span := start
	if span.Filename == "" {
		span.Filename = end.Filename
	}
	if span.Line == 0 && end.Line != 0 {
		span.Line = end.Line
		span.Column = end.Column
	}
	if end.EndLine > span.EndLine ||
		(end.EndLine == span.EndLine && end.EndColumn > span.EndColumn) {
		span.EndLine = end.EndLine
		span.EndColumn = end.EndColumn
	}
	return span
}
