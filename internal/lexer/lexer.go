package lexer

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/AlexTDWilkinson/Nail-sub000/internal/diag"
)

type LexerErrorKind int

const (
	ErrUnterminatedString LexerErrorKind = iota
	ErrUnterminatedEscape
	ErrMalformedConstruct
	ErrIllegalRune
)

type LexerError struct {
	Kind    LexerErrorKind
	Message string
	Span    Span
}

func (k LexerErrorKind) diagnosticCode() diag.Code {
	switch k {
	case ErrUnterminatedString:
		return diag.CodeLexerUnterminatedString
	case ErrUnterminatedEscape:
		return diag.CodeLexerUnterminatedEscape
	case ErrMalformedConstruct:
		return diag.CodeLexerMalformedConstruct
	case ErrIllegalRune:
		return diag.CodeLexerIllegalRune
	default:
		return diag.Code("LEXER_UNKNOWN_ERROR")
	}
}

// ToDiagnostic converts a lexer error into a shared diagnostic structure.
func (e LexerError) ToDiagnostic() diag.Diagnostic {
	return diag.Diagnostic{
		Stage:    diag.StageLexer,
		Severity: diag.SeverityError,
		Code:     e.Kind.diagnosticCode(),
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

// Lexer represents the lexer state. Composite constructs (function
// signatures, arrays, struct/enum declarations and instantiations, Rust
// escapes) are recognized here with bounded lookahead, so the parser only
// sees structured tokens.
type Lexer struct {
	input    []rune
	pos      int  // index of the current rune
	ch       rune // current rune (0 = EOF)
	line     int  // current line number (1-based)
	column   int  // current column number (1-based)
	limit    int  // exclusive end; virtual EOF for recursive sub-lexes
	filename string

	Errors []LexerError
}

// New creates a new lexer for the given input.
func New(input string) *Lexer {
	r := []rune(input)
	l := &Lexer{
		input:  r,
		pos:    -1, // start before first rune
		ch:     0,
		line:   1,
		column: 0, // will be 1 after first read()
		limit:  len(r),
	}
	l.read() // move to first character
	return l
}

// SetFilename attributes all emitted spans to the provided filename.
func (l *Lexer) SetFilename(name string) {
	l.filename = name
}

// Lex runs a lexer over the whole input and returns every token including
// the trailing EOF. It never fails: malformed regions surface as
// LEXER_ERROR tokens in the stream.
func Lex(input string) []Token {
	l := New(input)
	return l.Tokens()
}

// Tokens drains the lexer, returning all tokens including the trailing EOF.
func (l *Lexer) Tokens() []Token {
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks
		}
	}
}

// read advances the lexer to the next character, keeping line/column in sync.
// The same counter is threaded through every recursive sub-lex, so spans stay
// globally accurate inside spliced Rust escapes.
func (l *Lexer) read() {
	l.pos++
	prevPos := l.pos - 1

	if prevPos >= 0 && prevPos < len(l.input) && l.input[prevPos] == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}

	if l.pos >= l.limit {
		l.ch = 0
		return
	}
	l.ch = l.input[l.pos]
}

// peek returns the next character without advancing
func (l *Lexer) peek() rune {
	if l.pos+1 >= l.limit {
		return 0
	}
	return l.input[l.pos+1]
}

// peekAt returns the character n positions ahead without advancing.
func (l *Lexer) peekAt(n int) rune {
	if l.pos+n >= l.limit {
		return 0
	}
	return l.input[l.pos+n]
}

// mark captures the cursor so a speculative lookahead can be undone. The
// index into the immutable rune buffer makes snapshot/restore cheap.
type mark struct {
	pos, line, column int
	ch                rune
}

func (l *Lexer) snapshot() mark {
	return mark{pos: l.pos, line: l.line, column: l.column, ch: l.ch}
}

func (l *Lexer) restore(m mark) {
	l.pos = m.pos
	l.line = m.line
	l.column = m.column
	l.ch = m.ch
}

// syncCh re-reads the current rune after the limit has been adjusted.
func (l *Lexer) syncCh() {
	if l.pos >= 0 && l.pos < l.limit {
		l.ch = l.input[l.pos]
	} else {
		l.ch = 0
	}
}

func (l *Lexer) spanFrom(startLine, startColumn int) Span {
	return Span{
		Filename:  l.filename,
		Line:      startLine,
		Column:    startColumn,
		EndLine:   l.line,
		EndColumn: l.column,
	}
}

func (l *Lexer) makeToken(tokType TokenType, literal string, startLine, startColumn int) Token {
	return Token{
		Type:    tokType,
		Literal: literal,
		Span:    l.spanFrom(startLine, startColumn),
	}
}

// errorToken records a lexer error and returns the inline LEXER_ERROR token.
// Lexing continues with the next character, so a single pass always
// terminates and always produces a token sequence.
func (l *Lexer) errorToken(kind LexerErrorKind, msg string, startLine, startColumn int) Token {
	tok := l.makeToken(LEXER_ERROR, msg, startLine, startColumn)
	l.Errors = append(l.Errors, LexerError{Kind: kind, Message: msg, Span: tok.Span})
	return tok
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.read()
	}
}

// readWord reads an identifier-shaped run of characters.
func (l *Lexer) readWord() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.read()
	}
	return string(l.input[start:l.pos])
}

// readNumber reads a numeric literal. Integer vs float is decided solely by
// the presence of a single '.'; no exponent notation.
func (l *Lexer) readNumber() string {
	start := l.pos
	if l.ch == '-' {
		l.read()
	}
	for isDigit(l.ch) {
		l.read()
	}
	if l.ch == '.' && isDigit(l.peek()) {
		l.read() // consume '.'
		for isDigit(l.ch) {
			l.read()
		}
	}
	return string(l.input[start:l.pos])
}

// NextToken returns the next token from the input. The dispatch order
// mirrors the lookahead priority of the language: Rust escape, comment,
// function signature, lambda, array, string, type annotation, enum/struct
// declarations, struct instantiation, enum variant reference, identifier,
// number, and finally plain operators and punctuation.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	startLine, startColumn := l.line, l.column

	switch {
	case l.ch == 0:
		if startColumn == 0 {
			startColumn = 1
		}
		return l.makeToken(EOF, "", startLine, startColumn)

	case l.ch == '#' && l.peek() == '{':
		return l.lexRustEscape(startLine, startColumn)

	case l.ch == '/' && l.peek() == '/':
		return l.lexComment(startLine, startColumn)

	case l.ch == '|':
		// `||` followed by ':' opens an empty-parameter lambda signature;
		// `||` alone is the or-operator; a single '|' starts a lambda.
		if l.peek() == '|' && l.peekAt(2) != ':' {
			l.read()
			l.read()
			return l.makeToken(OR, "||", startLine, startColumn)
		}
		return l.lexLambdaSig(startLine, startColumn)

	case l.ch == '[':
		return l.lexArray(startLine, startColumn)

	case l.ch == '`':
		return l.lexString(startLine, startColumn)

	case l.ch == ':':
		l.read()
		desc, ok := l.lexTypeDesc()
		if !ok {
			return l.errorToken(ErrMalformedConstruct, "malformed type annotation", startLine, startColumn)
		}
		tok := l.makeToken(TYPE_DECLARATION, desc.String(), startLine, startColumn)
		tok.TypeDesc = desc
		return tok

	case l.ch == '-' && isDigit(l.peek()):
		literal := l.readNumber()
		return l.makeToken(NUMBER, literal, startLine, startColumn)

	case isDigit(l.ch):
		literal := l.readNumber()
		return l.makeToken(NUMBER, literal, startLine, startColumn)

	case isLetter(l.ch):
		word := l.readWord()
		switch word {
		case "fn":
			return l.lexFuncSig(startLine, startColumn)
		case "struct":
			return l.lexStructDecl(startLine, startColumn)
		case "enum":
			return l.lexEnumDecl(startLine, startColumn)
		}
		if tokType := LookupIdent(word); tokType != IDENT {
			return l.makeToken(tokType, word, startLine, startColumn)
		}
		if isCapitalized(word) {
			if l.ch == ':' && l.peek() == ':' {
				return l.lexEnumVariant(word, startLine, startColumn)
			}
			if tok, ok := l.tryStructLit(word, startLine, startColumn); ok {
				return tok
			}
		}
		return l.makeToken(IDENT, word, startLine, startColumn)

	default:
		return l.lexOperator(startLine, startColumn)
	}
}

func (l *Lexer) lexOperator(startLine, startColumn int) Token {
	two := string(l.ch) + string(l.peek())
	switch two {
	case "==", "!=", "<=", ">=", "=>", "&&", "||":
		l.read()
		l.read()
		return l.makeToken(TokenType(two), two, startLine, startColumn)
	}

	single := map[rune]TokenType{
		'=': ASSIGN, '+': PLUS, '-': MINUS, '!': BANG, '*': ASTERISK,
		'/': SLASH, '<': LT, '>': GT, ',': COMMA, ';': SEMICOLON,
		'(': LPAREN, ')': RPAREN, '{': LBRACE, '}': RBRACE,
	}
	if tokType, ok := single[l.ch]; ok {
		raw := string(l.ch)
		l.read()
		return l.makeToken(tokType, raw, startLine, startColumn)
	}

	raw := string(l.ch)
	l.read()
	return l.errorToken(ErrIllegalRune, "illegal character "+strconv.Quote(raw), startLine, startColumn)
}

func (l *Lexer) lexComment(startLine, startColumn int) Token {
	start := l.pos
	for l.ch != '\n' && l.ch != 0 {
		l.read()
	}
	raw := string(l.input[start:l.pos])
	return l.makeToken(COMMENT, raw, startLine, startColumn)
}

// lexString reads a backtick-delimited string literal. Strings may span
// multiple lines; line/column tracking continues through embedded newlines.
func (l *Lexer) lexString(startLine, startColumn int) Token {
	l.read() // consume opening backtick
	var value []rune
	for {
		if l.ch == 0 {
			return l.errorToken(ErrUnterminatedString, "unterminated string literal", startLine, startColumn)
		}
		if l.ch == '`' {
			l.read() // consume closing backtick
			return l.makeToken(STRING, string(value), startLine, startColumn)
		}
		value = append(value, l.ch)
		l.read()
	}
}

// lexTypeDesc reads a type descriptor after its ':' has been consumed.
func (l *Lexer) lexTypeDesc() (TypeDesc, bool) {
	base, ok := l.lexTypeBase()
	if !ok {
		return TypeDesc{}, false
	}
	// `!e` suffix marks the fallible result union.
	if l.ch == '!' && l.peek() == 'e' {
		l.read()
		l.read()
		return Fallible(base), true
	}
	return base, true
}

func (l *Lexer) lexTypeBase() (TypeDesc, bool) {
	if !isLetter(l.ch) {
		return TypeDesc{}, false
	}
	word := l.readWord()
	switch word {
	case "i":
		return TypeDesc{Kind: TypeInt}, true
	case "f":
		return TypeDesc{Kind: TypeFloat}, true
	case "s":
		return TypeDesc{Kind: TypeString}, true
	case "b":
		return TypeDesc{Kind: TypeBoolean}, true
	case "v":
		return TypeDesc{Kind: TypeVoid}, true
	case "e":
		return TypeDesc{Kind: TypeError}, true
	case "a":
		if l.ch != ':' {
			return TypeDesc{}, false
		}
		l.read()
		elem, ok := l.lexTypeBase()
		if !ok {
			return TypeDesc{}, false
		}
		switch elem.Kind {
		case TypeInt:
			return TypeDesc{Kind: TypeArrayInt}, true
		case TypeFloat:
			return TypeDesc{Kind: TypeArrayFloat}, true
		case TypeString:
			return TypeDesc{Kind: TypeArrayString}, true
		case TypeBoolean:
			return TypeDesc{Kind: TypeArrayBoolean}, true
		case TypeStruct:
			return TypeDesc{Kind: TypeArrayStruct, Name: elem.Name}, true
		case TypeEnum:
			return TypeDesc{Kind: TypeArrayEnum, Name: elem.Name}, true
		default:
			return TypeDesc{}, false
		}
	case "struct":
		if l.ch != ':' {
			return TypeDesc{}, false
		}
		l.read()
		name := l.readWord()
		if name == "" {
			return TypeDesc{}, false
		}
		return TypeDesc{Kind: TypeStruct, Name: name}, true
	case "enum":
		if l.ch != ':' {
			return TypeDesc{}, false
		}
		l.read()
		name := l.readWord()
		if name == "" {
			return TypeDesc{}, false
		}
		return TypeDesc{Kind: TypeEnum, Name: name}, true
	default:
		return TypeDesc{}, false
	}
}

// lexFuncSig reads a whole function signature after the `fn` keyword:
// name, parameter name/type pairs and the return type. The body's opening
// brace is left for the parser.
func (l *Lexer) lexFuncSig(startLine, startColumn int) Token {
	l.skipWhitespace()
	if !isLetter(l.ch) {
		return l.errorToken(ErrMalformedConstruct, "malformed function signature: expected function name", startLine, startColumn)
	}
	name := l.readWord()

	children, ok := l.lexParamList('(', ')')
	if !ok {
		return l.errorToken(ErrMalformedConstruct, "malformed function signature for "+name, startLine, startColumn)
	}

	ret, ok := l.lexReturnDecl()
	if !ok {
		return l.errorToken(ErrMalformedConstruct, "malformed return type for "+name, startLine, startColumn)
	}
	children = append(children, ret)

	tok := l.makeToken(FUNC_SIG, name, startLine, startColumn)
	tok.Name = name
	tok.Children = children
	return tok
}

// lexLambdaSig reads `|p:T, q:T|:R` into a single token.
func (l *Lexer) lexLambdaSig(startLine, startColumn int) Token {
	children, ok := l.lexParamList('|', '|')
	if !ok {
		return l.errorToken(ErrMalformedConstruct, "malformed lambda signature", startLine, startColumn)
	}

	ret, ok := l.lexReturnDecl()
	if !ok {
		return l.errorToken(ErrMalformedConstruct, "malformed lambda return type", startLine, startColumn)
	}
	children = append(children, ret)

	tok := l.makeToken(LAMBDA_SIG, "", startLine, startColumn)
	tok.Children = children
	return tok
}

// lexParamList reads open, then comma-separated name:type pairs, then close.
// Each pair becomes an IDENT token followed by a TYPE_DECLARATION token.
func (l *Lexer) lexParamList(open, close rune) ([]Token, bool) {
	l.skipWhitespace()
	if l.ch != open {
		return nil, false
	}
	l.read()

	var children []Token
	for {
		l.skipWhitespace()
		if l.ch == close {
			l.read()
			return children, true
		}
		if !isLetter(l.ch) {
			return nil, false
		}
		pLine, pCol := l.line, l.column
		pname := l.readWord()
		children = append(children, l.makeToken(IDENT, pname, pLine, pCol))

		if l.ch != ':' {
			return nil, false
		}
		tLine, tCol := l.line, l.column
		l.read()
		desc, ok := l.lexTypeDesc()
		if !ok {
			return nil, false
		}
		typeTok := l.makeToken(TYPE_DECLARATION, desc.String(), tLine, tCol)
		typeTok.TypeDesc = desc
		children = append(children, typeTok)

		l.skipWhitespace()
		switch l.ch {
		case ',':
			l.read()
		case close:
			// handled at loop top
		default:
			return nil, false
		}
	}
}

func (l *Lexer) lexReturnDecl() (Token, bool) {
	l.skipWhitespace()
	if l.ch != ':' {
		return Token{}, false
	}
	rLine, rCol := l.line, l.column
	l.read()
	desc, ok := l.lexTypeDesc()
	if !ok {
		return Token{}, false
	}
	tok := l.makeToken(RETURN_DECLARATION, desc.String(), rLine, rCol)
	tok.TypeDesc = desc
	return tok, true
}

// lexArray reads a whole array literal into one token. Element lexing is
// recursive through lexValue, so nested arrays and struct instantiations
// come back fully structured.
func (l *Lexer) lexArray(startLine, startColumn int) Token {
	l.read() // consume '['
	var elems []Token
	for {
		l.skipWhitespace()
		if l.ch == ']' {
			l.read()
			tok := l.makeToken(ARRAY, "", startLine, startColumn)
			tok.Children = elems
			return tok
		}
		if l.ch == 0 {
			return l.errorToken(ErrMalformedConstruct, "unterminated array literal", startLine, startColumn)
		}
		elem := l.lexValue()
		elems = append(elems, elem)
		if elem.Type == LEXER_ERROR {
			return l.errorToken(ErrMalformedConstruct, "malformed array element", startLine, startColumn)
		}
		l.skipWhitespace()
		switch l.ch {
		case ',':
			l.read()
		case ']':
			// handled at loop top
		default:
			return l.errorToken(ErrMalformedConstruct, "expected ',' or ']' in array literal", startLine, startColumn)
		}
	}
}

// lexValue lexes exactly one value token: a literal, identifier, nested
// array, struct instantiation or enum variant reference.
func (l *Lexer) lexValue() Token {
	l.skipWhitespace()
	startLine, startColumn := l.line, l.column

	switch {
	case l.ch == '`':
		return l.lexString(startLine, startColumn)
	case l.ch == '[':
		return l.lexArray(startLine, startColumn)
	case isDigit(l.ch), l.ch == '-' && isDigit(l.peek()):
		return l.makeToken(NUMBER, l.readNumber(), startLine, startColumn)
	case isLetter(l.ch):
		word := l.readWord()
		if isCapitalized(word) {
			if l.ch == ':' && l.peek() == ':' {
				return l.lexEnumVariant(word, startLine, startColumn)
			}
			if tok, ok := l.tryStructLit(word, startLine, startColumn); ok {
				return tok
			}
		}
		return l.makeToken(IDENT, word, startLine, startColumn)
	default:
		raw := string(l.ch)
		l.read()
		return l.errorToken(ErrMalformedConstruct, "unexpected character "+strconv.Quote(raw)+" in value position", startLine, startColumn)
	}
}

// tryStructLit checks, via a cheap snapshot, whether a capitalized
// identifier is immediately followed (after whitespace) by '{', which makes
// it a struct instantiation rather than a bare identifier.
func (l *Lexer) tryStructLit(name string, startLine, startColumn int) (Token, bool) {
	m := l.snapshot()
	l.skipWhitespace()
	if l.ch != '{' {
		l.restore(m)
		return Token{}, false
	}
	l.read() // consume '{'

	var fields []FieldValueTok
	for {
		l.skipWhitespace()
		if l.ch == '}' {
			l.read()
			tok := l.makeToken(STRUCT_LIT, name, startLine, startColumn)
			tok.Name = name
			tok.FieldValues = fields
			return tok, true
		}
		if !isLetter(l.ch) {
			return l.errorToken(ErrMalformedConstruct, "malformed struct instantiation of "+name, startLine, startColumn), true
		}
		fLine, fCol := l.line, l.column
		fname := l.readWord()
		if l.ch != ':' {
			return l.errorToken(ErrMalformedConstruct, "expected ':' after field "+fname+" in "+name, startLine, startColumn), true
		}
		l.read()
		value := l.lexValue()
		if value.Type == LEXER_ERROR {
			return value, true
		}
		fields = append(fields, FieldValueTok{
			Name:  fname,
			Value: []Token{value},
			Span:  l.spanFrom(fLine, fCol),
		})
		l.skipWhitespace()
		switch l.ch {
		case ',':
			l.read()
		case '}':
			// handled at loop top
		default:
			return l.errorToken(ErrMalformedConstruct, "expected ',' or '}' in struct instantiation of "+name, startLine, startColumn), true
		}
	}
}

// lexEnumVariant reads `Name::Variant` with the enum name already consumed.
func (l *Lexer) lexEnumVariant(name string, startLine, startColumn int) Token {
	l.read() // consume first ':'
	l.read() // consume second ':'
	if !isLetter(l.ch) {
		return l.errorToken(ErrMalformedConstruct, "expected variant name after "+name+"::", startLine, startColumn)
	}
	variant := l.readWord()
	tok := l.makeToken(ENUM_VARIANT, name+"::"+variant, startLine, startColumn)
	tok.Name = name
	tok.Variant = variant
	return tok
}

// lexStructDecl reads `struct Name { field:T, ... }` into one token.
func (l *Lexer) lexStructDecl(startLine, startColumn int) Token {
	l.skipWhitespace()
	if !isLetter(l.ch) {
		return l.errorToken(ErrMalformedConstruct, "expected struct name", startLine, startColumn)
	}
	name := l.readWord()
	l.skipWhitespace()
	if l.ch != '{' {
		return l.errorToken(ErrMalformedConstruct, "expected '{' after struct "+name, startLine, startColumn)
	}
	l.read()

	var fields []FieldTok
	for {
		l.skipWhitespace()
		if l.ch == '}' {
			l.read()
			tok := l.makeToken(STRUCT_DECL, name, startLine, startColumn)
			tok.Name = name
			tok.Fields = fields
			return tok
		}
		if !isLetter(l.ch) {
			return l.errorToken(ErrMalformedConstruct, "malformed field in struct "+name, startLine, startColumn)
		}
		fLine, fCol := l.line, l.column
		fname := l.readWord()
		if l.ch != ':' {
			return l.errorToken(ErrMalformedConstruct, "expected ':' after field "+fname+" in struct "+name, startLine, startColumn)
		}
		l.read()
		desc, ok := l.lexTypeDesc()
		if !ok {
			return l.errorToken(ErrMalformedConstruct, "malformed type for field "+fname+" in struct "+name, startLine, startColumn)
		}
		fields = append(fields, FieldTok{Name: fname, Type: desc, Span: l.spanFrom(fLine, fCol)})
		l.skipWhitespace()
		switch l.ch {
		case ',':
			l.read()
		case '}':
			// handled at loop top
		default:
			return l.errorToken(ErrMalformedConstruct, "expected ',' or '}' in struct "+name, startLine, startColumn)
		}
	}
}

// lexEnumDecl reads `enum Name { A, B, C }` into one token.
func (l *Lexer) lexEnumDecl(startLine, startColumn int) Token {
	l.skipWhitespace()
	if !isLetter(l.ch) {
		return l.errorToken(ErrMalformedConstruct, "expected enum name", startLine, startColumn)
	}
	name := l.readWord()
	l.skipWhitespace()
	if l.ch != '{' {
		return l.errorToken(ErrMalformedConstruct, "expected '{' after enum "+name, startLine, startColumn)
	}
	l.read()

	var variants []string
	for {
		l.skipWhitespace()
		if l.ch == '}' {
			l.read()
			tok := l.makeToken(ENUM_DECL, name, startLine, startColumn)
			tok.Name = name
			tok.Variants = variants
			return tok
		}
		if !isLetter(l.ch) {
			return l.errorToken(ErrMalformedConstruct, "malformed variant in enum "+name, startLine, startColumn)
		}
		variants = append(variants, l.readWord())
		l.skipWhitespace()
		switch l.ch {
		case ',':
			l.read()
		case '}':
			// handled at loop top
		default:
			return l.errorToken(ErrMalformedConstruct, "expected ',' or '}' in enum "+name, startLine, startColumn)
		}
	}
}

// lexRustEscape reads `#{ raw target text ${ nail expr } more raw }#` into a
// single token whose segments alternate raw text and spliced sub-token
// sequences. Splices re-enter the main lexer recursively over a bounded
// region of the same buffer, so the single running line/column counter stays
// accurate across the recursion.
func (l *Lexer) lexRustEscape(startLine, startColumn int) Token {
	l.read() // consume '#'
	l.read() // consume '{'

	var segments []RustSegment
	var raw strings.Builder

	flush := func() {
		if raw.Len() > 0 {
			segments = append(segments, RustSegment{Raw: raw.String()})
			raw.Reset()
		}
	}

	for {
		if l.ch == 0 {
			return l.errorToken(ErrUnterminatedEscape, "unterminated rust escape block", startLine, startColumn)
		}
		if l.ch == '}' && l.peek() == '#' {
			flush()
			l.read() // consume '}'
			l.read() // consume '#'
			tok := l.makeToken(RUST_ESCAPE, "", startLine, startColumn)
			tok.Segments = segments
			return tok
		}
		if l.ch == '$' && l.peek() == '{' {
			flush()
			l.read() // consume '$'
			l.read() // consume '{'

			// Find the splice terminator without consuming: the matching
			// close brace at depth zero. Braces inside the splice's own
			// constructs (struct instantiations) and inside backtick
			// strings do not terminate it.
			end := l.pos
			depth := 0
			inString := false
		scan:
			for end < l.limit {
				switch {
				case inString:
					if l.input[end] == '`' {
						inString = false
					}
				case l.input[end] == '`':
					inString = true
				case l.input[end] == '{':
					depth++
				case l.input[end] == '}':
					if depth == 0 {
						break scan
					}
					depth--
				}
				end++
			}
			if end >= l.limit {
				return l.errorToken(ErrUnterminatedEscape, "unterminated splice in rust escape block", startLine, startColumn)
			}

			// Re-enter the main lexer over the bounded splice region.
			outerLimit := l.limit
			l.limit = end
			l.syncCh()
			var spliced []Token
			for {
				tok := l.NextToken()
				if tok.Type == EOF {
					break
				}
				spliced = append(spliced, tok)
			}
			l.limit = outerLimit
			l.pos = end
			l.syncCh()
			l.read() // consume '}'

			segments = append(segments, RustSegment{Tokens: spliced})
			continue
		}
		raw.WriteRune(l.ch)
		l.read()
	}
}

func isLetter(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isDigit(ch rune) bool {
	// Numeric literals are restricted to ASCII digits.
	return ch >= '0' && ch <= '9'
}

func isCapitalized(word string) bool {
	if word == "" {
		return false
	}
	r := []rune(word)[0]
	return unicode.IsUpper(r)
}
