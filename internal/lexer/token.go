package lexer

// TokenType represents the type of a token
type TokenType string

// Span represents the source location of a token
type Span struct {
	Filename  string // optional source filename for diagnostics
	Line      int    // 1-based start line
	Column    int    // 1-based start column
	EndLine   int    // 1-based end line
	EndColumn int    // 1-based end column (exclusive)
}

// FieldTok is one name/type pair inside a struct declaration token.
type FieldTok struct {
	Name string
	Type TypeDesc
	Span Span
}

// FieldValueTok is one name/value pair inside a struct instantiation token.
// The value is a sub-token sequence produced by the recursive value lexer.
type FieldValueTok struct {
	Name  string
	Value []Token
	Span  Span
}

// RustSegment is one piece of a Rust escape block: either raw target text or
// a spliced Nail sub-expression that was re-lexed recursively.
type RustSegment struct {
	Raw    string
	Tokens []Token // non-nil for splices
}

// Token represents a lexical token. Composite constructs recognized by the
// lexer carry their structure in the payload fields instead of raw text.
type Token struct {
	Type    TokenType
	Literal string
	Span    Span

	// Composite payloads. Which fields are set depends on Type:
	// FUNC_SIG/LAMBDA_SIG/ARRAY use Children; STRUCT_DECL uses Name+Fields;
	// STRUCT_LIT uses Name+FieldValues; ENUM_DECL uses Name+Variants;
	// ENUM_VARIANT uses Name+Variant; RUST_ESCAPE uses Segments;
	// TYPE_DECLARATION/RETURN_DECLARATION use TypeDesc.
	Children    []Token
	Name        string
	Fields      []FieldTok
	FieldValues []FieldValueTok
	Variants    []string
	Variant     string
	Segments    []RustSegment
	TypeDesc    TypeDesc
}

// Token type constants
const (
	// Special tokens
	EOF         TokenType = "EOF"
	LEXER_ERROR TokenType = "LEXER_ERROR" // Literal carries the message

	// Identifiers and literals
	IDENT  TokenType = "IDENT"
	NUMBER TokenType = "NUMBER" // integer or float, decided by '.'
	STRING TokenType = "STRING" // backtick-delimited

	// Operators
	ASSIGN   TokenType = "="
	FATARROW TokenType = "=>"
	PLUS     TokenType = "+"
	MINUS    TokenType = "-"
	BANG     TokenType = "!"
	ASTERISK TokenType = "*"
	SLASH    TokenType = "/"
	AND      TokenType = "&&"
	OR       TokenType = "||"

	LT     TokenType = "<"
	GT     TokenType = ">"
	EQ     TokenType = "=="
	NOT_EQ TokenType = "!="
	LE     TokenType = "<="
	GE     TokenType = ">="

	// Delimiters
	COMMA     TokenType = ","
	SEMICOLON TokenType = ";"
	LPAREN    TokenType = "("
	RPAREN    TokenType = ")"
	LBRACE    TokenType = "{"
	RBRACE    TokenType = "}"

	// Keywords
	IF       TokenType = "IF"
	ELSE     TokenType = "ELSE"
	RETURN   TokenType = "RETURN"
	CONST    TokenType = "CONST"
	VAR      TokenType = "VAR"
	PARALLEL TokenType = "PARALLEL"

	// Composite constructs pre-parsed by the lexer
	FUNC_SIG           TokenType = "FUNC_SIG"
	LAMBDA_SIG         TokenType = "LAMBDA_SIG"
	ARRAY              TokenType = "ARRAY"
	STRUCT_DECL        TokenType = "STRUCT_DECL"
	STRUCT_LIT         TokenType = "STRUCT_LIT"
	ENUM_DECL          TokenType = "ENUM_DECL"
	ENUM_VARIANT       TokenType = "ENUM_VARIANT"
	RUST_ESCAPE        TokenType = "RUST_ESCAPE"
	TYPE_DECLARATION   TokenType = "TYPE_DECLARATION"
	RETURN_DECLARATION TokenType = "RETURN_DECLARATION"
	COMMENT            TokenType = "COMMENT"
)

var keywords = map[string]TokenType{
	"if":       IF,
	"else":     ELSE,
	"r":        RETURN,
	"c":        CONST,
	"v":        VAR,
	"parallel": PARALLEL,
}

// LookupIdent checks if the identifier is a keyword
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsFloatLiteral reports whether a NUMBER token was lexed with a decimal
// point. The distinction is carried through to the AST so the checker does
// not have to re-derive it from text.
func (t Token) IsFloatLiteral() bool {
	for _, r := range t.Literal {
		if r == '.' {
			return true
		}
	}
	return false
}
