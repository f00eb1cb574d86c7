package parser

import (
	"github.com/AlexTDWilkinson/Nail-sub000/internal/ast"
	"github.com/AlexTDWilkinson/Nail-sub000/internal/lexer"
)

// Binary operator precedence, lowest first. Unary operators bind tighter
// than any binary operator.
const (
	precLowest     = 0
	precOr         = 0
	precAnd        = 1
	precEquality   = 2
	precComparison = 3
	precSum        = 4
	precProduct    = 5
	precUnary      = 6
)

var binaryPrecedence = map[lexer.TokenType]int{
	lexer.OR:       precOr,
	lexer.AND:      precAnd,
	lexer.EQ:       precEquality,
	lexer.NOT_EQ:   precEquality,
	lexer.LT:       precComparison,
	lexer.LE:       precComparison,
	lexer.GT:       precComparison,
	lexer.GE:       precComparison,
	lexer.PLUS:     precSum,
	lexer.MINUS:    precSum,
	lexer.ASTERISK: precProduct,
	lexer.SLASH:    precProduct,
}

// parseExpression implements left-associative precedence climbing: parse one
// primary expression, then keep consuming binary operators whose precedence
// is at or above the floor, recursing with precedence+1 for the right side.
func (p *Parser) parseExpression(minPrec int) ast.Expr {
	left := p.parsePrimary()
	if left == nil {
		return nil
	}

	for {
		prec, isBinary := binaryPrecedence[p.curTok.Type]
		if !isBinary || prec < minPrec {
			return left
		}
		opTok := p.curTok
		p.advance()

		right := p.parseExpression(prec + 1)
		if right == nil {
			return nil
		}
		left = ast.NewBinaryExpr(left, opTok.Type, right, mergeSpan(left.Span(), right.Span()))
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	switch p.curTok.Type {
	case lexer.LEXER_ERROR:
		p.failf(p.curTok.Span, "lexer error: %s", p.curTok.Literal)
		return nil

	case lexer.LPAREN:
		p.advance()
		expr := p.parseExpression(precLowest)
		if expr == nil {
			return nil
		}
		p.expect(lexer.RPAREN)
		if p.err != nil {
			return nil
		}
		return expr

	case lexer.NUMBER:
		tok := p.curTok
		p.advance()
		return ast.NewNumberLit(tok.Literal, tok.IsFloatLiteral(), tok.Span)

	case lexer.STRING:
		tok := p.curTok
		p.advance()
		return ast.NewStringLit(tok.Literal, tok.Span)

	case lexer.IDENT:
		tok := p.curTok
		if p.peekTok.Type == lexer.LPAREN {
			return p.parseCall(tok)
		}
		p.advance()
		return ast.NewIdent(tok.Literal, tok.Span)

	case lexer.ENUM_VARIANT:
		tok := p.curTok
		p.advance()
		return ast.NewEnumVariant(tok.Name, tok.Variant, tok.Span)

	case lexer.ARRAY:
		tok := p.curTok
		p.advance()
		return p.convertArrayToken(tok)

	case lexer.STRUCT_LIT:
		tok := p.curTok
		p.advance()
		return p.convertStructLitToken(tok)

	case lexer.LAMBDA_SIG:
		return p.parseLambda()

	case lexer.IF:
		return p.parseIfExpr()

	case lexer.BANG, lexer.MINUS:
		opTok := p.curTok
		p.advance()
		operand := p.parseExpression(precUnary)
		if operand == nil {
			return nil
		}
		return ast.NewUnaryExpr(opTok.Type, operand, mergeSpan(opTok.Span, operand.Span()))

	case lexer.EOF:
		p.failf(p.curTok.Span, "unexpected end of input in expression")
		return nil

	default:
		p.failf(p.curTok.Span, "unexpected token '%s' in expression", p.curTok.Type)
		return nil
	}
}

func (p *Parser) parseCall(nameTok lexer.Token) ast.Expr {
	p.advance() // move to '('
	p.advance() // past '('

	var args []ast.Expr
	for p.curTok.Type != lexer.RPAREN && p.err == nil {
		arg := p.parseExpression(precLowest)
		if arg == nil {
			return nil
		}
		args = append(args, arg)
		if p.curTok.Type == lexer.COMMA {
			p.advance()
		} else if p.curTok.Type != lexer.RPAREN {
			p.failf(p.curTok.Span, "expected ',' or ')' in argument list")
			return nil
		}
	}
	end := p.curTok.Span
	p.expect(lexer.RPAREN)
	if p.err != nil {
		return nil
	}
	return ast.NewCallExpr(nameTok.Literal, args, mergeSpan(nameTok.Span, end))
}

func (p *Parser) parseLambda() ast.Expr {
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
	return ast.NewLambdaDecl(params, ret, body, mergeSpan(tok.Span, body.Span()))
}

func (p *Parser) parseIfExpr() ast.Expr {
	branches, els, span, ok := p.parseIfBranches()
	if !ok {
		return nil
	}
	return ast.NewIfExpr(branches, els, span)
}

// convertArrayToken translates an ARRAY token's already-lexed element tokens
// into AST expressions without consuming parser input.
func (p *Parser) convertArrayToken(tok lexer.Token) ast.Expr {
	var elems []ast.Expr
	for _, child := range tok.Children {
		elem := p.convertValueToken(child)
		if elem == nil {
			return nil
		}
		elems = append(elems, elem)
	}
	return ast.NewArrayLit(elems, tok.Span)
}

// convertStructLitToken translates a STRUCT_LIT token's field payload into
// an AST expression. Like convertArrayToken it is non-consuming: the lexer
// already recognized the shape, the parser only builds nodes.
func (p *Parser) convertStructLitToken(tok lexer.Token) ast.Expr {
	var fields []ast.StructLitField
	for _, f := range tok.FieldValues {
		if len(f.Value) != 1 {
			p.failf(f.Span, "malformed value for field %s in %s", f.Name, tok.Name)
			return nil
		}
		value := p.convertValueToken(f.Value[0])
		if value == nil {
			return nil
		}
		fields = append(fields, ast.StructLitField{Name: f.Name, Value: value})
	}
	return ast.NewStructLit(tok.Name, fields, tok.Span)
}

// convertValueToken maps one structured value token to its AST node.
func (p *Parser) convertValueToken(tok lexer.Token) ast.Expr {
	switch tok.Type {
	case lexer.NUMBER:
		return ast.NewNumberLit(tok.Literal, tok.IsFloatLiteral(), tok.Span)
	case lexer.STRING:
		return ast.NewStringLit(tok.Literal, tok.Span)
	case lexer.IDENT:
		return ast.NewIdent(tok.Literal, tok.Span)
	case lexer.ENUM_VARIANT:
		return ast.NewEnumVariant(tok.Name, tok.Variant, tok.Span)
	case lexer.ARRAY:
		return p.convertArrayToken(tok)
	case lexer.STRUCT_LIT:
		return p.convertStructLitToken(tok)
	case lexer.LEXER_ERROR:
		p.failf(tok.Span, "lexer error: %s", tok.Literal)
		return nil
	default:
		p.failf(tok.Span, "unexpected token '%s' in value position", tok.Type)
		return nil
	}
}
