package compiler

import "fmt"

// ParseError reports a syntax failure with its source position.
type ParseError struct {
	Msg string
	Pos Pos
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: %s", e.Pos, e.Msg)
}

// ParseSource tokenizes and parses source text in one step.
func ParseSource(src string) (*Program, error) {
	tokens, err := Lex(src)
	if err != nil {
		return nil, err
	}
	return Parse(tokens)
}

// Parse builds the AST for a token stream produced by Lex.
func Parse(tokens []Token) (*Program, error) {
	p := &parser{tokens: tokens}
	prog, err := p.parseProgram()
	if err != nil {
		return nil, err
	}
	return prog, nil
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return Token{Type: TokenEOF}
}

func (p *parser) peekAt(n int) Token {
	if p.pos+n < len(p.tokens) {
		return p.tokens[p.pos+n]
	}
	return Token{Type: TokenEOF}
}

func (p *parser) next() Token {
	t := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func (p *parser) at(tt TokenType) bool {
	return p.peek().Type == tt
}

func (p *parser) accept(tt TokenType) bool {
	if p.at(tt) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(tt TokenType) (Token, error) {
	t := p.peek()
	if t.Type != tt {
		return t, p.errorf(t, "expected %s, found %s", tt, t)
	}
	p.pos++
	return t, nil
}

func (p *parser) errorf(t Token, format string, args ...any) error {
	return &ParseError{Msg: fmt.Sprintf(format, args...), Pos: t.Pos}
}

// ---------------------------------------------------------------------------
// Blocks and statements
// ---------------------------------------------------------------------------

func (p *parser) parseProgram() (*Program, error) {
	// The lexer emits a layout token for the first line.
	for p.accept(TokenNewline) {
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	for p.accept(TokenNewline) || p.accept(TokenDedent) {
	}
	if !p.at(TokenEOF) {
		return nil, p.errorf(p.peek(), "unexpected %s", p.peek())
	}
	return &Program{Body: body}, nil
}

// parseBlock reads statements separated by newlines until the block closes
// with a dedent (or input ends).
func (p *parser) parseBlock() ([]Stat, error) {
	var stats []Stat
	for {
		if p.at(TokenDedent) || p.at(TokenEOF) {
			return stats, nil
		}
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stats = append(stats, s)
		if p.at(TokenDedent) || p.at(TokenEOF) {
			return stats, nil
		}
		// An if chain consumes its trailing else branches itself, so the
		// separator here is always a plain newline.
		if !p.at(TokenNewline) {
			return nil, p.errorf(p.peek(), "expected newline, found %s", p.peek())
		}
		for p.accept(TokenNewline) {
		}
	}
}

// parseIndentedBlock parses ": <Indent> block <Dedent>".
func (p *parser) parseIndentedBlock() ([]Stat, error) {
	if _, err := p.expect(TokenColon); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenIndent); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if !p.accept(TokenDedent) && !p.at(TokenEOF) {
		return nil, p.errorf(p.peek(), "expected dedent, found %s", p.peek())
	}
	return body, nil
}

func (p *parser) parseStatement() (Stat, error) {
	t := p.peek()
	switch t.Type {
	case TokenLet:
		return p.parseLet()
	case TokenIf:
		return p.parseCond()
	case TokenWhile:
		return p.parseWhile()
	case TokenReturn:
		return p.parseReturn()
	case TokenLog:
		return p.parseLog()
	default:
		return p.parseExprStatement()
	}
}

func (p *parser) parseLet() (Stat, error) {
	letTok := p.next()
	name, err := p.expect(TokenId)
	if err != nil {
		return nil, err
	}

	// let f(a, b: Int) -> T: <block>
	if p.at(TokenLParen) {
		fun, typ, err := p.parseFunDecl(name.Text, letTok.Pos)
		if err != nil {
			return nil, err
		}
		return &Let{base: base{letTok.Pos}, Name: name.Text, Type: typ, Value: fun}, nil
	}

	typ := AnyType
	if p.accept(TokenColon) {
		typ, err = p.parseType()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokenEq); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &Let{base: base{letTok.Pos}, Name: name.Text, Type: typ, Value: value}, nil
}

// parseFunDecl parses the parameter list, return type, and body shared by
// named declarations and fun literals. The opening paren is next in the
// stream on entry.
func (p *parser) parseFunDecl(name string, pos Pos) (*FunLit, Type, error) {
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, Type{}, err
	}
	var params []Param
	for !p.at(TokenRParen) {
		id, err := p.expect(TokenId)
		if err != nil {
			return nil, Type{}, err
		}
		typ := AnyType
		if p.accept(TokenColon) {
			typ, err = p.parseType()
			if err != nil {
				return nil, Type{}, err
			}
		}
		params = append(params, Param{Name: id.Text, Type: typ, Pos: id.Pos})
		// Commas between parameters are optional.
		p.accept(TokenComma)
	}
	p.next() // ')'

	ret := AnyType
	if p.accept(TokenArrow) {
		var err error
		ret, err = p.parseType()
		if err != nil {
			return nil, Type{}, err
		}
	}

	body, err := p.parseIndentedBlock()
	if err != nil {
		return nil, Type{}, err
	}

	fun := &FunLit{base: base{pos}, Name: name, Params: params, RetType: ret, Body: body}
	paramTypes := make([]Type, len(params))
	for i, prm := range params {
		paramTypes[i] = prm.Type
	}
	retCopy := ret
	typ := Type{Kind: TypeFunction, Params: paramTypes, Elem: &retCopy}
	return fun, typ, nil
}

func (p *parser) parseType() (Type, error) {
	id, err := p.expect(TokenId)
	if err != nil {
		return Type{}, err
	}
	typ, ok := NamedType(id.Text)
	if !ok {
		return Type{}, p.errorf(id, "unknown type %q", id.Text)
	}
	return typ, nil
}

func (p *parser) parseCond() (Stat, error) {
	ifTok := p.next()
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseIndentedBlock()
	if err != nil {
		return nil, err
	}
	branches := []CondBranch{{Cond: cond, Body: body}}

	// else arms sit on the following line at the same indentation.
	for p.at(TokenNewline) && p.peekAt(1).Type == TokenElse {
		p.next() // newline
		p.next() // else
		if p.accept(TokenIf) {
			cond, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			body, err := p.parseIndentedBlock()
			if err != nil {
				return nil, err
			}
			branches = append(branches, CondBranch{Cond: cond, Body: body})
			continue
		}
		body, err := p.parseIndentedBlock()
		if err != nil {
			return nil, err
		}
		branches = append(branches, CondBranch{Cond: nil, Body: body})
		break
	}
	return &Cond{base: base{ifTok.Pos}, Branches: branches}, nil
}

func (p *parser) parseWhile() (Stat, error) {
	whileTok := p.next()
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseIndentedBlock()
	if err != nil {
		return nil, err
	}
	return &While{base: base{whileTok.Pos}, Cond: cond, Body: body}, nil
}

func (p *parser) parseReturn() (Stat, error) {
	retTok := p.next()
	if p.at(TokenNewline) || p.at(TokenDedent) || p.at(TokenEOF) {
		return &Return{base: base{retTok.Pos}}, nil
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &Return{base: base{retTok.Pos}, Value: value}, nil
}

func (p *parser) parseLog() (Stat, error) {
	logTok := p.next()
	var args []Expr
	if !p.at(TokenNewline) && !p.at(TokenDedent) && !p.at(TokenEOF) {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.accept(TokenComma) {
				break
			}
		}
	}
	return &Log{base: base{logTok.Pos}, Args: args}, nil
}

func (p *parser) parseExprStatement() (Stat, error) {
	start := p.peek()
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.accept(TokenEq) {
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &Assign{base: base{start.Pos}, Target: expr, Value: value}, nil
	}
	return &ExprStat{base: base{start.Pos}, Value: expr}, nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (p *parser) parseExpr() (Expr, error) {
	return p.parseAndOr()
}

func (p *parser) parseAndOr() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		var op BinOpKind
		switch p.peek().Type {
		case TokenAnd:
			op = BinAnd
		case TokenOr:
			op = BinOr
		default:
			return left, nil
		}
		opTok := p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinOp{base: base{opTok.Pos}, Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseNot() (Expr, error) {
	if p.at(TokenNot) {
		notTok := p.next()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaOp{base: base{notTok.Pos}, Op: UnaNot, Operand: operand}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[TokenType]BinOpKind{
	TokenEqEq:      BinEqual,
	TokenNotEq:     BinNEq,
	TokenLess:      BinLess,
	TokenLessEq:    BinLEq,
	TokenGreater:   BinGreater,
	TokenGreaterEq: BinGEq,
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := comparisonOps[p.peek().Type]
		if !ok {
			return left, nil
		}
		opTok := p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &BinOp{base: base{opTok.Pos}, Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op BinOpKind
		switch p.peek().Type {
		case TokenPlus:
			op = BinPlus
		case TokenMinus:
			op = BinMinus
		default:
			return left, nil
		}
		opTok := p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinOp{base: base{opTok.Pos}, Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op BinOpKind
		switch p.peek().Type {
		case TokenStar:
			op = BinTimes
		case TokenSlash:
			op = BinDivides
		case TokenPercent:
			op = BinModulo
		default:
			return left, nil
		}
		opTok := p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinOp{base: base{opTok.Pos}, Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	if p.at(TokenMinus) {
		minusTok := p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaOp{base: base{minusTok.Pos}, Op: UnaNeg, Operand: operand}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (Expr, error) {
	left, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if p.at(TokenCaret) {
		opTok := p.next()
		// Right-associative: the exponent may itself contain ^ or unary minus.
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &BinOp{base: base{opTok.Pos}, Op: BinPower, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parsePostfix() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Type {
		case TokenLBracket:
			opTok := p.next()
			key, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenRBracket); err != nil {
				return nil, err
			}
			expr = &Index{base: base{opTok.Pos}, Seq: expr, Key: key}
		case TokenLParen:
			opTok := p.next()
			var args []Expr
			for !p.at(TokenRParen) {
				arg, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if !p.accept(TokenComma) {
					break
				}
			}
			if _, err := p.expect(TokenRParen); err != nil {
				return nil, err
			}
			expr = &Call{base: base{opTok.Pos}, Callee: expr, Args: args}
		default:
			return expr, nil
		}
	}
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.peek()
	switch t.Type {
	case TokenNil:
		p.next()
		return &NilLit{base{t.Pos}}, nil
	case TokenTrue:
		p.next()
		return &BoolLit{base: base{t.Pos}, Value: true}, nil
	case TokenFalse:
		p.next()
		return &BoolLit{base: base{t.Pos}, Value: false}, nil
	case TokenInt:
		p.next()
		return &IntLit{base: base{t.Pos}, Value: t.Int}, nil
	case TokenReal:
		p.next()
		return &RealLit{base: base{t.Pos}, Value: t.Real}, nil
	case TokenString:
		p.next()
		return &StringLit{base: base{t.Pos}, Value: t.Text}, nil
	case TokenId:
		p.next()
		return &Ident{base: base{t.Pos}, Name: t.Text}, nil
	case TokenLBracket:
		p.next()
		var elems []Expr
		for !p.at(TokenRBracket) {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if !p.accept(TokenComma) {
				break
			}
		}
		if _, err := p.expect(TokenRBracket); err != nil {
			return nil, err
		}
		return &ListLit{base: base{t.Pos}, Elems: elems}, nil
	case TokenLParen:
		p.next()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return e, nil
	case TokenFun:
		p.next()
		fun, _, err := p.parseFunDecl("", t.Pos)
		if err != nil {
			return nil, err
		}
		return fun, nil
	}
	return nil, p.errorf(t, "expected expression, found %s", t)
}
