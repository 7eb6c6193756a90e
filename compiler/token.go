package compiler

import "fmt"

// TokenType identifies the lexical class of a token.
type TokenType int

const (
	// Literals and identifiers
	TokenId TokenType = iota
	TokenInt
	TokenReal
	TokenString

	// Layout tokens produced by the indentation scanner
	TokenNewline
	TokenIndent
	TokenDedent

	// Keywords
	TokenLet
	TokenIf
	TokenElse
	TokenWhile
	TokenNot
	TokenAnd
	TokenOr
	TokenNil
	TokenTrue
	TokenFalse
	TokenReturn
	TokenLog
	TokenFun

	// Symbols
	TokenPlus      // +
	TokenMinus     // -
	TokenStar      // *
	TokenSlash     // /
	TokenPercent   // %
	TokenCaret     // ^
	TokenEq        // =
	TokenEqEq      // ==
	TokenNotEq     // !=
	TokenLess      // <
	TokenLessEq    // <=
	TokenGreater   // >
	TokenGreaterEq // >=
	TokenArrow     // ->
	TokenLParen    // (
	TokenRParen    // )
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenComma     // ,
	TokenColon     // :
	TokenDot       // .

	TokenEOF
)

var tokenNames = map[TokenType]string{
	TokenId:      "identifier",
	TokenInt:     "int literal",
	TokenReal:    "real literal",
	TokenString:  "string literal",
	TokenNewline: "newline",
	TokenIndent:  "indent",
	TokenDedent:  "dedent",

	TokenLet:    "'let'",
	TokenIf:     "'if'",
	TokenElse:   "'else'",
	TokenWhile:  "'while'",
	TokenNot:    "'not'",
	TokenAnd:    "'and'",
	TokenOr:     "'or'",
	TokenNil:    "'nil'",
	TokenTrue:   "'true'",
	TokenFalse:  "'false'",
	TokenReturn: "'return'",
	TokenLog:    "'log'",
	TokenFun:    "'fun'",

	TokenPlus:      "'+'",
	TokenMinus:     "'-'",
	TokenStar:      "'*'",
	TokenSlash:     "'/'",
	TokenPercent:   "'%'",
	TokenCaret:     "'^'",
	TokenEq:        "'='",
	TokenEqEq:      "'=='",
	TokenNotEq:     "'!='",
	TokenLess:      "'<'",
	TokenLessEq:    "'<='",
	TokenGreater:   "'>'",
	TokenGreaterEq: "'>='",
	TokenArrow:     "'->'",
	TokenLParen:    "'('",
	TokenRParen:    "')'",
	TokenLBracket:  "'['",
	TokenRBracket:  "']'",
	TokenComma:     "','",
	TokenColon:     "':'",
	TokenDot:       "'.'",

	TokenEOF: "end of input",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

var keywords = map[string]TokenType{
	"let":    TokenLet,
	"if":     TokenIf,
	"else":   TokenElse,
	"while":  TokenWhile,
	"not":    TokenNot,
	"and":    TokenAnd,
	"or":     TokenOr,
	"nil":    TokenNil,
	"true":   TokenTrue,
	"false":  TokenFalse,
	"return": TokenReturn,
	"log":    TokenLog,
	"fun":    TokenFun,
}

// Pos is a position in the source text, 1-based.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is a single lexical token with its source position.
type Token struct {
	Type TokenType
	Pos  Pos

	// Literal payloads; only the field matching Type is meaningful.
	Text string  // identifier name or string contents
	Int  int64   // TokenInt value
	Real float64 // TokenReal value
}

func (t Token) String() string {
	switch t.Type {
	case TokenId:
		return fmt.Sprintf("Id(%s)", t.Text)
	case TokenInt:
		return fmt.Sprintf("Int(%d)", t.Int)
	case TokenReal:
		return fmt.Sprintf("Real(%v)", t.Real)
	case TokenString:
		return fmt.Sprintf("String(%q)", t.Text)
	default:
		return t.Type.String()
	}
}
