package compiler

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// LexError reports a tokenization failure with its source position.
type LexError struct {
	Msg string
	Pos Pos
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at %s: %s", e.Pos, e.Msg)
}

// Lex tokenizes source text into a flat token stream, including the layout
// tokens (Newline, Indent, Dedent) that encode block structure. The stream
// always starts with a layout token for the first line and ends with EOF.
func Lex(input string) ([]Token, error) {
	lx := &lexer{
		src:     []rune(input),
		indents: []string{""},
		line:    1,
	}
	if err := lx.run(); err != nil {
		return nil, err
	}
	return lx.tokens, nil
}

type lexer struct {
	src       []rune
	i         int // index of next unread rune
	line      int
	lineStart int // index of the first rune of the current line

	indents []string // stack of active indentation prefixes
	tokens  []Token
}

func (lx *lexer) errorf(pos Pos, format string, args ...any) error {
	return &LexError{Msg: fmt.Sprintf(format, args...), Pos: pos}
}

func (lx *lexer) pos() Pos {
	return Pos{Line: lx.line, Column: lx.i - lx.lineStart + 1}
}

func (lx *lexer) emit(t Token) {
	lx.tokens = append(lx.tokens, t)
}

func (lx *lexer) peek() (rune, bool) {
	if lx.i < len(lx.src) {
		return lx.src[lx.i], true
	}
	return 0, false
}

func (lx *lexer) run() error {
	atStart := true
	for lx.i < len(lx.src) {
		c := lx.src[lx.i]
		if atStart || c == '\n' || c == '\r' {
			atStart = false
			if done, err := lx.scanLayout(); err != nil {
				return err
			} else if done {
				break
			}
		} else {
			if err := lx.scanToken(); err != nil {
				return err
			}
		}
		// Skip intra-line whitespace; newlines are layout.
		for lx.i < len(lx.src) && (lx.src[lx.i] == ' ' || lx.src[lx.i] == '\t') {
			lx.i++
		}
	}
	// Close any blocks still open at end of input.
	for len(lx.indents) > 1 {
		lx.indents = lx.indents[:len(lx.indents)-1]
		lx.emit(Token{Type: TokenDedent, Pos: lx.pos()})
	}
	lx.emit(Token{Type: TokenEOF, Pos: lx.pos()})
	return nil
}

// scanLayout consumes a run of whitespace spanning one or more line breaks
// (blank lines collapse) and emits the layout tokens for the indentation of
// the next non-blank line. Returns true when input is exhausted.
func (lx *lexer) scanLayout() (bool, error) {
	start := lx.i
	for lx.i < len(lx.src) {
		c := lx.src[lx.i]
		if !isASCIISpace(c) {
			break
		}
		if c == '\n' {
			lx.line++
			lx.lineStart = lx.i + 1
			start = lx.lineStart
		}
		lx.i++
	}
	if lx.i >= len(lx.src) {
		return true, nil
	}

	newIndent := string(lx.src[start:lx.i])
	pos := Pos{Line: lx.line, Column: 1}
	last := lx.indents[len(lx.indents)-1]

	switch {
	case newIndent == last:
		lx.emit(Token{Type: TokenNewline, Pos: pos})
	case strings.HasPrefix(newIndent, last):
		lx.indents = append(lx.indents, newIndent)
		lx.emit(Token{Type: TokenIndent, Pos: pos})
	default:
		level := -1
		for j, ind := range lx.indents {
			if ind == newIndent {
				level = j
				break
			}
		}
		if level < 0 {
			return false, lx.errorf(pos, "invalid indentation %q", newIndent)
		}
		for len(lx.indents) > level+1 {
			lx.indents = lx.indents[:len(lx.indents)-1]
			lx.emit(Token{Type: TokenDedent, Pos: pos})
		}
		lx.emit(Token{Type: TokenNewline, Pos: pos})
	}
	return false, nil
}

func (lx *lexer) scanToken() error {
	pos := lx.pos()
	c := lx.src[lx.i]

	switch {
	case isIdentStart(c):
		return lx.scanIdent(pos)
	case c >= '0' && c <= '9':
		return lx.scanNumber(pos)
	case c == '"':
		return lx.scanString(pos)
	default:
		return lx.scanSymbol(pos)
	}
}

func (lx *lexer) scanIdent(pos Pos) error {
	start := lx.i
	for lx.i < len(lx.src) && isIdentContinue(lx.src[lx.i]) {
		lx.i++
	}
	name := string(lx.src[start:lx.i])
	if tt, ok := keywords[name]; ok {
		lx.emit(Token{Type: tt, Pos: pos})
		return nil
	}
	// inf and NaN read as real literals rather than names.
	switch name {
	case "inf":
		lx.emit(Token{Type: TokenReal, Pos: pos, Real: math.Inf(1)})
	case "NaN":
		lx.emit(Token{Type: TokenReal, Pos: pos, Real: math.NaN()})
	default:
		lx.emit(Token{Type: TokenId, Pos: pos, Text: name})
	}
	return nil
}

func (lx *lexer) scanNumber(pos Pos) error {
	start := lx.i
	isInteger := true
	for lx.i < len(lx.src) && isDigit(lx.src[lx.i]) {
		lx.i++
	}
	if c, ok := lx.peek(); ok && c == '.' {
		isInteger = false
		lx.i++
		for lx.i < len(lx.src) && isDigit(lx.src[lx.i]) {
			lx.i++
		}
	}
	if c, ok := lx.peek(); ok && (c == 'e' || c == 'E') {
		isInteger = false
		lx.i++
		if sign, ok := lx.peek(); ok && (sign == '+' || sign == '-') {
			lx.i++
		}
		for lx.i < len(lx.src) && isDigit(lx.src[lx.i]) {
			lx.i++
		}
	}
	text := string(lx.src[start:lx.i])
	if isInteger {
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			lx.emit(Token{Type: TokenInt, Pos: pos, Int: n})
			return nil
		}
		// Out of int range; fall through to a real literal.
	}
	r, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return lx.errorf(pos, "malformed number literal %q", text)
	}
	lx.emit(Token{Type: TokenReal, Pos: pos, Real: r})
	return nil
}

func (lx *lexer) scanString(pos Pos) error {
	lx.i++ // opening quote
	var sb strings.Builder
	for {
		if lx.i >= len(lx.src) {
			return lx.errorf(pos, "unfinished string literal")
		}
		c := lx.src[lx.i]
		lx.i++
		switch c {
		case '"':
			lx.emit(Token{Type: TokenString, Pos: pos, Text: sb.String()})
			return nil
		case '\\':
			if lx.i >= len(lx.src) {
				return lx.errorf(pos, "unfinished string literal")
			}
			esc := lx.src[lx.i]
			lx.i++
			switch esc {
			case '\\', '"':
				sb.WriteRune(esc)
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				return lx.errorf(pos, "invalid escape sequence '\\%c'", esc)
			}
		case '\n':
			return lx.errorf(pos, "unfinished string literal")
		default:
			sb.WriteRune(c)
		}
	}
}

var twoCharSymbols = map[string]TokenType{
	"==": TokenEqEq,
	"!=": TokenNotEq,
	"<=": TokenLessEq,
	">=": TokenGreaterEq,
	"->": TokenArrow,
}

var oneCharSymbols = map[rune]TokenType{
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenStar,
	'/': TokenSlash,
	'%': TokenPercent,
	'^': TokenCaret,
	'=': TokenEq,
	'<': TokenLess,
	'>': TokenGreater,
	'(': TokenLParen,
	')': TokenRParen,
	'[': TokenLBracket,
	']': TokenRBracket,
	',': TokenComma,
	':': TokenColon,
	'.': TokenDot,
}

func (lx *lexer) scanSymbol(pos Pos) error {
	c := lx.src[lx.i]
	if lx.i+1 < len(lx.src) {
		pair := string(lx.src[lx.i : lx.i+2])
		if tt, ok := twoCharSymbols[pair]; ok {
			lx.i += 2
			lx.emit(Token{Type: tt, Pos: pos})
			return nil
		}
	}
	if tt, ok := oneCharSymbols[c]; ok {
		lx.i++
		lx.emit(Token{Type: tt, Pos: pos})
		return nil
	}
	return lx.errorf(pos, "unexpected character %q", c)
}

func isASCIISpace(c rune) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c rune) bool {
	return c == '_' || unicode.IsLetter(c)
}

func isIdentContinue(c rune) bool {
	return c == '_' || unicode.IsLetter(c) || unicode.IsDigit(c)
}
