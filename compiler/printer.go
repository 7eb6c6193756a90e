package compiler

import (
	"fmt"
	"strings"
)

// DumpTokens formats a token stream one token per line, with positions.
func DumpTokens(tokens []Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		fmt.Fprintf(&sb, "%-8s %s\n", t.Pos.String(), t.String())
	}
	return sb.String()
}

// DumpProgram formats an AST as an indented tree.
func DumpProgram(prog *Program) string {
	var sb strings.Builder
	for _, s := range prog.Body {
		dumpStat(&sb, s, 0)
	}
	return sb.String()
}

func indentLine(sb *strings.Builder, depth int, format string, args ...any) {
	sb.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(sb, format, args...)
	sb.WriteByte('\n')
}

func dumpStat(sb *strings.Builder, s Stat, depth int) {
	switch s := s.(type) {
	case *Let:
		if s.Type.Kind == TypeAny {
			indentLine(sb, depth, "Let %s =", s.Name)
		} else {
			indentLine(sb, depth, "Let %s: %s =", s.Name, s.Type)
		}
		dumpExpr(sb, s.Value, depth+1)
	case *Assign:
		indentLine(sb, depth, "Assign")
		dumpExpr(sb, s.Target, depth+1)
		dumpExpr(sb, s.Value, depth+1)
	case *Cond:
		for i, br := range s.Branches {
			switch {
			case i == 0:
				indentLine(sb, depth, "If")
			case br.Cond != nil:
				indentLine(sb, depth, "ElseIf")
			default:
				indentLine(sb, depth, "Else")
			}
			if br.Cond != nil {
				dumpExpr(sb, br.Cond, depth+1)
			}
			for _, inner := range br.Body {
				dumpStat(sb, inner, depth+1)
			}
		}
	case *While:
		indentLine(sb, depth, "While")
		dumpExpr(sb, s.Cond, depth+1)
		for _, inner := range s.Body {
			dumpStat(sb, inner, depth+1)
		}
	case *Return:
		indentLine(sb, depth, "Return")
		if s.Value != nil {
			dumpExpr(sb, s.Value, depth+1)
		}
	case *Log:
		indentLine(sb, depth, "Log")
		for _, arg := range s.Args {
			dumpExpr(sb, arg, depth+1)
		}
	case *ExprStat:
		indentLine(sb, depth, "ExprStat")
		dumpExpr(sb, s.Value, depth+1)
	default:
		indentLine(sb, depth, "<unknown statement %T>", s)
	}
}

func dumpExpr(sb *strings.Builder, e Expr, depth int) {
	switch e := e.(type) {
	case *NilLit:
		indentLine(sb, depth, "Nil")
	case *BoolLit:
		indentLine(sb, depth, "Bool %v", e.Value)
	case *IntLit:
		indentLine(sb, depth, "Int %d", e.Value)
	case *RealLit:
		indentLine(sb, depth, "Real %v", e.Value)
	case *StringLit:
		indentLine(sb, depth, "String %q", e.Value)
	case *ListLit:
		indentLine(sb, depth, "List")
		for _, el := range e.Elems {
			dumpExpr(sb, el, depth+1)
		}
	case *Ident:
		indentLine(sb, depth, "Id %s", e.Name)
	case *UnaOp:
		indentLine(sb, depth, "UnaOp %s", e.Op)
		dumpExpr(sb, e.Operand, depth+1)
	case *BinOp:
		indentLine(sb, depth, "BinOp %s", e.Op)
		dumpExpr(sb, e.Left, depth+1)
		dumpExpr(sb, e.Right, depth+1)
	case *Index:
		indentLine(sb, depth, "Index")
		dumpExpr(sb, e.Seq, depth+1)
		dumpExpr(sb, e.Key, depth+1)
	case *Call:
		indentLine(sb, depth, "Call")
		dumpExpr(sb, e.Callee, depth+1)
		for _, arg := range e.Args {
			dumpExpr(sb, arg, depth+1)
		}
	case *FunLit:
		var params []string
		for _, prm := range e.Params {
			if prm.Type.Kind == TypeAny {
				params = append(params, prm.Name)
			} else {
				params = append(params, fmt.Sprintf("%s: %s", prm.Name, prm.Type))
			}
		}
		indentLine(sb, depth, "Fun (%s) -> %s", strings.Join(params, ", "), e.RetType)
		for _, inner := range e.Body {
			dumpStat(sb, inner, depth+1)
		}
	default:
		indentLine(sb, depth, "<unknown expression %T>", e)
	}
}
