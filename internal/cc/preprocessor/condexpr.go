package preprocessor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tcztzy/xcc-sub000/internal/cc/diag"
	"github.com/tcztzy/xcc-sub000/internal/cc/token"
)

// CondExpr is the tiny expression AST for #if/#elif conditions, evaluated
// by a dedicated Pratt parser rather than a general expression library.
// The node shapes (Not/And/Or/Compare/BinaryOp/UnaryOp/Apply/Ident/
// ConstantInt) mirror a conventional preprocessor condition grammar; only
// EvalCondExpr's numeric semantics differ (see condeval.go's two-numeric-kind
// PPValue).
type CondExpr interface {
	fmt.Stringer
	evalNode()
}

type Ident string

func (Ident) evalNode()      {}
func (i Ident) String() string { return string(i) }

type ConstantInt struct{ Value string }

func (ConstantInt) evalNode()        {}
func (c ConstantInt) String() string { return c.Value }

type Not struct{ X CondExpr }

func (Not) evalNode()        {}
func (n Not) String() string { return "!" + n.X.String() }

type And struct{ L, R CondExpr }

func (And) evalNode()        {}
func (a And) String() string { return a.L.String() + " && " + a.R.String() }

type Or struct{ L, R CondExpr }

func (Or) evalNode()        {}
func (o Or) String() string { return o.L.String() + " || " + o.R.String() }

type Compare struct {
	Left  CondExpr
	Op    string
	Right CondExpr
}

func (Compare) evalNode()        {}
func (c Compare) String() string { return c.Left.String() + " " + c.Op + " " + c.Right.String() }

// BinaryOp covers the non-comparison binary operators: arithmetic, shift,
// and bitwise.
type BinaryOp struct {
	Left  CondExpr
	Op    string
	Right CondExpr
}

func (BinaryOp) evalNode()        {}
func (b BinaryOp) String() string { return b.Left.String() + " " + b.Op + " " + b.Right.String() }

var compareOps = map[string]bool{"==": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true}

type UnaryOp struct {
	Op string
	X  CondExpr
}

func (UnaryOp) evalNode()        {}
func (u UnaryOp) String() string { return u.Op + u.X.String() }

type Apply struct {
	Name Ident
	Args []CondExpr
}

func (Apply) evalNode() {}
func (a Apply) String() string {
	args := make([]string, len(a.Args))
	for i, x := range a.Args {
		args[i] = x.String()
	}
	return string(a.Name) + "(" + strings.Join(args, ",") + ")"
}

// precedence is the Pratt-parser binding power, lowest to highest, for the
// operators enumerated in — lifted directly from the
// teacher's parser.go precedence ladder.
type precedence int

const (
	precLowest precedence = iota
	precOr
	precAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precShift
	precAdditive
	precMultiplicative
	precUnary
)

var binaryPrecedence = map[string]precedence{
	"||": precOr, "&&": precAnd, "|": precBitOr, "^": precBitXor, "&": precBitAnd,
	"==": precEquality, "!=": precEquality,
	"<": precRelational, ">": precRelational, "<=": precRelational, ">=": precRelational,
	"<<": precShift, ">>": precShift,
	"+": precAdditive, "-": precAdditive,
	"*": precMultiplicative, "/": precMultiplicative, "%": precMultiplicative,
}

type condParser struct {
	toks []token.Token
	pos  int
}

func parseCondExpr(toks []token.Token) (CondExpr, error) {
	p := &condParser{toks: toks}
	expr, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, diag.NewWithCode(diag.StagePP, "", "Invalid #if expression", diag.CodeInvalidIfExpr)
	}
	return expr, nil
}

func (p *condParser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *condParser) peek() (token.Token, bool) {
	if p.atEnd() {
		return token.Token{}, false
	}
	return p.toks[p.pos], true
}

func (p *condParser) next() (token.Token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

func (p *condParser) parseExpr(min precedence) (CondExpr, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.Kind != token.Punctuator {
			break
		}
		prec, known := binaryPrecedence[t.Lexeme]
		if !known || prec < min {
			break
		}
		p.next()
		right, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		switch {
		case t.Lexeme == "&&":
			left = And{L: left, R: right}
		case t.Lexeme == "||":
			left = Or{L: left, R: right}
		case compareOps[t.Lexeme]:
			left = Compare{Left: left, Op: t.Lexeme, Right: right}
		default:
			left = BinaryOp{Left: left, Op: t.Lexeme, Right: right}
		}
	}
	return left, nil
}

func (p *condParser) parsePrefix() (CondExpr, error) {
	t, ok := p.next()
	if !ok {
		return nil, diag.NewWithCode(diag.StagePP, "", "Invalid #if expression", diag.CodeInvalidIfExpr)
	}
	switch {
	case t.Kind == token.Punctuator && t.Lexeme == "!":
		x, err := p.parseExpr(precUnary)
		if err != nil {
			return nil, err
		}
		return Not{X: x}, nil
	case t.Kind == token.Punctuator && (t.Lexeme == "-" || t.Lexeme == "~" || t.Lexeme == "+"):
		x, err := p.parseExpr(precUnary)
		if err != nil {
			return nil, err
		}
		return UnaryOp{Op: t.Lexeme, X: x}, nil
	case t.Kind == token.Punctuator && t.Lexeme == "(":
		x, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		if c, ok := p.next(); !ok || c.Lexeme != ")" {
			return nil, diag.NewWithCode(diag.StagePP, "", "Invalid #if expression", diag.CodeInvalidIfExpr)
		}
		return x, nil
	case t.Kind == token.IntConst || t.Kind == token.PPNumber:
		return ConstantInt{Value: t.Lexeme}, nil
	case t.Kind == token.CharConst:
		return ConstantInt{Value: strconv.Itoa(int(charConstValue(t.Lexeme)))}, nil
	case t.Kind == token.Ident:
		if nt, ok := p.peek(); ok && nt.Kind == token.Punctuator && nt.Lexeme == "(" {
			p.next()
			var args []CondExpr
			if at, ok := p.peek(); !ok || at.Lexeme != ")" {
				for {
					arg, err := p.parseExpr(precLowest)
					if err != nil {
						return nil, err
					}
					args = append(args, arg)
					if c, ok := p.peek(); ok && c.Lexeme == "," {
						p.next()
						continue
					}
					break
				}
			}
			if c, ok := p.next(); !ok || c.Lexeme != ")" {
				return nil, diag.NewWithCode(diag.StagePP, "", "Invalid #if expression", diag.CodeInvalidIfExpr)
			}
			return Apply{Name: Ident(t.Lexeme), Args: args}, nil
		}
		return Ident(t.Lexeme), nil
	default:
		return nil, diag.NewWithCode(diag.StagePP, "", "Invalid #if expression", diag.CodeInvalidIfExpr)
	}
}

func charConstValue(lex string) int64 {
	s := strings.Trim(lex, "'LuU")
	if s == "" {
		return 0
	}
	if s[0] == '\\' && len(s) > 1 {
		switch s[1] {
		case 'n':
			return '\n'
		case 't':
			return '\t'
		case '0':
			return 0
		default:
			return int64(s[1])
		}
	}
	return int64(s[0])
}
