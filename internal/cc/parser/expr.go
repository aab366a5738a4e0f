package parser

import (
	"github.com/tcztzy/xcc-sub000/internal/cc/ast"
	"github.com/tcztzy/xcc-sub000/internal/cc/token"
)

// parseExpr parses a full comma expression.
func (p *parser) parseExpr() (ast.Expr, error) {
	left, err := p.parseAssignExpr()
	if err != nil {
		return nil, err
	}
	for p.isPunct(",") {
		start := p.advance()
		right, err := p.parseAssignExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.CommaExpr{NodePos: at(start), Left: left, Right: right}
	}
	return left, nil
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"<<=": true, ">>=": true, "&=": true, "^=": true, "|=": true,
}

func (p *parser) parseAssignExpr() (ast.Expr, error) {
	left, err := p.parseConditionalExpr()
	if err != nil {
		return nil, err
	}
	t := p.cur()
	if t.Kind == token.Punctuator && assignOps[t.Lexeme] {
		p.advance()
		value, err := p.parseAssignExpr()
		if err != nil {
			return nil, err
		}
		return &ast.AssignExpr{NodePos: at(t), Op: t.Lexeme, Target: left, Value: value}, nil
	}
	return left, nil
}

func (p *parser) parseConditionalExpr() (ast.Expr, error) {
	cond, err := p.parseBinaryExpr(0)
	if err != nil {
		return nil, err
	}
	if t := p.cur(); t.Kind == token.Punctuator && t.Lexeme == "?" {
		p.advance()
		then, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		elseExpr, err := p.parseConditionalExpr()
		if err != nil {
			return nil, err
		}
		return &ast.ConditionalExpr{NodePos: at(t), Cond: cond, Then: then, Else: elseExpr}, nil
	}
	return cond, nil
}

// binaryPrecedence assigns a precedence level to every binary operator
// recognized outside of assignment, mirroring C's grammar without needing a
// separate grammar rule per level.
var binaryPrecedence = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

func (p *parser) parseBinaryExpr(minPrec int) (ast.Expr, error) {
	left, err := p.parseCastExpr()
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		if t.Kind != token.Punctuator {
			return left, nil
		}
		prec, ok := binaryPrecedence[t.Lexeme]
		if !ok || prec < minPrec {
			return left, nil
		}
		p.advance()
		right, err := p.parseBinaryExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{NodePos: at(t), Op: t.Lexeme, Left: left, Right: right}
	}
}

// parseCastExpr handles "(" type-name ")" cast-expr, falling back to a
// parenthesized expression (consumed inside parsePrimary) when what follows
// "(" isn't a type.
func (p *parser) parseCastExpr() (ast.Expr, error) {
	if p.isPunct("(") && p.startsTypeNameAt(1) {
		start := p.advance() // "("
		ts, err := p.parseTypeName()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		if p.isPunct("{") {
			items, err := p.parseBraceInitList()
			if err != nil {
				return nil, err
			}
			return p.parsePostfixTail(&ast.CompoundLiteralExpr{NodePos: at(start), TypeSpec: ts, Initializer: items})
		}
		operand, err := p.parseCastExpr()
		if err != nil {
			return nil, err
		}
		return &ast.CastExpr{NodePos: at(start), TypeSpec: ts, X: operand}, nil
	}
	return p.parseUnaryExpr()
}

// startsTypeNameAt reports whether the token n positions ahead begins a
// type-name, used to disambiguate "(" type-name ")" from a parenthesized
// expression without backtracking.
func (p *parser) startsTypeNameAt(n int) bool {
	t := p.peekAt(n)
	if t.Kind == token.Ident {
		return p.typedefs[t.Lexeme]
	}
	if t.Kind != token.Keyword {
		return false
	}
	return typeKeywords[t.Lexeme] || qualifierKeywords[t.Lexeme]
}

var unaryOps = map[string]bool{"&": true, "*": true, "+": true, "-": true, "~": true, "!": true}

func (p *parser) parseUnaryExpr() (ast.Expr, error) {
	t := p.cur()
	switch {
	case t.Kind == token.Punctuator && (t.Lexeme == "++" || t.Lexeme == "--"):
		p.advance()
		operand, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}
		return &ast.UpdateExpr{NodePos: at(t), Op: t.Lexeme, Operand: operand}, nil
	case t.Kind == token.Punctuator && unaryOps[t.Lexeme]:
		p.advance()
		operand, err := p.parseCastExpr()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{NodePos: at(t), Op: t.Lexeme, Operand: operand}, nil
	case t.Kind == token.Punctuator && t.Lexeme == "&&":
		// GNU label-as-value: &&label
		p.advance()
		label, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return &ast.LabelAddressExpr{NodePos: at(t), Label: label.Lexeme}, nil
	case t.Kind == token.Keyword && t.Lexeme == "sizeof":
		return p.parseSizeofOrAlignof(t, true)
	case t.Kind == token.Keyword && (t.Lexeme == "_Alignof" || t.Lexeme == "__alignof__" || t.Lexeme == "__alignof"):
		return p.parseSizeofOrAlignof(t, false)
	case t.Kind == token.Keyword && t.Lexeme == "__extension__":
		p.advance()
		return p.parseCastExpr()
	case t.Kind == token.Keyword && t.Lexeme == "__builtin_offsetof":
		p.advance()
		if _, err := p.expectPunct("("); err != nil {
			return nil, err
		}
		ts, err := p.parseTypeName()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(","); err != nil {
			return nil, err
		}
		member, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &ast.BuiltinOffsetofExpr{NodePos: at(t), TypeSpec: ts, Member: member.Lexeme}, nil
	}
	return p.parsePostfixExpr()
}

func (p *parser) parseSizeofOrAlignof(kw token.Token, isSizeof bool) (ast.Expr, error) {
	p.advance()
	if p.isPunct("(") && p.startsTypeNameAt(1) {
		p.advance()
		ts, err := p.parseTypeName()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		if isSizeof {
			return &ast.SizeofExpr{NodePos: at(kw), TypeSpec: ts}, nil
		}
		return &ast.AlignofExpr{NodePos: at(kw), TypeSpec: ts}, nil
	}
	operand, err := p.parseUnaryExpr()
	if err != nil {
		return nil, err
	}
	if isSizeof {
		return &ast.SizeofExpr{NodePos: at(kw), X: operand}, nil
	}
	return &ast.AlignofExpr{NodePos: at(kw), X: operand}, nil
}

func (p *parser) parsePostfixExpr() (ast.Expr, error) {
	primary, err := p.parsePrimaryExpr()
	if err != nil {
		return nil, err
	}
	return p.parsePostfixTail(primary)
}

func (p *parser) parsePostfixTail(expr ast.Expr) (ast.Expr, error) {
	for {
		t := p.cur()
		switch {
		case p.isPunct("["):
			p.advance()
			index, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			expr = &ast.SubscriptExpr{NodePos: at(t), Base: expr, Index: index}
		case p.isPunct("("):
			p.advance()
			var args []ast.Expr
			if !p.isPunct(")") {
				for {
					arg, err := p.parseAssignExpr()
					if err != nil {
						return nil, err
					}
					args = append(args, arg)
					if !p.acceptPunct(",") {
						break
					}
				}
			}
			if _, err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			expr = &ast.CallExpr{NodePos: at(t), Callee: expr, Args: args}
		case p.isPunct(".") || p.isPunct("->"):
			through := p.advance()
			member, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			expr = &ast.MemberExpr{NodePos: at(t), Base: expr, Member: member.Lexeme, ThroughPointer: through.Lexeme == "->"}
		case p.isPunct("++") || p.isPunct("--"):
			p.advance()
			expr = &ast.UpdateExpr{NodePos: at(t), Op: t.Lexeme, Operand: expr, IsPostfix: true}
		default:
			return expr, nil
		}
	}
}

func (p *parser) parsePrimaryExpr() (ast.Expr, error) {
	t := p.cur()
	switch t.Kind {
	case token.IntConst, token.PPNumber:
		p.advance()
		return &ast.IntLiteral{NodePos: at(t), Value: t.Lexeme}, nil
	case token.FloatConst:
		p.advance()
		return &ast.FloatLiteral{NodePos: at(t), Value: t.Lexeme}, nil
	case token.CharConst:
		p.advance()
		return &ast.CharLiteral{NodePos: at(t), Value: t.Lexeme}, nil
	case token.StringLiteral:
		p.advance()
		lit := &ast.StringLiteral{NodePos: at(t), Value: t.Lexeme}
		for p.cur().Kind == token.StringLiteral {
			lit.Value += p.advance().Lexeme // adjacent string-literal concatenation
		}
		return lit, nil
	case token.Ident:
		p.advance()
		return &ast.Identifier{NodePos: at(t), Name: t.Lexeme}, nil
	}
	if t.Kind == token.Keyword && t.Lexeme == "_Generic" {
		return p.parseGenericExpr(t)
	}
	if p.isPunct("(") {
		if p.peekAt(1).Kind == token.Punctuator && p.peekAt(1).Lexeme == "{" {
			p.advance()
			body, err := p.parseCompoundStmt()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			return &ast.StatementExpr{NodePos: at(t), Body: body}, nil
		}
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return nil, errAt(t.Pos(), "Expected expression, found '%s'", t.Lexeme)
}

func (p *parser) parseGenericExpr(start token.Token) (ast.Expr, error) {
	p.advance() // "_Generic"
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	control, err := p.parseAssignExpr()
	if err != nil {
		return nil, err
	}
	var assocs []ast.GenericAssociation
	for p.acceptPunct(",") {
		var assoc ast.GenericAssociation
		if p.isKeyword("default") {
			p.advance()
		} else {
			ts, err := p.parseTypeName()
			if err != nil {
				return nil, err
			}
			assoc.TypeSpec = ts
		}
		if _, err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		x, err := p.parseAssignExpr()
		if err != nil {
			return nil, err
		}
		assoc.X = x
		assocs = append(assocs, assoc)
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return &ast.GenericExpr{NodePos: at(start), Control: control, Associations: assocs}, nil
}

// parseInitializer parses either a brace initializer list or a single
// assignment expression.
func (p *parser) parseInitializer() (ast.Expr, error) {
	if p.isPunct("{") {
		return p.parseBraceInitList()
	}
	return p.parseAssignExpr()
}

func (p *parser) parseBraceInitList() (*ast.InitList, error) {
	start, err := p.expectPunct("{")
	if err != nil {
		return nil, err
	}
	list := &ast.InitList{NodePos: at(start)}
	for !p.isPunct("}") {
		var item ast.InitItem
		for p.isPunct("[") || p.isPunct(".") {
			if p.acceptPunct("[") {
				idx, err := p.parseConditionalExpr()
				if err != nil {
					return nil, err
				}
				if _, err := p.expectPunct("]"); err != nil {
					return nil, err
				}
				item.Designators = append(item.Designators, ast.Designator{Index: idx})
			} else {
				p.advance() // "."
				name, err := p.expectIdent()
				if err != nil {
					return nil, err
				}
				item.Designators = append(item.Designators, ast.Designator{Field: name.Lexeme})
			}
		}
		if len(item.Designators) > 0 {
			if _, err := p.expectPunct("="); err != nil {
				return nil, err
			}
		}
		init, err := p.parseInitializer()
		if err != nil {
			return nil, err
		}
		item.Initializer = init
		list.Items = append(list.Items, item)
		if !p.acceptPunct(",") {
			break
		}
	}
	if _, err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return list, nil
}
