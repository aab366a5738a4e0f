package parser

import (
	"github.com/tcztzy/xcc-sub000/internal/cc/ast"
	"github.com/tcztzy/xcc-sub000/internal/cc/token"
)

func (p *parser) parseCompoundStmt() (*ast.CompoundStmt, error) {
	start, err := p.expectPunct("{")
	if err != nil {
		return nil, err
	}
	stmt := &ast.CompoundStmt{NodePos: at(start)}
	for !p.isPunct("}") && !p.atEnd() {
		s, err := p.parseBlockItem()
		if err != nil {
			return nil, err
		}
		stmt.Statements = append(stmt.Statements, s)
	}
	if _, err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseBlockItem parses one statement or local declaration inside a
// compound statement.
func (p *parser) parseBlockItem() (ast.Stmt, error) {
	if p.isKeyword("_Static_assert") {
		return p.parseStaticAssert()
	}
	if p.startsDeclarationSpecifier() && !p.looksLikeLabel() {
		return p.parseLocalDeclaration()
	}
	return p.parseStatement()
}

// looksLikeLabel disambiguates "identifier :" (a label) from a typedef-name
// that happens to start a declaration; only relevant when the current token
// is itself a typedef name, since keywords never introduce labels.
func (p *parser) looksLikeLabel() bool {
	return p.cur().Kind == token.Ident && p.peekAt(1).Kind == token.Punctuator && p.peekAt(1).Lexeme == ":"
}

func (p *parser) parseLocalDeclaration() (ast.Stmt, error) {
	start := p.cur()
	spec, err := p.parseDeclarationSpecifiers()
	if err != nil {
		return nil, err
	}
	group := &ast.DeclGroupStmt{NodePos: at(start)}
	if p.acceptPunct(";") {
		return group, nil
	}
	for {
		name, ops, isFunc, params, variadic, err := p.parseDeclarator()
		if err != nil {
			return nil, err
		}
		ts := applyDeclaratorOps(spec, ops)
		if spec.storageClass == ast.StorageTypedef {
			p.typedefs[name] = true
			group.Declarations = append(group.Declarations, &ast.TypedefDecl{NodePos: at(start), TypeSpec: ts, Name: name})
		} else if isFunc {
			// A local function prototype, e.g. "int helper(int);" inside a body.
			_ = params
			_ = variadic
			group.Declarations = append(group.Declarations, &ast.DeclStmt{NodePos: at(start), TypeSpec: ts, Name: name, StorageClass: spec.storageClass})
		} else {
			var initExpr ast.Expr
			if p.acceptPunct("=") {
				initExpr, err = p.parseInitializer()
				if err != nil {
					return nil, err
				}
			}
			group.Declarations = append(group.Declarations, &ast.DeclStmt{
				NodePos: at(start), TypeSpec: ts, Name: name, Init: initExpr,
				StorageClass: spec.storageClass, Alignment: spec.alignment, IsThreadLocal: spec.isThreadLocal,
			})
		}
		if !p.acceptPunct(",") {
			break
		}
	}
	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	if len(group.Declarations) == 1 {
		return group.Declarations[0], nil
	}
	return group, nil
}

func (p *parser) parseStatement() (ast.Stmt, error) {
	t := p.cur()
	switch {
	case p.isPunct("{"):
		return p.parseCompoundStmt()
	case p.isPunct(";"):
		p.advance()
		return &ast.NullStmt{NodePos: at(t)}, nil
	case p.isKeyword("if"):
		return p.parseIfStmt()
	case p.isKeyword("while"):
		return p.parseWhileStmt()
	case p.isKeyword("do"):
		return p.parseDoWhileStmt()
	case p.isKeyword("for"):
		return p.parseForStmt()
	case p.isKeyword("switch"):
		return p.parseSwitchStmt()
	case p.isKeyword("case"):
		return p.parseCaseStmt()
	case p.isKeyword("default"):
		return p.parseDefaultStmt()
	case p.isKeyword("break"):
		p.advance()
		_, err := p.expectPunct(";")
		return &ast.BreakStmt{NodePos: at(t)}, err
	case p.isKeyword("continue"):
		p.advance()
		_, err := p.expectPunct(";")
		return &ast.ContinueStmt{NodePos: at(t)}, err
	case p.isKeyword("return"):
		return p.parseReturnStmt()
	case p.isKeyword("goto"):
		return p.parseGotoStmt()
	case p.looksLikeLabel():
		return p.parseLabelStmt()
	default:
		return p.parseExprOrGotoIndirectStmt()
	}
}

func (p *parser) parseIfStmt() (ast.Stmt, error) {
	start := p.advance() // "if"
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStmt{NodePos: at(start), Cond: cond, Then: then}
	if p.acceptKeyword("else") {
		elseStmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmt.Else = elseStmt
	}
	return stmt, nil
}

func (p *parser) parseWhileStmt() (ast.Stmt, error) {
	start := p.advance() // "while"
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{NodePos: at(start), Cond: cond, Body: body}, nil
}

func (p *parser) parseDoWhileStmt() (ast.Stmt, error) {
	start := p.advance() // "do"
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("while"); err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return &ast.DoWhileStmt{NodePos: at(start), Body: body, Cond: cond}, nil
}

func (p *parser) expectKeyword(s string) (token.Token, error) {
	if !p.isKeyword(s) {
		return token.Token{}, errAt(p.cur().Pos(), "Expected '%s', found '%s'", s, p.cur().Lexeme)
	}
	return p.advance(), nil
}

func (p *parser) parseForStmt() (ast.Stmt, error) {
	start := p.advance() // "for"
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	stmt := &ast.ForStmt{NodePos: at(start)}
	if !p.isPunct(";") {
		if p.startsDeclarationSpecifier() {
			init, err := p.parseLocalDeclaration()
			if err != nil {
				return nil, err
			}
			stmt.Init = init
		} else {
			initExpr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct(";"); err != nil {
				return nil, err
			}
			stmt.Init = &ast.ExprStmt{NodePos: ast.NodePos{At: initExpr.Pos()}, X: initExpr}
		}
	} else {
		p.advance()
	}
	if !p.isPunct(";") {
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Cond = cond
	}
	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	if !p.isPunct(")") {
		post, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Post = post
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	stmt.Body = body
	return stmt, nil
}

func (p *parser) parseSwitchStmt() (ast.Stmt, error) {
	start := p.advance() // "switch"
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.SwitchStmt{NodePos: at(start), Cond: cond, Body: body}, nil
}

func (p *parser) parseCaseStmt() (ast.Stmt, error) {
	start := p.advance() // "case"
	value, err := p.parseConditionalExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.CaseStmt{NodePos: at(start), Value: value, Body: body}, nil
}

func (p *parser) parseDefaultStmt() (ast.Stmt, error) {
	start := p.advance() // "default"
	if _, err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.DefaultStmt{NodePos: at(start), Body: body}, nil
}

func (p *parser) parseReturnStmt() (ast.Stmt, error) {
	start := p.advance() // "return"
	if p.acceptPunct(";") {
		return &ast.ReturnStmt{NodePos: at(start)}, nil
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{NodePos: at(start), Value: value}, nil
}

func (p *parser) parseGotoStmt() (ast.Stmt, error) {
	start := p.advance() // "goto"
	if p.isPunct("*") {
		// GNU computed goto: goto *expr;
		p.advance()
		target, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(";"); err != nil {
			return nil, err
		}
		return &ast.IndirectGotoStmt{NodePos: at(start), Target: target}, nil
	}
	label, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return &ast.GotoStmt{NodePos: at(start), Label: label.Lexeme}, nil
}

func (p *parser) parseLabelStmt() (ast.Stmt, error) {
	start := p.advance() // identifier
	if _, err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.LabelStmt{NodePos: at(start), Name: start.Lexeme, Body: body}, nil
}

func (p *parser) parseExprOrGotoIndirectStmt() (ast.Stmt, error) {
	start := p.cur()
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{NodePos: at(start), X: x}, nil
}
