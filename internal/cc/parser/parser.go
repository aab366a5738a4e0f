// Package parser implements a recursive-descent parser that turns a
// translation-mode token stream into the typed AST in internal/cc/ast,
// following the full C11 grammar plus a few common GNU extensions
// (statement expressions, __extension__, __typeof__).
package parser

import (
	"fmt"

	"github.com/tcztzy/xcc-sub000/internal/cc/ast"
	"github.com/tcztzy/xcc-sub000/internal/cc/token"
)

// Error is a syntax diagnostic anchored at the offending token.
type Error struct {
	Message string
	Line    int
	Column  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

func errAt(pos token.Cursor, format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Line: pos.Line, Column: pos.Column}
}

type parser struct {
	toks     []token.Token
	pos      int
	typedefs map[string]bool
}

// Parse builds a TranslationUnit from toks, as produced by lexer.Lex.
func Parse(toks []token.Token) (*ast.TranslationUnit, error) {
	p := &parser{toks: toks, typedefs: make(map[string]bool)}
	unit := &ast.TranslationUnit{}
	for !p.atEnd() {
		if err := p.parseExternalDeclaration(unit); err != nil {
			return nil, err
		}
	}
	return unit, nil
}

func at(t token.Token) ast.NodePos { return ast.NodePos{At: t.Pos()} }

func (p *parser) atEnd() bool {
	return p.pos >= len(p.toks) || p.toks[p.pos].Kind == token.EOF
}

func (p *parser) cur() token.Token {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	if len(p.toks) > 0 {
		return p.toks[len(p.toks)-1]
	}
	return token.EOFAt(token.CursorInit())
}

func (p *parser) peekAt(n int) token.Token {
	i := p.pos + n
	if i < len(p.toks) {
		return p.toks[i]
	}
	return p.cur()
}

func (p *parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) isPunct(s string) bool {
	t := p.cur()
	return t.Kind == token.Punctuator && t.Lexeme == s
}

func (p *parser) isKeyword(s string) bool {
	t := p.cur()
	return t.Kind == token.Keyword && t.Lexeme == s
}

func (p *parser) acceptPunct(s string) bool {
	if p.isPunct(s) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) acceptKeyword(s string) bool {
	if p.isKeyword(s) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectPunct(s string) (token.Token, error) {
	if !p.isPunct(s) {
		return token.Token{}, errAt(p.cur().Pos(), "Expected '%s', found '%s'", s, p.cur().Lexeme)
	}
	return p.advance(), nil
}

func (p *parser) expectIdent() (token.Token, error) {
	if p.cur().Kind != token.Ident {
		return token.Token{}, errAt(p.cur().Pos(), "Expected identifier, found '%s'", p.cur().Lexeme)
	}
	return p.advance(), nil
}

func (p *parser) isTypedefName() bool {
	return p.cur().Kind == token.Ident && p.typedefs[p.cur().Lexeme]
}

var typeKeywords = map[string]bool{
	"void": true, "char": true, "short": true, "int": true, "long": true,
	"float": true, "double": true, "signed": true, "unsigned": true,
	"_Bool": true, "_Complex": true, "_Imaginary": true,
	"struct": true, "union": true, "enum": true, "_Atomic": true,
	"__typeof__": true, "__typeof": true, "typeof": true,
}

var qualifierKeywords = map[string]bool{"const": true, "volatile": true, "restrict": true, "_Atomic": true}

var storageKeywords = map[string]bool{
	"typedef": true, "extern": true, "static": true, "auto": true,
	"register": true, "_Thread_local": true,
}

func (p *parser) startsDeclarationSpecifier() bool {
	t := p.cur()
	if t.Kind == token.Ident {
		return p.typedefs[t.Lexeme]
	}
	if t.Kind != token.Keyword {
		return false
	}
	return typeKeywords[t.Lexeme] || qualifierKeywords[t.Lexeme] || storageKeywords[t.Lexeme] ||
		t.Lexeme == "inline" || t.Lexeme == "_Noreturn" || t.Lexeme == "_Alignas" || t.Lexeme == "__extension__"
}

// parseExternalDeclaration parses one top-level function definition or
// declaration, which may declare several names (e.g. "int a, b;").
func (p *parser) parseExternalDeclaration(unit *ast.TranslationUnit) error {
	p.acceptKeyword("__extension__")
	if p.acceptPunct(";") {
		return nil // stray top-level semicolon
	}
	if p.isKeyword("_Static_assert") {
		decl, err := p.parseStaticAssert()
		if err != nil {
			return err
		}
		unit.Declarations = append(unit.Declarations, decl)
		return nil
	}

	start := p.cur()
	spec, err := p.parseDeclarationSpecifiers()
	if err != nil {
		return err
	}
	if p.acceptPunct(";") {
		return nil // e.g. a bare "struct Foo;" forward declaration
	}

	name, declOps, isFunc, params, variadic, err := p.parseDeclarator()
	if err != nil {
		return err
	}
	ts := applyDeclaratorOps(spec, declOps)

	if isFunc && p.isPunct("{") {
		body, err := p.parseCompoundStmt()
		if err != nil {
			return err
		}
		unit.Functions = append(unit.Functions, &ast.FunctionDef{
			ReturnType:   ts,
			Name:         name,
			Params:       params,
			Body:         body,
			StorageClass: spec.storageClass,
			IsInline:     spec.isInline,
			IsNoreturn:   spec.isNoreturn,
			HasPrototype: true,
			IsVariadic:   variadic,
			At:           start.Pos(),
		})
		return nil
	}

	if err := p.finishDeclarator(unit, spec, start, name, ts, isFunc, params, variadic); err != nil {
		return err
	}
	for p.acceptPunct(",") {
		n2, ops2, isFunc2, params2, variadic2, err := p.parseDeclarator()
		if err != nil {
			return err
		}
		ts2 := applyDeclaratorOps(spec, ops2)
		if err := p.finishDeclarator(unit, spec, start, n2, ts2, isFunc2, params2, variadic2); err != nil {
			return err
		}
	}
	_, err = p.expectPunct(";")
	return err
}

func (p *parser) finishDeclarator(unit *ast.TranslationUnit, spec *declSpec, start token.Token, name string, ts *ast.TypeSpec, isFunc bool, params []ast.Param, variadic bool) error {
	if spec.storageClass == ast.StorageTypedef {
		p.typedefs[name] = true
		unit.Declarations = append(unit.Declarations, &ast.TypedefDecl{NodePos: at(start), TypeSpec: ts, Name: name})
		return nil
	}
	if isFunc {
		unit.Functions = append(unit.Functions, &ast.FunctionDef{
			ReturnType: ts, Name: name, Params: params, StorageClass: spec.storageClass,
			IsInline: spec.isInline, IsNoreturn: spec.isNoreturn, HasPrototype: true, IsVariadic: variadic, At: start.Pos(),
		})
		return nil
	}
	var initExpr ast.Expr
	if p.acceptPunct("=") {
		var err error
		initExpr, err = p.parseInitializer()
		if err != nil {
			return err
		}
	}
	unit.Declarations = append(unit.Declarations, &ast.DeclStmt{
		NodePos: at(start), TypeSpec: ts, Name: name, Init: initExpr,
		StorageClass: spec.storageClass, Alignment: spec.alignment, IsThreadLocal: spec.isThreadLocal,
	})
	return nil
}
