package parser

import (
	"strings"

	"github.com/tcztzy/xcc-sub000/internal/cc/ast"
	"github.com/tcztzy/xcc-sub000/internal/cc/token"
)

// declSpec accumulates the declaration-specifiers preceding a declarator:
// storage class, qualifiers, and the type itself (built either from a
// sequence of type keywords, a struct/union/enum definition, a typedef
// name, or a __typeof__ operand).
type declSpec struct {
	typeWords     []string
	storageClass  ast.StorageClass
	isInline      bool
	isNoreturn    bool
	isThreadLocal bool
	alignment     int
	qualifiers    []string
	isAtomic      bool
	atomicTarget  *ast.TypeSpec
	tagKind       string // "struct", "union", "enum", or ""
	tag           string
	enumMembers   []ast.EnumMember
	recordMembers []ast.RecordMemberDecl
	typeofExpr    ast.Expr
	at            token.Cursor
}

func (s *declSpec) baseName() string {
	switch s.tagKind {
	case "struct", "union":
		return s.tagKind + " " + s.tag
	case "enum":
		return "enum " + s.tag
	}
	if s.typeofExpr != nil {
		return "__typeof__"
	}
	if len(s.typeWords) == 0 {
		return "int" // implicit int, a pre-C99 but still widely-tolerated rule
	}
	return strings.Join(s.typeWords, " ")
}

func (p *parser) parseDeclarationSpecifiers() (*declSpec, error) {
	spec := &declSpec{at: p.cur().Pos()}
	sawType := false
	for {
		p.acceptKeyword("__extension__")
		t := p.cur()
		switch {
		case t.Kind == token.Keyword && storageKeywords[t.Lexeme]:
			p.advance()
			spec.storageClass = ast.StorageClass(t.Lexeme)
			if t.Lexeme == "_Thread_local" {
				spec.isThreadLocal = true
			}
			continue
		case t.Kind == token.Keyword && t.Lexeme == "inline":
			p.advance()
			spec.isInline = true
			continue
		case t.Kind == token.Keyword && t.Lexeme == "_Noreturn":
			p.advance()
			spec.isNoreturn = true
			continue
		case t.Kind == token.Keyword && t.Lexeme == "_Alignas":
			p.advance()
			if _, err := p.expectPunct("("); err != nil {
				return nil, err
			}
			if p.startsDeclarationSpecifier() {
				ts, err := p.parseTypeName()
				if err != nil {
					return nil, err
				}
				spec.alignment = ts.PointerDepth() + 1 // placeholder: exact width resolution is a target-layout concern
			} else {
				expr, err := p.parseConditionalExpr()
				if err != nil {
					return nil, err
				}
				if lit, ok := expr.(*ast.IntLiteral); ok {
					spec.alignment = parseIntLiteralValue(lit.Value)
				}
			}
			if _, err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			continue
		case t.Kind == token.Keyword && qualifierKeywords[t.Lexeme] && t.Lexeme != "_Atomic":
			p.advance()
			spec.qualifiers = append(spec.qualifiers, t.Lexeme)
			continue
		case t.Kind == token.Keyword && t.Lexeme == "_Atomic" && p.peekAt(1).Lexeme == "(":
			p.advance()
			p.advance() // '('
			ts, err := p.parseTypeName()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			spec.isAtomic = true
			spec.atomicTarget = ts
			sawType = true
			continue
		case t.Kind == token.Keyword && t.Lexeme == "_Atomic":
			p.advance()
			spec.isAtomic = true
			continue
		case t.Kind == token.Keyword && (t.Lexeme == "struct" || t.Lexeme == "union"):
			if err := p.parseRecordSpecifier(spec); err != nil {
				return nil, err
			}
			sawType = true
			continue
		case t.Kind == token.Keyword && t.Lexeme == "enum":
			if err := p.parseEnumSpecifier(spec); err != nil {
				return nil, err
			}
			sawType = true
			continue
		case t.Kind == token.Keyword && (t.Lexeme == "__typeof__" || t.Lexeme == "__typeof" || t.Lexeme == "typeof"):
			p.advance()
			if _, err := p.expectPunct("("); err != nil {
				return nil, err
			}
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			spec.typeofExpr = expr
			sawType = true
			continue
		case t.Kind == token.Keyword && typeKeywords[t.Lexeme] && !sawType:
			// Keywords like "int"/"char" and modifiers like "unsigned"/"long"
			// are accumulated the same way; "long long int" joins into one
			// base-name string rather than being width-resolved here.
			p.advance()
			spec.typeWords = append(spec.typeWords, t.Lexeme)
			continue
		case !sawType && p.isTypedefName():
			p.advance()
			spec.typeWords = []string{t.Lexeme}
			sawType = true
			continue
		}
		break
	}
	return spec, nil
}

func (p *parser) parseRecordSpecifier(spec *declSpec) error {
	kw := p.advance() // "struct" or "union"
	spec.tagKind = kw.Lexeme
	if p.cur().Kind == token.Ident {
		spec.tag = p.advance().Lexeme
	}
	if !p.acceptPunct("{") {
		return nil // reference to a previously-declared (or forward) tag
	}
	for !p.isPunct("}") {
		memberSpec, err := p.parseDeclarationSpecifiers()
		if err != nil {
			return err
		}
		for {
			var name string
			var ops []ast.DeclaratorOp
			if !p.isPunct(":") {
				n, declOps, _, _, _, err := p.parseDeclarator()
				if err != nil {
					return err
				}
				name, ops = n, declOps
			}
			member := ast.RecordMemberDecl{TypeSpec: applyDeclaratorOps(memberSpec, ops), Name: name}
			if p.acceptPunct(":") {
				width, err := p.parseConditionalExpr()
				if err != nil {
					return err
				}
				member.BitWidth = width
			}
			spec.recordMembers = append(spec.recordMembers, member)
			if !p.acceptPunct(",") {
				break
			}
		}
		if _, err := p.expectPunct(";"); err != nil {
			return err
		}
	}
	_, err := p.expectPunct("}")
	return err
}

func (p *parser) parseEnumSpecifier(spec *declSpec) error {
	p.advance() // "enum"
	spec.tagKind = "enum"
	if p.cur().Kind == token.Ident {
		spec.tag = p.advance().Lexeme
	}
	if !p.acceptPunct("{") {
		return nil
	}
	for !p.isPunct("}") {
		name, err := p.expectIdent()
		if err != nil {
			return err
		}
		member := ast.EnumMember{Name: name.Lexeme}
		if p.acceptPunct("=") {
			v, err := p.parseConditionalExpr()
			if err != nil {
				return err
			}
			member.Value = v
		}
		spec.enumMembers = append(spec.enumMembers, member)
		if !p.acceptPunct(",") {
			break
		}
	}
	_, err := p.expectPunct("}")
	return err
}

// parseDeclarator parses pointer* direct-declarator, returning the
// declared name (empty for an abstract declarator), its declarator-operator
// stack, and function-declarator details if the innermost suffix is a
// parameter list.
func (p *parser) parseDeclarator() (name string, ops []ast.DeclaratorOp, isFunc bool, params []ast.Param, variadic bool, err error) {
	for p.acceptPunct("*") {
		for p.cur().Kind == token.Keyword && qualifierKeywords[p.cur().Lexeme] {
			p.advance()
		}
		ops = append(ops, ast.DeclaratorOp{Kind: ast.OpPointer})
	}
	if p.acceptPunct("(") {
		// Could be a parenthesized declarator (pointer-to-function etc.) or,
		// at this grammar's simplification level, a parameter list with no
		// preceding name (an abstract function declarator). Disambiguate by
		// checking whether a nested declarator or a type starts here.
		if p.isPunct(")") || p.startsDeclarationSpecifier() {
			params, variadic, err = p.parseParamList()
			if err != nil {
				return "", nil, false, nil, false, err
			}
			isFunc = true
			suffixOps, _, _, sfErr := p.parseDeclaratorSuffixes()
			if sfErr != nil {
				return "", nil, false, nil, false, sfErr
			}
			ops = append(ops, suffixOps...)
			return "", ops, isFunc, params, variadic, nil
		}
		innerName, innerOps, innerFunc, innerParams, innerVariadic, innerErr := p.parseDeclarator()
		if innerErr != nil {
			return "", nil, false, nil, false, innerErr
		}
		if _, err := p.expectPunct(")"); err != nil {
			return "", nil, false, nil, false, err
		}
		suffixOps, suffixFunc, suffixParams, sfErr := p.parseDeclaratorSuffixes()
		if sfErr != nil {
			return "", nil, false, nil, false, sfErr
		}
		ops = append(ops, suffixOps...)
		ops = append(ops, innerOps...)
		_ = suffixParams
		if suffixFunc != nil && len(innerOps) == 0 {
			// No pointer/array sat between the identifier and these parens
			// (e.g. "int (f)(int)"), so the redundant parens don't change
			// anything: this is still a plain function declarator.
			return innerName, ops, true, suffixFunc.params, suffixFunc.variadic, nil
		}
		// A pointer (or array) sits between the identifier and this
		// function suffix (e.g. "int (*f)(int)"): f is a pointer to a
		// function, not a function itself.
		return innerName, ops, innerFunc, innerParams, innerVariadic, nil
	}
	if p.cur().Kind == token.Ident {
		name = p.advance().Lexeme
	}
	suffixOps, suffixFunc, _, sfErr := p.parseDeclaratorSuffixes()
	if sfErr != nil {
		return "", nil, false, nil, false, sfErr
	}
	if suffixFunc != nil {
		isFunc = true
		params = suffixFunc.params
		variadic = suffixFunc.variadic
	}
	ops = append(ops, suffixOps...)
	return name, ops, isFunc, params, variadic, nil
}

// funcSuffix carries the parameter list of the last "(" ... ")" suffix seen
// by parseDeclaratorSuffixes; it isn't stored in a TypeSpec's declarator-op
// stack since a TypeSpec only needs to know about pointers and arrays once
// the function boundary is resolved by the caller.
type funcSuffix struct {
	params   []ast.Param
	variadic bool
}

func (p *parser) parseDeclaratorSuffixes() (ops []ast.DeclaratorOp, fn *funcSuffix, lastParams []ast.Param, err error) {
	for {
		switch {
		case p.acceptPunct("["):
			var length ast.Expr
			if !p.isPunct("]") {
				l, lerr := p.parseConditionalExpr()
				if lerr != nil {
					return nil, nil, nil, lerr
				}
				length = l
			}
			if _, perr := p.expectPunct("]"); perr != nil {
				return nil, nil, nil, perr
			}
			ops = append(ops, ast.DeclaratorOp{Kind: ast.OpArray, Length: length})
		case p.acceptPunct("("):
			params, variadic, perr := p.parseParamList()
			if perr != nil {
				return nil, nil, nil, perr
			}
			fn = &funcSuffix{params: params, variadic: variadic}
			lastParams = params
		default:
			return ops, fn, lastParams, nil
		}
	}
}

func (p *parser) parseParamList() ([]ast.Param, bool, error) {
	var params []ast.Param
	variadic := false
	if p.isPunct(")") {
		p.advance()
		return nil, false, nil
	}
	for {
		if p.acceptPunct("...") {
			variadic = true
			break
		}
		spec, err := p.parseDeclarationSpecifiers()
		if err != nil {
			return nil, false, err
		}
		name, ops, _, _, _, err := p.parseDeclarator()
		if err != nil {
			return nil, false, err
		}
		params = append(params, ast.Param{TypeSpec: applyDeclaratorOps(spec, ops), Name: name})
		if !p.acceptPunct(",") {
			break
		}
	}
	_, err := p.expectPunct(")")
	return params, variadic, err
}

func applyDeclaratorOps(spec *declSpec, ops []ast.DeclaratorOp) *ast.TypeSpec {
	return &ast.TypeSpec{
		Name:          spec.baseName(),
		DeclaratorOps: ops,
		Qualifiers:    spec.qualifiers,
		IsAtomic:      spec.isAtomic,
		AtomicTarget:  spec.atomicTarget,
		EnumTag:       condTag(spec, "enum"),
		EnumMembers:   spec.enumMembers,
		RecordTag:     condRecordTag(spec),
		RecordMembers: spec.recordMembers,
		TypeofExpr:    spec.typeofExpr,
		At:            spec.at,
	}
}

func condTag(spec *declSpec, kind string) string {
	if spec.tagKind == kind {
		return spec.tag
	}
	return ""
}

func condRecordTag(spec *declSpec) string {
	if spec.tagKind == "struct" || spec.tagKind == "union" {
		return spec.tag
	}
	return ""
}

// parseTypeName parses a type-name (declaration-specifiers + optional
// abstract declarator), as used by sizeof/alignof/cast/compound-literal.
func (p *parser) parseTypeName() (*ast.TypeSpec, error) {
	spec, err := p.parseDeclarationSpecifiers()
	if err != nil {
		return nil, err
	}
	_, ops, _, _, _, err := p.parseDeclarator()
	if err != nil {
		return nil, err
	}
	return applyDeclaratorOps(spec, ops), nil
}

func (p *parser) parseStaticAssert() (ast.Stmt, error) {
	start := p.advance() // "_Static_assert"
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	cond, err := p.parseConditionalExpr()
	if err != nil {
		return nil, err
	}
	var msg *ast.StringLiteral
	if p.acceptPunct(",") {
		t := p.cur()
		if t.Kind != token.StringLiteral {
			return nil, errAt(t.Pos(), "Expected string literal in _Static_assert")
		}
		p.advance()
		msg = &ast.StringLiteral{NodePos: at(t), Value: t.Lexeme}
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return &ast.StaticAssertDecl{NodePos: at(start), Cond: cond, Message: msg}, nil
}

func parseIntLiteralValue(lex string) int {
	body := strings.TrimRight(lex, "uUlL")
	n := 0
	base := 10
	switch {
	case strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X"):
		base, body = 16, body[2:]
	case strings.HasPrefix(body, "0") && len(body) > 1:
		base, body = 8, body[1:]
	}
	for _, c := range body {
		d := digitValue(byte(c))
		if d < 0 || d >= base {
			return n
		}
		n = n*base + d
	}
	return n
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	default:
		return -1
	}
}
