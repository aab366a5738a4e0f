// Package sema implements the single-pass semantic analyzer: it builds a
// function/local symbol table and an expression-to-type map, enforcing a
// narrow int/void typing core over the declarations and statements the
// parser produces.
package sema

import (
	"fmt"

	"github.com/tcztzy/xcc-sub000/internal/cc/ast"
	"github.com/tcztzy/xcc-sub000/internal/cc/token"
	"github.com/tcztzy/xcc-sub000/internal/cc/types"
)

// Error is a semantic diagnostic. Line/Column are 0 when no source
// position is available for the failing node.
type Error struct {
	Message string
	Line    int
	Column  int
}

func (e *Error) Error() string { return e.Message }

func errAt(pos token.Cursor, format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Line: pos.Line, Column: pos.Column}
}

// VarSymbol is a local variable or parameter binding.
type VarSymbol struct {
	Name string
	Type types.Type
}

// FunctionSymbol records a function's return type and its analyzed locals.
type FunctionSymbol struct {
	Name       string
	ReturnType types.Type
	Locals     map[string]VarSymbol
}

// TypeMap is keyed by node identity (Go pointer equality of the Expr
// interface's dynamic value), not structural equality: two syntactically
// identical subexpressions receive independent entries, matching the
// Python original's id()-keyed dict.
type TypeMap struct {
	m map[ast.Expr]types.Type
}

func newTypeMap() *TypeMap { return &TypeMap{m: make(map[ast.Expr]types.Type)} }

func (tm *TypeMap) set(node ast.Expr, t types.Type) { tm.m[node] = t }

// Get returns the type recorded for node, and whether one was recorded.
func (tm *TypeMap) Get(node ast.Expr) (types.Type, bool) {
	t, ok := tm.m[node]
	return t, ok
}

// Unit is the result of a successful analysis.
type Unit struct {
	Functions map[string]FunctionSymbol
	TypeMap   *TypeMap
}

// Scope is a flat lexical scope: define fails on duplicate names within the
// scope, and lookup consults only this scope.
type Scope struct {
	symbols map[string]VarSymbol
}

func newScope() *Scope { return &Scope{symbols: make(map[string]VarSymbol)} }

func (s *Scope) define(sym VarSymbol, pos token.Cursor) error {
	if _, exists := s.symbols[sym.Name]; exists {
		return errAt(pos, "Duplicate declaration: %s", sym.Name)
	}
	s.symbols[sym.Name] = sym
	return nil
}

func (s *Scope) lookup(name string) (VarSymbol, bool) {
	sym, ok := s.symbols[name]
	return sym, ok
}

type loopKind int

const (
	inLoop loopKind = iota
	inSwitch
)

// Analyzer runs two sub-passes: one collecting function signatures, the
// other walking each function body to resolve identifiers, assign
// expression types, and enforce control-flow nesting rules.
type Analyzer struct {
	functions           map[string]FunctionSymbol
	typeMap             *TypeMap
	functionReturnTypes map[string]types.Type
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{
		functions:           make(map[string]FunctionSymbol),
		typeMap:             newTypeMap(),
		functionReturnTypes: make(map[string]types.Type),
	}
}

// Analyze runs both sub-passes over unit and returns the resulting Unit, or
// the first Error encountered.
func Analyze(unit *ast.TranslationUnit) (*Unit, error) {
	return NewAnalyzer().Analyze(unit)
}

func (a *Analyzer) Analyze(unit *ast.TranslationUnit) (*Unit, error) {
	for _, fn := range unit.Functions {
		if _, exists := a.functionReturnTypes[fn.Name]; exists {
			return nil, errAt(fn.Pos(), "Duplicate function definition: %s", fn.Name)
		}
		a.functionReturnTypes[fn.Name] = resolveType(fn.ReturnType)
	}
	for _, fn := range unit.Functions {
		if err := a.analyzeFunction(fn); err != nil {
			return nil, err
		}
	}
	return &Unit{Functions: a.functions, TypeMap: a.typeMap}, nil
}

func resolveType(ts *ast.TypeSpec) types.Type {
	if ts != nil && ts.Name == "int" {
		return types.INT
	}
	return types.VOID
}

func (a *Analyzer) analyzeFunction(fn *ast.FunctionDef) error {
	returnType := a.functionReturnTypes[fn.Name]
	scope := newScope()
	if err := a.defineParams(fn.Params, scope); err != nil {
		return err
	}
	if fn.Body != nil {
		if err := a.analyzeCompound(fn.Body, scope, returnType, nil); err != nil {
			return err
		}
	}
	a.functions[fn.Name] = FunctionSymbol{Name: fn.Name, ReturnType: returnType, Locals: scope.symbols}
	return nil
}

func (a *Analyzer) defineParams(params []ast.Param, scope *Scope) error {
	if len(params) == 1 && params[0].Name == "" && params[0].TypeSpec != nil &&
		params[0].TypeSpec.Name == "void" && len(params[0].TypeSpec.DeclaratorOps) == 0 {
		return nil // "(void)": an empty parameter list
	}
	for _, p := range params {
		if p.TypeSpec != nil && p.TypeSpec.Name == "void" {
			return errAt(p.TypeSpec.At, "Invalid parameter type: void")
		}
		if err := scope.define(VarSymbol{Name: p.Name, Type: resolveType(p.TypeSpec)}, p.TypeSpec.At); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) analyzeCompound(stmt *ast.CompoundStmt, scope *Scope, returnType types.Type, enclosing *loopKind) error {
	for _, item := range stmt.Statements {
		if err := a.analyzeStmt(item, scope, returnType, enclosing); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) analyzeStmt(stmt ast.Stmt, scope *Scope, returnType types.Type, enclosing *loopKind) error {
	switch s := stmt.(type) {
	case *ast.DeclStmt:
		if s.TypeSpec != nil && s.TypeSpec.Name == "void" {
			return errAt(s.Pos(), "Invalid object type: void")
		}
		varType := resolveType(s.TypeSpec)
		if err := scope.define(VarSymbol{Name: s.Name, Type: varType}, s.Pos()); err != nil {
			return err
		}
		if s.Init != nil {
			if expr, ok := s.Init.(ast.Expr); ok {
				if _, err := a.analyzeExpr(expr, scope); err != nil {
					return err
				}
			}
		}
		return nil
	case *ast.ExprStmt:
		_, err := a.analyzeExpr(s.X, scope)
		return err
	case *ast.ReturnStmt:
		if s.Value == nil {
			if !returnType.Equal(types.VOID) {
				return errAt(s.Pos(), "Non-void function must return a value")
			}
			return nil
		}
		if returnType.Equal(types.VOID) {
			return errAt(s.Pos(), "Void function should not return a value")
		}
		_, err := a.analyzeExpr(s.Value, scope)
		return err
	case *ast.CompoundStmt:
		return a.analyzeCompound(s, scope, returnType, enclosing)
	case *ast.IfStmt:
		if err := a.checkCondition(s.Cond, scope); err != nil {
			return err
		}
		if err := a.analyzeStmt(s.Then, scope, returnType, enclosing); err != nil {
			return err
		}
		if s.Else != nil {
			return a.analyzeStmt(s.Else, scope, returnType, enclosing)
		}
		return nil
	case *ast.WhileStmt:
		if err := a.checkCondition(s.Cond, scope); err != nil {
			return err
		}
		k := inLoop
		return a.analyzeStmt(s.Body, scope, returnType, &k)
	case *ast.DoWhileStmt:
		k := inLoop
		if err := a.analyzeStmt(s.Body, scope, returnType, &k); err != nil {
			return err
		}
		return a.checkCondition(s.Cond, scope)
	case *ast.ForStmt:
		forScope := newScope()
		if s.Init != nil {
			if err := a.analyzeStmt(s.Init, forScope, returnType, enclosing); err != nil {
				return err
			}
		}
		if s.Cond != nil {
			if err := a.checkCondition(s.Cond, forScope); err != nil {
				return err
			}
		}
		if s.Post != nil {
			if _, err := a.analyzeExpr(s.Post, forScope); err != nil {
				return err
			}
		}
		k := inLoop
		return a.analyzeStmt(s.Body, forScope, returnType, &k)
	case *ast.SwitchStmt:
		if _, err := a.analyzeExpr(s.Cond, scope); err != nil {
			return err
		}
		k := inSwitch
		return a.analyzeStmt(s.Body, scope, returnType, &k)
	case *ast.CaseStmt:
		if enclosing == nil || *enclosing != inSwitch {
			return errAt(s.Pos(), "'case' statement not in switch statement")
		}
		if _, err := a.analyzeExpr(s.Value, scope); err != nil {
			return err
		}
		return a.analyzeStmt(s.Body, scope, returnType, enclosing)
	case *ast.DefaultStmt:
		if enclosing == nil || *enclosing != inSwitch {
			return errAt(s.Pos(), "'default' statement not in switch statement")
		}
		return a.analyzeStmt(s.Body, scope, returnType, enclosing)
	case *ast.BreakStmt:
		if enclosing == nil {
			return errAt(s.Pos(), "'break' statement not in loop or switch statement")
		}
		return nil
	case *ast.ContinueStmt:
		if enclosing == nil || *enclosing != inLoop {
			return errAt(s.Pos(), "'continue' statement not in loop statement")
		}
		return nil
	case *ast.LabelStmt:
		return a.analyzeStmt(s.Body, scope, returnType, enclosing)
	case *ast.GotoStmt:
		return nil
	case *ast.NullStmt:
		return nil
	default:
		return errAt(stmt.Pos(), "Unsupported statement")
	}
}

func (a *Analyzer) checkCondition(expr ast.Expr, scope *Scope) error {
	t, err := a.analyzeExpr(expr, scope)
	if err != nil {
		return err
	}
	if t.Equal(types.VOID) {
		return errAt(expr.Pos(), "Condition must not be void")
	}
	return nil
}

func (a *Analyzer) analyzeExpr(expr ast.Expr, scope *Scope) (types.Type, error) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		a.typeMap.set(e, types.INT)
		return types.INT, nil
	case *ast.CharLiteral:
		a.typeMap.set(e, types.INT)
		return types.INT, nil
	case *ast.StringLiteral:
		a.typeMap.set(e, types.INT)
		return types.INT, nil
	case *ast.Identifier:
		sym, ok := scope.lookup(e.Name)
		if !ok {
			return types.Type{}, errAt(e.Pos(), "Undeclared identifier: %s", e.Name)
		}
		a.typeMap.set(e, sym.Type)
		return sym.Type, nil
	case *ast.UnaryExpr:
		if _, err := a.analyzeExpr(e.Operand, scope); err != nil {
			return types.Type{}, err
		}
		a.typeMap.set(e, types.INT)
		return types.INT, nil
	case *ast.UpdateExpr:
		if _, err := a.analyzeExpr(e.Operand, scope); err != nil {
			return types.Type{}, err
		}
		a.typeMap.set(e, types.INT)
		return types.INT, nil
	case *ast.BinaryExpr:
		if _, err := a.analyzeExpr(e.Left, scope); err != nil {
			return types.Type{}, err
		}
		if _, err := a.analyzeExpr(e.Right, scope); err != nil {
			return types.Type{}, err
		}
		a.typeMap.set(e, types.INT)
		return types.INT, nil
	case *ast.CommaExpr:
		if _, err := a.analyzeExpr(e.Left, scope); err != nil {
			return types.Type{}, err
		}
		rt, err := a.analyzeExpr(e.Right, scope)
		if err != nil {
			return types.Type{}, err
		}
		a.typeMap.set(e, rt)
		return rt, nil
	case *ast.ConditionalExpr:
		if err := a.checkCondition(e.Cond, scope); err != nil {
			return types.Type{}, err
		}
		if _, err := a.analyzeExpr(e.Then, scope); err != nil {
			return types.Type{}, err
		}
		if _, err := a.analyzeExpr(e.Else, scope); err != nil {
			return types.Type{}, err
		}
		a.typeMap.set(e, types.INT)
		return types.INT, nil
	case *ast.AssignExpr:
		if _, ok := e.Target.(*ast.Identifier); !ok {
			return types.Type{}, errAt(e.Pos(), "Assignment target is not assignable")
		}
		if _, err := a.analyzeExpr(e.Target, scope); err != nil {
			return types.Type{}, err
		}
		if _, err := a.analyzeExpr(e.Value, scope); err != nil {
			return types.Type{}, err
		}
		a.typeMap.set(e, types.INT)
		return types.INT, nil
	case *ast.CallExpr:
		callee, ok := e.Callee.(*ast.Identifier)
		if !ok {
			return types.Type{}, errAt(e.Pos(), "Call target is not a function")
		}
		returnType, ok := a.functionReturnTypes[callee.Name]
		if !ok {
			return types.Type{}, errAt(e.Pos(), "Undeclared function: %s", callee.Name)
		}
		for _, arg := range e.Args {
			if _, err := a.analyzeExpr(arg, scope); err != nil {
				return types.Type{}, err
			}
		}
		a.typeMap.set(e, returnType)
		return returnType, nil
	default:
		return types.Type{}, errAt(expr.Pos(), "Unsupported expression")
	}
}
