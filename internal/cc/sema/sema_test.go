package sema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcztzy/xcc-sub000/internal/cc/ast"
	"github.com/tcztzy/xcc-sub000/internal/cc/token"
	"github.com/tcztzy/xcc-sub000/internal/cc/types"
)

func intType() *ast.TypeSpec { return &ast.TypeSpec{Name: "int"} }
func voidType() *ast.TypeSpec { return &ast.TypeSpec{Name: "void"} }

func TestAnalyzeMainReturningZero(t *testing.T) {
	lit := &ast.IntLiteral{Value: "0"}
	unit := &ast.TranslationUnit{Functions: []*ast.FunctionDef{{
		ReturnType: intType(),
		Name:       "main",
		Body:       &ast.CompoundStmt{Statements: []ast.Stmt{&ast.ReturnStmt{Value: lit}}},
	}}}

	result, err := Analyze(unit)
	require.NoError(t, err)
	fn, ok := result.Functions["main"]
	require.True(t, ok)
	assert.True(t, fn.ReturnType.Equal(types.INT))

	recorded, ok := result.TypeMap.Get(lit)
	require.True(t, ok)
	assert.True(t, recorded.Equal(types.INT))
}

func TestNonVoidFunctionMustReturnAValue(t *testing.T) {
	unit := &ast.TranslationUnit{Functions: []*ast.FunctionDef{{
		ReturnType: intType(),
		Name:       "main",
		Body:       &ast.CompoundStmt{Statements: []ast.Stmt{&ast.ReturnStmt{Value: nil}}},
	}}}

	_, err := Analyze(unit)
	require.Error(t, err)
	assert.Equal(t, "Non-void function must return a value", err.Error())
}

func TestVoidFunctionMustNotReturnAValue(t *testing.T) {
	unit := &ast.TranslationUnit{Functions: []*ast.FunctionDef{{
		ReturnType: voidType(),
		Name:       "f",
		Body:       &ast.CompoundStmt{Statements: []ast.Stmt{&ast.ReturnStmt{Value: &ast.IntLiteral{Value: "1"}}}},
	}}}
	_, err := Analyze(unit)
	require.Error(t, err)
	assert.Equal(t, "Void function should not return a value", err.Error())
}

func TestUndeclaredIdentifier(t *testing.T) {
	unit := &ast.TranslationUnit{Functions: []*ast.FunctionDef{{
		ReturnType: voidType(),
		Name:       "f",
		Body: &ast.CompoundStmt{Statements: []ast.Stmt{&ast.ExprStmt{
			X: ast.NewIdentifier("x", token.Cursor{Line: 3, Column: 5}),
		}}},
	}}}
	_, err := Analyze(unit)
	require.Error(t, err)
	assert.Equal(t, "Undeclared identifier: x", err.Error())
	var semaErr *Error
	require.ErrorAs(t, err, &semaErr)
	assert.Equal(t, 3, semaErr.Line)
}

func TestDuplicateFunctionDefinition(t *testing.T) {
	unit := &ast.TranslationUnit{Functions: []*ast.FunctionDef{
		{ReturnType: voidType(), Name: "f", Body: &ast.CompoundStmt{}},
		{ReturnType: voidType(), Name: "f", Body: &ast.CompoundStmt{}},
	}}
	_, err := Analyze(unit)
	require.Error(t, err)
	assert.Equal(t, "Duplicate function definition: f", err.Error())
}

func TestBreakOutsideLoopOrSwitch(t *testing.T) {
	unit := &ast.TranslationUnit{Functions: []*ast.FunctionDef{{
		ReturnType: voidType(),
		Name:       "f",
		Body:       &ast.CompoundStmt{Statements: []ast.Stmt{&ast.BreakStmt{}}},
	}}}
	_, err := Analyze(unit)
	require.Error(t, err)
	assert.Equal(t, "'break' statement not in loop or switch statement", err.Error())
}
