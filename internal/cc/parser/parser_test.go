package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcztzy/xcc-sub000/internal/cc/ast"
	"github.com/tcztzy/xcc-sub000/internal/cc/lexer"
)

func parse(t *testing.T, source string) *ast.TranslationUnit {
	t.Helper()
	toks, err := lexer.Lex(source)
	require.NoError(t, err)
	unit, err := Parse(toks)
	require.NoError(t, err)
	return unit
}

func TestParsesSimpleFunctionDefinition(t *testing.T) {
	unit := parse(t, "int add(int a, int b) { return a + b; }")
	require.Len(t, unit.Functions, 1)
	fn := unit.Functions[0]
	assert.Equal(t, "add", fn.Name)
	assert.Equal(t, "int", fn.ReturnType.Name)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name)
	require.Len(t, fn.Body.Statements, 1)
	ret, ok := fn.Body.Statements[0].(*ast.ReturnStmt)
	require.True(t, ok)
	bin, ok := ret.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Op)
}

func TestParsesGlobalDeclarationWithInitializer(t *testing.T) {
	unit := parse(t, "int counter = 0;")
	require.Len(t, unit.Declarations, 1)
	decl, ok := unit.Declarations[0].(*ast.DeclStmt)
	require.True(t, ok)
	assert.Equal(t, "counter", decl.Name)
	lit, ok := decl.Init.(*ast.IntLiteral)
	require.True(t, ok)
	assert.Equal(t, "0", lit.Value)
}

func TestParsesMultiDeclaratorDeclaration(t *testing.T) {
	unit := parse(t, "int a, *b, c[4];")
	require.Len(t, unit.Declarations, 3)
	a := unit.Declarations[0].(*ast.DeclStmt)
	assert.Equal(t, 0, a.TypeSpec.PointerDepth())
	b := unit.Declarations[1].(*ast.DeclStmt)
	assert.Equal(t, 1, b.TypeSpec.PointerDepth())
	c := unit.Declarations[2].(*ast.DeclStmt)
	require.Len(t, c.TypeSpec.DeclaratorOps, 1)
	assert.Equal(t, ast.OpArray, c.TypeSpec.DeclaratorOps[0].Kind)
}

func TestParsesTypedefAndUsesItAsTypeName(t *testing.T) {
	unit := parse(t, "typedef unsigned long size_t; size_t n;")
	require.Len(t, unit.Declarations, 2)
	_, ok := unit.Declarations[0].(*ast.TypedefDecl)
	require.True(t, ok)
	decl := unit.Declarations[1].(*ast.DeclStmt)
	assert.Equal(t, "n", decl.Name)
	assert.Equal(t, "size_t", decl.TypeSpec.Name)
}

func TestParsesStructWithBitfield(t *testing.T) {
	unit := parse(t, "struct flags { unsigned a : 1; unsigned b : 2; } f;")
	require.Len(t, unit.Declarations, 1)
	decl := unit.Declarations[0].(*ast.DeclStmt)
	assert.Equal(t, "struct flags", decl.TypeSpec.Name)
	require.Len(t, decl.TypeSpec.RecordMembers, 2)
	assert.NotNil(t, decl.TypeSpec.RecordMembers[0].BitWidth)
}

func TestParsesEnumWithExplicitValues(t *testing.T) {
	unit := parse(t, "enum color { RED = 1, GREEN, BLUE } c;")
	decl := unit.Declarations[0].(*ast.DeclStmt)
	require.Len(t, decl.TypeSpec.EnumMembers, 3)
	assert.Equal(t, "RED", decl.TypeSpec.EnumMembers[0].Name)
	assert.NotNil(t, decl.TypeSpec.EnumMembers[0].Value)
	assert.Nil(t, decl.TypeSpec.EnumMembers[1].Value)
}

func TestParsesControlFlowStatements(t *testing.T) {
	unit := parse(t, `
		int classify(int n) {
			if (n < 0) {
				return -1;
			} else if (n == 0) {
				return 0;
			}
			int i = 0;
			while (i < n) {
				i++;
			}
			for (int j = 0; j < n; j++) {
				if (j == 5) {
					break;
				}
				continue;
			}
			switch (n) {
				case 1:
					return 1;
				default:
					return 2;
			}
			return n;
		}
	`)
	require.Len(t, unit.Functions, 1)
	body := unit.Functions[0].Body.Statements
	_, ok := body[0].(*ast.IfStmt)
	require.True(t, ok)
}

func TestParsesFunctionPointerDeclarator(t *testing.T) {
	unit := parse(t, "int (*callback)(int, int);")
	decl := unit.Declarations[0].(*ast.DeclStmt)
	assert.Equal(t, "callback", decl.Name)
	require.Len(t, decl.TypeSpec.DeclaratorOps, 1)
	assert.Equal(t, ast.OpPointer, decl.TypeSpec.DeclaratorOps[0].Kind)
}

func TestParsesCastAndSizeof(t *testing.T) {
	unit := parse(t, "int x = (int) 3.5 + sizeof(int);")
	decl := unit.Declarations[0].(*ast.DeclStmt)
	bin := decl.Init.(*ast.BinaryExpr)
	cast, ok := bin.Left.(*ast.CastExpr)
	require.True(t, ok)
	assert.Equal(t, "int", cast.TypeSpec.Name)
	sz, ok := bin.Right.(*ast.SizeofExpr)
	require.True(t, ok)
	assert.Equal(t, "int", sz.TypeSpec.Name)
}

func TestParsesDesignatedInitializerList(t *testing.T) {
	unit := parse(t, "int arr[3] = {[0] = 1, [1] = 2, [2] = 3};")
	decl := unit.Declarations[0].(*ast.DeclStmt)
	list, ok := decl.Init.(*ast.InitList)
	require.True(t, ok)
	require.Len(t, list.Items, 3)
	assert.NotNil(t, list.Items[0].Designators[0].Index)
}

func TestParsesCompoundLiteral(t *testing.T) {
	unit := parse(t, "int x = ((int[3]){1, 2, 3})[0];")
	decl := unit.Declarations[0].(*ast.DeclStmt)
	sub, ok := decl.Init.(*ast.SubscriptExpr)
	require.True(t, ok)
	_, ok = sub.Base.(*ast.CompoundLiteralExpr)
	assert.True(t, ok)
}

func TestParsesStaticAssert(t *testing.T) {
	unit := parse(t, `_Static_assert(1 == 1, "always true");`)
	require.Len(t, unit.Declarations, 1)
	sa, ok := unit.Declarations[0].(*ast.StaticAssertDecl)
	require.True(t, ok)
	require.NotNil(t, sa.Message)
	assert.Contains(t, sa.Message.Value, "always true")
}

func TestParsesGenericSelection(t *testing.T) {
	unit := parse(t, `
		int describe(int x) {
			return _Generic(x, int: 1, default: 0);
		}
	`)
	ret := unit.Functions[0].Body.Statements[0].(*ast.ReturnStmt)
	gen, ok := ret.Value.(*ast.GenericExpr)
	require.True(t, ok)
	require.Len(t, gen.Associations, 2)
	assert.Equal(t, "int", gen.Associations[0].TypeSpec.Name)
	assert.Nil(t, gen.Associations[1].TypeSpec)
}

func TestParsesStatementExpressionExtension(t *testing.T) {
	unit := parse(t, "int x = ({ int tmp = 1; tmp + 1; });")
	decl := unit.Declarations[0].(*ast.DeclStmt)
	stmtExpr, ok := decl.Init.(*ast.StatementExpr)
	require.True(t, ok)
	assert.Len(t, stmtExpr.Body.Statements, 2)
}

func TestParsesGotoAndLabel(t *testing.T) {
	unit := parse(t, `
		void loop(void) {
			start:
			goto start;
		}
	`)
	body := unit.Functions[0].Body.Statements
	label, ok := body[0].(*ast.LabelStmt)
	require.True(t, ok)
	assert.Equal(t, "start", label.Name)
	_, ok = label.Body.(*ast.GotoStmt)
	assert.True(t, ok)
}
