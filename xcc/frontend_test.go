package xcc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcztzy/xcc-sub000/internal/cc/ast"
	"github.com/tcztzy/xcc-sub000/internal/cc/diag"
)

func TestCompileSourceFullPipeline(t *testing.T) {
	result, err := CompileSource("int main(void) { return 0; }", "main.c", FrontendOptions{Std: GNU11, Hosted: true})
	require.NoError(t, err)
	require.Len(t, result.Unit.Functions, 1)
	assert.Equal(t, "main", result.Unit.Functions[0].Name)

	fn, ok := result.Sema.Functions["main"]
	require.True(t, ok)
	assert.Equal(t, "main", fn.Name)
}

func TestCompileSourcePreprocessesMacrosBeforeParsing(t *testing.T) {
	source := "#define ANSWER 42\nint answer(void) { return ANSWER; }\n"
	result, err := CompileSource(source, "macro.c", FrontendOptions{Std: GNU11})
	require.NoError(t, err)
	require.Len(t, result.Unit.Functions, 1)
	ret := result.Unit.Functions[0].Body.Statements[0].(*ast.ReturnStmt)
	lit, ok := ret.Value.(*ast.IntLiteral)
	require.True(t, ok)
	assert.Equal(t, "42", lit.Value)
}

func TestCompileSourceReportsLexStageOnUnterminatedCharConstant(t *testing.T) {
	_, err := CompileSource("int x = 'ab-unterminated;", "bad.c", FrontendOptions{Std: GNU11})
	require.Error(t, err)
	fe, ok := err.(*diag.FrontendError)
	require.True(t, ok)
	assert.Equal(t, diag.StageLex, fe.Diagnostic.Stage)
}

func TestCompileSourceReportsParseStageOnSyntaxError(t *testing.T) {
	_, err := CompileSource("int main( { return 0; }", "bad.c", FrontendOptions{Std: GNU11})
	require.Error(t, err)
	fe, ok := err.(*diag.FrontendError)
	require.True(t, ok)
	assert.Equal(t, diag.StageParse, fe.Diagnostic.Stage)
}

func TestCompileSourceReportsSemaStageOnMissingReturnValue(t *testing.T) {
	_, err := CompileSource("int main(void) { return; }", "bad.c", FrontendOptions{Std: GNU11})
	require.Error(t, err)
	fe, ok := err.(*diag.FrontendError)
	require.True(t, ok)
	assert.Equal(t, diag.StageSema, fe.Diagnostic.Stage)
}

func TestCompileSourceHostedFlagControlsSTDCHosted(t *testing.T) {
	source := "int hosted(void) { return __STDC_HOSTED__; }"
	result, err := CompileSource(source, "hosted.c", FrontendOptions{Std: GNU11, Hosted: false})
	require.NoError(t, err)
	ret := result.Unit.Functions[0].Body.Statements[0].(*ast.ReturnStmt)
	lit, ok := ret.Value.(*ast.IntLiteral)
	require.True(t, ok)
	assert.Equal(t, "0", lit.Value)
}

func TestCompileSourceForcedIncludeIsPrependedBeforeMainSource(t *testing.T) {
	dir := t.TempDir()
	header := filepath.Join(dir, "prelude.h")
	require.NoError(t, os.WriteFile(header, []byte("#define PRELUDE_VALUE 7\n"), 0o644))

	source := "int value(void) { return PRELUDE_VALUE; }"
	result, err := CompileSource(source, "main.c", FrontendOptions{Std: GNU11, ForcedIncludes: []string{header}})
	require.NoError(t, err)
	ret := result.Unit.Functions[0].Body.Statements[0].(*ast.ReturnStmt)
	lit, ok := ret.Value.(*ast.IntLiteral)
	require.True(t, ok)
	assert.Equal(t, "7", lit.Value)
}

func TestCompileSourceMacroIncludeDiscardsExpandedTextButKeepsDefines(t *testing.T) {
	dir := t.TempDir()
	macros := filepath.Join(dir, "macros.h")
	require.NoError(t, os.WriteFile(macros, []byte("#define SHOULD_NOT_APPEAR garbage garbage\n#define FLAG 1\n"), 0o644))

	source := "int flag(void) { return FLAG; }"
	result, err := CompileSource(source, "main.c", FrontendOptions{Std: GNU11, MacroIncludes: []string{macros}})
	require.NoError(t, err)
	ret := result.Unit.Functions[0].Body.Statements[0].(*ast.ReturnStmt)
	lit, ok := ret.Value.(*ast.IntLiteral)
	require.True(t, ok)
	assert.Equal(t, "1", lit.Value)
}

func TestCompileSourceDefinesAndUndefsFlags(t *testing.T) {
	source := "int value(void) { return FROM_CLI; }"
	result, err := CompileSource(source, "main.c", FrontendOptions{Std: GNU11, Defines: []string{"FROM_CLI=9"}})
	require.NoError(t, err)
	ret := result.Unit.Functions[0].Body.Statements[0].(*ast.ReturnStmt)
	lit, ok := ret.Value.(*ast.IntLiteral)
	require.True(t, ok)
	assert.Equal(t, "9", lit.Value)
}

func TestCompileSourceTargetSeedsPlatformMacros(t *testing.T) {
	source := "int onLinux(void) { return __linux__; }"
	result, err := CompileSource(source, "plat.c", FrontendOptions{Std: GNU11, TargetOS: "linux", TargetArch: "x86_64"})
	require.NoError(t, err)
	ret := result.Unit.Functions[0].Body.Statements[0].(*ast.ReturnStmt)
	lit, ok := ret.Value.(*ast.IntLiteral)
	require.True(t, ok)
	assert.Equal(t, "1", lit.Value)
}

func TestCompilePathReadsFileAndDelegatesToCompileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.c")
	require.NoError(t, os.WriteFile(path, []byte("int main(void) { return 0; }"), 0o644))

	result, err := CompilePath(path, FrontendOptions{Std: GNU11})
	require.NoError(t, err)
	assert.Equal(t, path, result.Filename)
	require.Len(t, result.Unit.Functions, 1)
}

func TestCompilePathReportsIOErrorAsPPStage(t *testing.T) {
	_, err := CompilePath("/nonexistent/does-not-exist.c", FrontendOptions{Std: GNU11})
	require.Error(t, err)
	fe, ok := err.(*diag.FrontendError)
	require.True(t, ok)
	assert.Equal(t, diag.StagePP, fe.Diagnostic.Stage)
}

func TestDiagnosticHumanFormatOmitsLocationWhenAbsent(t *testing.T) {
	d := diag.Diagnostic{Stage: diag.StageSema, Filename: "x.c", Message: "boom"}
	assert.Equal(t, "x.c: sema: boom", d.String())

	withLoc := diag.Diagnostic{Stage: diag.StageLex, Filename: "x.c", Message: "bad char", Line: 3, Column: 5}
	assert.Equal(t, "x.c:3:5: lex: bad char", withLoc.String())
}
