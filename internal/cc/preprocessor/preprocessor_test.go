package preprocessor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, std Standard, source string) string {
	t.Helper()
	p := NewPreprocessor(std, NewResolver(nil, nil, nil, nil), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	out, _, err := p.Run(source, "test.c")
	require.NoError(t, err)
	return out
}

func TestObjectMacroExpansion(t *testing.T) {
	out := run(t, C11, "#define N 42\nint x = N;\n")
	assert.Contains(t, out, "42")
}

func TestFunctionMacroExpansion(t *testing.T) {
	out := run(t, C11, "#define ADD(a, b) ((a) + (b))\nint x = ADD(1, 2);\n")
	assert.Contains(t, out, "( ( 1 ) + ( 2 ) )")
}

func TestMutuallyRecursiveMacrosDoNotLoop(t *testing.T) {
	out := run(t, C11, "#define A B\n#define B A\nA\n")
	assert.Contains(t, out, "A")
}

func TestTokenPaste(t *testing.T) {
	out := run(t, C11, "#define CAT(a, b) a ## b\nCAT(foo, bar)\n")
	assert.Contains(t, out, "foobar")
}

func TestStringize(t *testing.T) {
	out := run(t, C11, "#define STR(x) #x\nSTR(hello world)\n")
	assert.Contains(t, out, `"hello world"`)
}

func TestGNUCommaSwallow(t *testing.T) {
	out := run(t, GNU11, "#define LOG(fmt, ...) printf(fmt, ##__VA_ARGS__)\nLOG(\"hi\")\n")
	assert.NotContains(t, out, ",")
}

func TestConditionalShortCircuitAvoidsDivideByZero(t *testing.T) {
	out := run(t, C11, "#if 0 && (1 / 0)\nint dead;\n#else\nint alive;\n#endif\n")
	assert.Contains(t, out, "alive")
	assert.NotContains(t, out, "dead")
}

func TestUnsignedWraparound(t *testing.T) {
	out := run(t, C11, "#if 0u - 1u == 0xFFFFFFFFFFFFFFFFu\nint yes;\n#endif\n")
	assert.Contains(t, out, "yes")
}

func TestCommentsAreInvisible(t *testing.T) {
	out := run(t, C11, "#if 1 /* comment */\nint block;\n#endif\n#if 1 // trailing\nint line;\n#endif\n")
	assert.Contains(t, out, "int block;")
	assert.Contains(t, out, "int line;")
	assert.NotContains(t, out, "comment")
	assert.NotContains(t, out, "trailing")
}

func TestHasIncludeMissing(t *testing.T) {
	out := run(t, C11, "#if __has_include(\"missing.h\")\nint yes;\n#else\nint no;\n#endif\n")
	assert.Contains(t, out, "no")
}

func TestUndefinedIdentifierInIfIsZero(t *testing.T) {
	out := run(t, C11, "#if SOME_UNDEFINED_MACRO\nint yes;\n#else\nint no;\n#endif\n")
	assert.Contains(t, out, "no")
}

func TestElifChain(t *testing.T) {
	out := run(t, C11, "#define V 2\n#if V == 1\nint one;\n#elif V == 2\nint two;\n#else\nint other;\n#endif\n")
	assert.Contains(t, out, "two")
	assert.NotContains(t, out, "one")
	assert.NotContains(t, out, "other")
}

func TestIncludeNextIsGNUOnly(t *testing.T) {
	p := NewPreprocessor(C11, NewResolver(nil, nil, nil, nil), time.Now())
	_, _, err := p.Run("#include_next <foo.h>\n", "test.c")
	require.Error(t, err)
}

func TestMacroDefineParsesFunctionLike(t *testing.T) {
	m, err := ParseMacroDefine("MAX(a,b)=((a)>(b)?(a):(b))")
	require.NoError(t, err)
	assert.Equal(t, "MAX", m.Name)
	assert.Equal(t, []string{"a", "b"}, m.Params)
}
