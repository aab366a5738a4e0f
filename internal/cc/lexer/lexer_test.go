package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcztzy/xcc-sub000/internal/cc/token"
)

func TestTranslate(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"crlf normalized", "int x;\r\nint y;\r\n", "int x;\nint y;\n"},
		{"trigraph", "??=define X 1\n", "#define X 1\n"},
		{"line splice", "int x\\\n = 1;\n", "int x = 1;\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Translate(tc.input))
		})
	}
}

func TestLexKeywordsAndIdents(t *testing.T) {
	toks, err := Lex("int main")
	require.NoError(t, err)
	require.Len(t, toks, 3)
	assert.Equal(t, token.Keyword, toks[0].Kind)
	assert.Equal(t, "int", toks[0].Lexeme)
	assert.Equal(t, token.Ident, toks[1].Kind)
	assert.Equal(t, "main", toks[1].Lexeme)
	assert.Equal(t, token.EOF, toks[2].Kind)
}

func TestLexIntegerAndFloat(t *testing.T) {
	toks, err := Lex("1 1.5 0x1p3 1u")
	require.NoError(t, err)
	assert.Equal(t, token.IntConst, toks[0].Kind)
	assert.Equal(t, token.FloatConst, toks[1].Kind)
	assert.Equal(t, token.FloatConst, toks[2].Kind)
	assert.Equal(t, token.IntConst, toks[3].Kind)
}

func TestLexPPNumberUntyped(t *testing.T) {
	toks, err := LexPP("1.5", false)
	require.NoError(t, err)
	assert.Equal(t, token.PPNumber, toks[0].Kind)
}

func TestLexPunctuatorsLongestMatch(t *testing.T) {
	toks, err := Lex(">>= >> > ...")
	require.NoError(t, err)
	assert.Equal(t, ">>=", toks[0].Lexeme)
	assert.Equal(t, ">>", toks[1].Lexeme)
	assert.Equal(t, ">", toks[2].Lexeme)
	assert.Equal(t, "...", toks[3].Lexeme)
}

func TestLexUnterminatedComment(t *testing.T) {
	_, err := Lex("/* oops")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnterminatedComment)
}

func TestLexUnexpectedCharacter(t *testing.T) {
	_, err := Lex("@")
	require.Error(t, err)
	var lexErr *LexError
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, "Unexpected character", lexErr.Message)
	assert.Equal(t, 1, lexErr.Line)
	assert.Equal(t, 1, lexErr.Column)
}

func TestLexStringAndCharLiterals(t *testing.T) {
	toks, err := Lex(`"hi\n" u8"x" 'a' L'c'`)
	require.NoError(t, err)
	assert.Equal(t, token.StringLiteral, toks[0].Kind)
	assert.Equal(t, `"hi\n"`, toks[0].Lexeme)
	assert.Equal(t, token.StringLiteral, toks[1].Kind)
	assert.Equal(t, token.CharConst, toks[2].Kind)
	assert.Equal(t, token.CharConst, toks[3].Kind)
}

func TestLexEmptyCharConstantRejected(t *testing.T) {
	_, err := Lex(`''`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyCharConstant)
}

func TestLexEmptyStringAccepted(t *testing.T) {
	toks, err := Lex(`""`)
	require.NoError(t, err)
	assert.Equal(t, token.StringLiteral, toks[0].Kind)
	assert.Equal(t, `""`, toks[0].Lexeme)
}

func TestLexEscapeSequences(t *testing.T) {
	toks, err := Lex(`'\n' '\x4A' '\101' 'A'`)
	require.NoError(t, err)
	require.Len(t, toks, 5) // 4 literals + EOF
	for i := 0; i < 4; i++ {
		assert.Equal(t, token.CharConst, toks[i].Kind)
	}
	assert.Equal(t, `'\x4A'`, toks[1].Lexeme)
	assert.Equal(t, `'\101'`, toks[2].Lexeme)
	assert.Equal(t, `'A'`, toks[3].Lexeme)
}

func TestLexInvalidEscapeSequence(t *testing.T) {
	_, err := Lex(`'\q'`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidEscape)
}

func TestLexHexEscapeRequiresDigit(t *testing.T) {
	_, err := Lex(`'\x'`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidEscape)
}

func TestLexUniversalCharacterNameCodepointRange(t *testing.T) {
	_, err := Lex(`'\uD800'`) // surrogate, always invalid
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidEscape)

	toks, err := Lex(`int \u00C1bc;`) // codepoint above U+00A0, a valid identifier UCN
	require.NoError(t, err)
	assert.Equal(t, token.Ident, toks[1].Kind)
	assert.Equal(t, `\u00C1bc`, toks[1].Lexeme)

	// Below U+00A0 and not one of $ @ ` is not a valid identifier UCN.
	_, err = Lex(`int \u0041bc;`)
	require.Error(t, err)
}
