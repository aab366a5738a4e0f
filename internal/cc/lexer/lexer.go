// Package lexer implements source translation (trigraphs, line splicing)
// and the two token-scanning modes shared by the preprocessor and the
// translation-phase parser.
//
// The per-token classification functions (scanIdentifier, scanPPNumber,
// scanQuoted, matchPunctuator) follow the shape of a conventional
// dependency-scanning lexer, generalized to the full C11 token grammar.
package lexer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tcztzy/xcc-sub000/internal/cc/token"
)

var (
	ErrUnterminatedComment = errors.New("unterminated block comment")
	ErrUnterminatedString  = errors.New("unterminated string literal")
	ErrUnterminatedChar    = errors.New("unterminated character constant")
	ErrInvalidNumeric      = errors.New("invalid numeric constant")
	ErrEmptyCharConstant   = errors.New("empty character constant")
	ErrInvalidEscape       = errors.New("invalid escape sequence")
)

// LexError reports a lexical error anchored at a source position.
type LexError struct {
	Message string
	Line    int
	Column  int
	Err     error
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

func (e *LexError) Unwrap() error { return e.Err }

// trigraphs maps the three-character trigraph suffix to its C meaning.
var trigraphs = map[byte]byte{
	'=': '#', '\'': '^', '(': '[', ')': ']', '!': '|', '<': '{', '>': '}', '-': '~', '/': '\\',
}

// Translate performs phase 1-2 source translation: CRLF/CR normalization,
// trigraph replacement, and backslash-newline splicing.
func Translate(src string) string {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	src = strings.ReplaceAll(src, "\r", "\n")

	var b strings.Builder
	b.Grow(len(src))
	for i := 0; i < len(src); {
		if src[i] == '?' && i+2 < len(src) && src[i+1] == '?' {
			if repl, ok := trigraphs[src[i+2]]; ok {
				b.WriteByte(repl)
				i += 3
				continue
			}
		}
		b.WriteByte(src[i])
		i++
	}
	spliced := b.String()

	var out strings.Builder
	out.Grow(len(spliced))
	for i := 0; i < len(spliced); {
		if spliced[i] == '\\' && i+1 < len(spliced) && spliced[i+1] == '\n' {
			i += 2
			continue
		}
		out.WriteByte(spliced[i])
		i++
	}
	return out.String()
}

var keywords = map[string]bool{
	"auto": true, "break": true, "case": true, "char": true, "const": true,
	"continue": true, "default": true, "do": true, "double": true, "else": true,
	"enum": true, "extern": true, "float": true, "for": true, "goto": true,
	"if": true, "inline": true, "int": true, "long": true, "register": true,
	"restrict": true, "return": true, "short": true, "signed": true,
	"sizeof": true, "static": true, "struct": true, "switch": true,
	"typedef": true, "union": true, "unsigned": true, "void": true,
	"volatile": true, "while": true,
	"_Alignas": true, "_Alignof": true, "_Atomic": true, "_Bool": true,
	"_Complex": true, "_Generic": true, "_Imaginary": true, "_Noreturn": true,
	"_Static_assert": true, "_Thread_local": true,
	"__extension__": true, "__asm__": true, "__asm": true, "asm": true,
	"__typeof__": true, "__typeof": true, "typeof": true,
	"__alignof__": true, "__alignof": true,
	"__builtin_offsetof": true,
}

// punctuators, longest first so a greedy scan prefers the longest match.
var punctuators = []string{
	"%:%:", "<<=", ">>=", "...",
	"<<", ">>", "<=", ">=", "==", "!=", "&&", "||", "->", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "^=", "|=", "##",
	"<:", ":>", "<%", "%>", "%:",
	"(", ")", "{", "}", "[", "]", ";", ",", ":", "?",
	"+", "-", "*", "/", "%", "&", "^", "|", "~", "!", "=", "<", ">", ".", "#",
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentCont(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

// Lex scans source in translation mode: keywords are classified, numeric
// literals are fully typed, and header-names are never recognized.
func Lex(source string) ([]token.Token, error) {
	return scan(source, false, false)
}

// LexPP scans source in preprocessor mode: no keyword classification,
// numeric literals stay untyped PPNumber tokens, and header-names are
// recognized when headerNames is true (the caller has determined the
// current directive expects one, e.g. #include/#embed).
func LexPP(source string, headerNames bool) ([]token.Token, error) {
	return scan(source, true, headerNames)
}

func scan(source string, ppMode bool, headerNames bool) ([]token.Token, error) {
	var toks []token.Token
	pos := token.CursorInit()
	i := 0
	for i < len(source) {
		c := source[i]

		switch {
		case c == '\n':
			pos = pos.AdvancedBy(source[i : i+1])
			i++
			continue
		case c == ' ' || c == '\t' || c == '\v' || c == '\f':
			i++
			pos.Column++
			continue
		case c == '/' && i+1 < len(source) && source[i+1] == '/':
			end := strings.IndexByte(source[i:], '\n')
			adv := len(source) - i
			if end >= 0 {
				adv = end
			}
			pos = pos.AdvancedBy(source[i : i+adv])
			i += adv
			continue
		case c == '/' && i+1 < len(source) && source[i+1] == '*':
			end := strings.Index(source[i+2:], "*/")
			if end < 0 {
				return nil, &LexError{Message: "unterminated block comment", Line: pos.Line, Column: pos.Column, Err: ErrUnterminatedComment}
			}
			adv := end + 4
			pos = pos.AdvancedBy(source[i : i+adv])
			i += adv
			continue
		case headerNames && ppMode && (c == '<' || c == '"') && expectsHeaderNameHere(toks):
			lex, adv, err := scanHeaderName(source[i:], pos)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token.New(token.HeaderName, lex, pos))
			pos = pos.AdvancedBy(source[i : i+adv])
			i += adv
			continue
		case (isIdentStart(rune(c)) || c == '\\') && !hasStringPrefix(source[i:]) && !hasCharPrefix(source[i:]):
			lex, adv, err := scanIdentifier(source[i:])
			if err != nil {
				return nil, &LexError{Message: err.Error(), Line: pos.Line, Column: pos.Column}
			}
			if adv == 0 {
				return nil, &LexError{Message: "Unexpected character", Line: pos.Line, Column: pos.Column}
			}
			kind := token.Ident
			if !ppMode && keywords[lex] {
				kind = token.Keyword
			}
			toks = append(toks, token.New(kind, lex, pos))
			pos = pos.AdvancedBy(source[i : i+adv])
			i += adv
			continue
		case c >= '0' && c <= '9', c == '.' && i+1 < len(source) && source[i+1] >= '0' && source[i+1] <= '9':
			lex, adv := scanPPNumber(source[i:])
			kind := token.PPNumber
			if !ppMode {
				var err error
				kind, err = classifyNumber(lex)
				if err != nil {
					return nil, &LexError{Message: err.Error(), Line: pos.Line, Column: pos.Column, Err: ErrInvalidNumeric}
				}
			}
			toks = append(toks, token.New(kind, lex, pos))
			pos = pos.AdvancedBy(source[i : i+adv])
			i += adv
			continue
		case c == '"' || hasStringPrefix(source[i:]):
			lex, adv, err := scanQuoted(source[i:], '"')
			if err != nil {
				return nil, &LexError{Message: err.Error(), Line: pos.Line, Column: pos.Column, Err: err}
			}
			toks = append(toks, token.New(token.StringLiteral, lex, pos))
			pos = pos.AdvancedBy(source[i : i+adv])
			i += adv
			continue
		case c == '\'' || hasCharPrefix(source[i:]):
			lex, adv, err := scanQuoted(source[i:], '\'')
			if err != nil {
				return nil, &LexError{Message: err.Error(), Line: pos.Line, Column: pos.Column, Err: err}
			}
			toks = append(toks, token.New(token.CharConst, lex, pos))
			pos = pos.AdvancedBy(source[i : i+adv])
			i += adv
			continue
		default:
			if p, ok := matchPunctuator(source[i:]); ok {
				toks = append(toks, token.New(token.Punctuator, p, pos))
				pos = pos.AdvancedBy(p)
				i += len(p)
				continue
			}
			return nil, &LexError{Message: "Unexpected character", Line: pos.Line, Column: pos.Column}
		}
	}
	toks = append(toks, token.EOFAt(pos))
	return toks, nil
}

// expectsHeaderNameHere reports whether the token just scanned is the
// identifier include, include_next or embed, the only position where a
// header-name may appear. It returns false when no token has been scanned
// yet, so a line whose directive name was already removed never yields a
// header-name.
func expectsHeaderNameHere(toks []token.Token) bool {
	if len(toks) == 0 {
		return false
	}
	last := toks[len(toks)-1]
	return last.Kind == token.Ident && (last.Lexeme == "include" || last.Lexeme == "include_next" || last.Lexeme == "embed")
}

func scanHeaderName(s string, pos token.Cursor) (string, int, error) {
	open, close := s[0], byte('"')
	if open == '<' {
		close = '>'
	}
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\n':
			return "", 0, &LexError{Message: "unterminated header-name", Line: pos.Line, Column: pos.Column}
		case '\'', '\\':
			return "", 0, &LexError{Message: "invalid character in header-name", Line: pos.Line, Column: pos.Column}
		case '/':
			if i+1 < len(s) && (s[i+1] == '/' || s[i+1] == '*') {
				return "", 0, &LexError{Message: "comment inside header-name", Line: pos.Line, Column: pos.Column}
			}
		case close:
			return s[:i+1], i + 1, nil
		}
	}
	return "", 0, &LexError{Message: "unterminated header-name", Line: pos.Line, Column: pos.Column}
}

// scanIdentifier scans the longest identifier at the start of s. A
// backslash is only ever identifier content as the start of a well-formed
// \uXXXX/\UXXXXXXXX universal character name; any other backslash ends the
// identifier rather than being consumed, so a bare '\\' that opened the
// token is reported via adv == 0 rather than silently swallowed.
func scanIdentifier(s string) (string, int, error) {
	i := 0
	for i < len(s) {
		if s[i] == '\\' {
			if i+1 >= len(s) || (s[i+1] != 'u' && s[i+1] != 'U') {
				break
			}
			n, ok := readUCNDigits(s, i+2, s[i+1])
			if !ok {
				return "", 0, fmt.Errorf("invalid universal character name")
			}
			i += 2 + n
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if i == 0 {
			if !isIdentStart(r) {
				break
			}
		} else if !isIdentCont(r) {
			break
		}
		i += size
	}
	return s[:i], i, nil
}

func isAllHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isOctalDigit(c byte) bool {
	return c >= '0' && c <= '7'
}

// simpleEscapes are the single-character escapes that need no further
// validation beyond the backslash itself.
var simpleEscapes = map[byte]bool{
	'\'': true, '"': true, '?': true, '\\': true,
	'a': true, 'b': true, 'f': true, 'n': true, 'r': true, 't': true, 'v': true,
}

// validUCNCodepoint reports whether cp is an acceptable universal-character-
// name value: within the Unicode range, outside the surrogate range, and
// not a control/ASCII-punctuation codepoint below U+00A0 other than the
// three ($, @, `) C11 allows there.
func validUCNCodepoint(cp rune) bool {
	if cp > 0x10FFFF {
		return false
	}
	if cp >= 0xD800 && cp <= 0xDFFF {
		return false
	}
	if cp < 0x00A0 && cp != 0x24 && cp != 0x40 && cp != 0x60 {
		return false
	}
	return true
}

// readUCNDigits parses the 4 (\u) or 8 (\U) hex digits at s[i:] and
// validates the resulting codepoint. It returns the number of digit bytes
// consumed and false on any malformed or out-of-range name.
func readUCNDigits(s string, i int, kind byte) (int, bool) {
	n := 4
	if kind == 'U' {
		n = 8
	}
	if i+n > len(s) || !isAllHex(s[i:i+n]) {
		return 0, false
	}
	cp, err := strconv.ParseInt(s[i:i+n], 16, 64)
	if err != nil || !validUCNCodepoint(rune(cp)) {
		return 0, false
	}
	return n, true
}

// scanEscapeSequence validates and measures the escape body at s[i], the
// byte directly following the backslash. It returns the number of bytes the
// body occupies.
func scanEscapeSequence(s string, i int) (int, error) {
	if i >= len(s) {
		return 0, fmt.Errorf("%w: unterminated escape sequence", ErrInvalidEscape)
	}
	switch c := s[i]; {
	case simpleEscapes[c]:
		return 1, nil
	case c == 'x':
		j := i + 1
		if j >= len(s) || !isHexDigit(s[j]) {
			return 0, fmt.Errorf("%w: \\x requires at least one hex digit", ErrInvalidEscape)
		}
		for j < len(s) && isHexDigit(s[j]) {
			j++
		}
		return j - i, nil
	case c == 'u' || c == 'U':
		n, ok := readUCNDigits(s, i+1, c)
		if !ok {
			return 0, fmt.Errorf("%w: invalid universal character name", ErrInvalidEscape)
		}
		return 1 + n, nil
	case isOctalDigit(c):
		j := i + 1
		for k := 0; k < 2 && j < len(s) && isOctalDigit(s[j]); k++ {
			j++
		}
		return j - i, nil
	default:
		return 0, fmt.Errorf("%w: \\%c", ErrInvalidEscape, c)
	}
}

func scanPPNumber(s string) (string, int) {
	i := 1
	for i < len(s) {
		c := s[i]
		switch {
		case (c == 'e' || c == 'E' || c == 'p' || c == 'P') && i+1 < len(s) && (s[i+1] == '+' || s[i+1] == '-'):
			i += 2
		case c == '.' || (c >= '0' && c <= '9') || isIdentCont(rune(c)):
			i++
		default:
			return s[:i], i
		}
	}
	return s[:i], i
}

func classifyNumber(lex string) (token.Kind, error) {
	body := strings.TrimRight(lex, "uUlLfF")
	if strings.Contains(body, ".") || (strings.ContainsAny(body, "eE") && !strings.HasPrefix(body, "0x") && !strings.HasPrefix(body, "0X")) {
		return token.FloatConst, nil
	}
	if strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X") {
		if strings.ContainsAny(body, "pP") {
			return token.FloatConst, nil
		}
		return token.IntConst, nil
	}
	for _, c := range body {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("Invalid numeric constant")
		}
	}
	return token.IntConst, nil
}

func hasStringPrefix(s string) bool {
	for _, p := range []string{"u8\"", "u\"", "U\"", "L\""} {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func hasCharPrefix(s string) bool {
	for _, p := range []string{"u'", "U'", "L'"} {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func scanQuoted(s string, quote byte) (string, int, error) {
	i := 0
	for i < len(s) && s[i] != quote {
		i++
	}
	i++ // opening quote
	if quote == '\'' && i < len(s) && s[i] == '\'' {
		return "", 0, ErrEmptyCharConstant
	}
	for i < len(s) {
		switch s[i] {
		case '\\':
			n, err := scanEscapeSequence(s, i+1)
			if err != nil {
				return "", 0, err
			}
			i += 1 + n
			continue
		case quote:
			return s[:i+1], i + 1, nil
		case '\n':
			return "", 0, unterminatedQuoteErr(quote)
		}
		i++
	}
	return "", 0, unterminatedQuoteErr(quote)
}

func unterminatedQuoteErr(quote byte) error {
	if quote == '\'' {
		return ErrUnterminatedChar
	}
	return ErrUnterminatedString
}

func matchPunctuator(s string) (string, bool) {
	for _, p := range punctuators {
		if strings.HasPrefix(s, p) {
			return p, true
		}
	}
	return "", false
}
