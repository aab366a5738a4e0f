package preprocessor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tcztzy/xcc-sub000/internal/cc/lexer"
	"github.com/tcztzy/xcc-sub000/internal/cc/token"
)

// Macro is {name, replacement, parameters, is_variadic}
// Params == nil means an object-like (parameterless) macro; Params == []
// (non-nil, empty) means a function-like macro declared as NAME().
type Macro struct {
	Name       string
	Params     []string
	IsVariadic bool
	Body       []token.Token
}

func (m Macro) IsFunctionLike() bool { return m.Params != nil }

// Table is the preprocessor's macro table. #define replaces an existing
// entry without error; #undef removes it (no error if absent) —
// Lifecycles.
type Table map[string]Macro

func (t Table) Define(m Macro) { t[m.Name] = m }
func (t Table) Undef(name string) { delete(t, name) }
func (t Table) Lookup(name string) (Macro, bool) { m, ok := t[name]; return m, ok }
func (t Table) IsDefined(name string) bool { _, ok := t[name]; return ok }

// ppTokens tokenizes s in preprocessor mode, discarding the trailing EOF
// sentinel the lexer appends.
func ppTokens(s string) ([]token.Token, error) {
	toks, err := lexer.LexPP(s, false)
	if err != nil {
		return nil, err
	}
	if n := len(toks); n > 0 && toks[n-1].Kind == token.EOF {
		toks = toks[:n-1]
	}
	return toks, nil
}

func mustPPTokens(s string) []token.Token {
	toks, err := ppTokens(s)
	if err != nil {
		panic(err)
	}
	return toks
}

func objectMacro(name, body string) Macro {
	return Macro{Name: name, Body: mustPPTokens(body)}
}

// PredefinedMacros returns the static table of compiler-provided macros,
// plus __DATE__/__TIME__ frozen at the given translation start time.
func PredefinedMacros(std Standard, now time.Time) Table {
	t := make(Table, 32)
	t.Define(objectMacro("__STDC__", "1"))
	t.Define(objectMacro("__STDC_HOSTED__", "1"))
	t.Define(objectMacro("__STDC_VERSION__", "201112L"))
	t.Define(objectMacro("__STDC_UTF_16__", "1"))
	t.Define(objectMacro("__STDC_UTF_32__", "1"))
	t.Define(objectMacro("__INT_WIDTH__", "32"))
	t.Define(objectMacro("__LONG_WIDTH__", "64"))
	t.Define(objectMacro("__LONG_LONG_WIDTH__", "64"))
	t.Define(objectMacro("__INT_MAX__", "2147483647"))
	t.Define(objectMacro("__LONG_MAX__", "9223372036854775807L"))
	t.Define(objectMacro("__LONG_LONG_MAX__", "9223372036854775807LL"))
	t.Define(objectMacro("__LP64__", "1"))
	t.Define(objectMacro("__SIZEOF_POINTER__", "8"))
	t.Define(objectMacro("__SIZEOF_LONG__", "8"))
	t.Define(objectMacro("__SIZE_TYPE__", "unsigned long"))
	t.Define(objectMacro("__PTRDIFF_TYPE__", "long"))
	if std == GNU11 {
		t.Define(objectMacro("__GNUC__", "4"))
	}

	months := []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	day := strconv.Itoa(now.Day())
	if len(day) < 2 {
		day = " " + day
	}
	dateStr := fmt.Sprintf("%s %s %d", months[now.Month()-1], day, now.Year())
	t.Define(objectMacro("__DATE__", quote(dateStr)))
	t.Define(objectMacro("__TIME__", quote(now.Format("15:04:05"))))
	return t
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`) + `"`
}

// ParseMacroDefine parses a CLI-style "-D NAME" / "-D NAME=BODY" argument
// into a Macro, following the same grammar the driver's #define parser
// uses for the macro name and optional parameter list.
func ParseMacroDefine(spec string) (Macro, error) {
	name, rest, hasEq := strings.Cut(spec, "=")
	body := "1"
	if hasEq {
		body = rest
	}
	if idx := strings.IndexByte(name, '('); idx >= 0 {
		if !strings.HasSuffix(name, ")") {
			return Macro{}, fmt.Errorf("invalid macro definition: %s", spec)
		}
		paramList := name[idx+1 : len(name)-1]
		params, variadic := parseParamList(paramList)
		toks, err := ppTokens(body)
		if err != nil {
			return Macro{}, err
		}
		return Macro{Name: name[:idx], Params: params, IsVariadic: variadic, Body: toks}, nil
	}
	toks, err := ppTokens(body)
	if err != nil {
		return Macro{}, err
	}
	return Macro{Name: name, Body: toks}, nil
}

func parseParamList(s string) ([]string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}, false
	}
	parts := strings.Split(s, ",")
	params := make([]string, 0, len(parts))
	variadic := false
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "..." {
			variadic = true
			continue
		}
		params = append(params, p)
	}
	return params, variadic
}
