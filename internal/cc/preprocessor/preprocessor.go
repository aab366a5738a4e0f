package preprocessor

import (
	"strconv"
	"strings"
	"time"

	"github.com/tcztzy/xcc-sub000/internal/cc/diag"
	"github.com/tcztzy/xcc-sub000/internal/cc/lexer"
	"github.com/tcztzy/xcc-sub000/internal/collections"
)

// Standard selects the dialect a Preprocessor accepts: plain C11, or GNU11
// with GNU extensions (comma-swallow ", ##__VA_ARGS__", #include_next)
// enabled. In-line asm is not treated differently by either standard.
type Standard int

const (
	C11 Standard = iota
	GNU11
)

// condFrame is one entry of the #if/#ifdef/#ifndef nesting stack.
type condFrame struct {
	branchTaken bool // some branch in this chain has already been active
	active      bool // this branch is currently emitting output
	parentLive  bool // the enclosing region was active when this chain opened
	sawElse     bool
}

// Preprocessor runs the full macro-expansion and conditional-compilation
// pipeline over one translation unit, threading a shared macro table and
// include resolver across recursively processed #include files.
type Preprocessor struct {
	std      Standard
	macros   Table
	resolver *Resolver
	now      time.Time

	condStack []condFrame

	cursorFile string
	cursorLine int
}

func NewPreprocessor(std Standard, resolver *Resolver, now time.Time) *Preprocessor {
	return &Preprocessor{std: std, macros: PredefinedMacros(std, now), resolver: resolver, now: now}
}

func (p *Preprocessor) gnu() bool { return p.std == GNU11 }

// Define pre-seeds a macro, e.g. from a "-D" command-line flag.
func (p *Preprocessor) Define(m Macro) { p.macros.Define(m) }

// Undef removes a macro, e.g. from a "-U" command-line flag.
func (p *Preprocessor) Undef(name string) { p.macros.Undef(name) }

// active reports whether output is currently being emitted, i.e. every
// enclosing conditional frame (if any) is on its active branch.
func (p *Preprocessor) active() bool {
	for _, f := range p.condStack {
		if !f.active {
			return false
		}
	}
	return true
}

// Run preprocesses source (read from filename, or already in hand for an
// #include'd file) and returns the macro-expanded translation unit text
// plus a LineMap back to original (file, line) positions.
func (p *Preprocessor) Run(source, filename string) (string, *LineMap, error) {
	translated := lexer.Translate(source)
	lines := strings.Split(translated, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	var out strings.Builder
	lineMap := &LineMap{}
	cursor := newSourceCursor(filename)
	baseDepth := len(p.condStack)

	for _, line := range lines {
		p.cursorFile, p.cursorLine = cursor.file, cursor.line
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "#") {
			directive := strings.TrimLeft(trimmed[1:], " \t")
			name, _ := splitDirectiveName(directive)
			wasActive := p.active()
			isInclude := name == "include" || name == "include_next"
			if directive != "" {
				if err := p.handleDirective(directive, cursor, &out, lineMap); err != nil {
					return "", nil, err
				}
			}
			// A live #include/#include_next substitutes the included
			// file's own content (zero or more lines, zero for a
			// pragma-once repeat) in place of the directive line; every
			// other directive - including a bare "#", or an #include
			// skipped because its region is inactive - collapses to
			// exactly one blank output line, keeping line counts aligned.
			if !isInclude || !wasActive {
				out.WriteByte('\n')
				lineMap.Append(cursor.file, cursor.line)
			}
			cursor.advance()
			continue
		}
		if !p.active() {
			out.WriteByte('\n')
			lineMap.Append(cursor.file, cursor.line)
			cursor.advance()
			continue
		}
		if !p.hasDefinedMacro(line) {
			out.WriteString(line)
			out.WriteByte('\n')
			lineMap.Append(cursor.file, cursor.line)
			cursor.advance()
			continue
		}
		expanded, err := p.expandLine(line)
		if err != nil {
			return "", nil, err
		}
		out.WriteString(expanded)
		out.WriteByte('\n')
		lineMap.Append(cursor.file, cursor.line)
		cursor.advance()
	}

	if len(p.condStack) > baseDepth {
		return "", nil, diag.NewWithCode(diag.StagePP, filename, "Unterminated #if", diag.CodeInvalidDirective)
	}
	return out.String(), lineMap, nil
}

// hasDefinedMacro is the fast pre-check expandLine's callers use to skip
// re-tokenizing a line that can't possibly need macro substitution: it
// scans identifier runs in s and reports whether any names a macro
// currently defined in p.macros. A line with identifiers but none of
// them defined macros passes through verbatim.
func (p *Preprocessor) hasDefinedMacro(s string) bool {
	i := 0
	for i < len(s) {
		c := s[i]
		if !isAsciiIdentStart(c) {
			i++
			continue
		}
		start := i
		for i < len(s) && isAsciiIdentCont(s[i]) {
			i++
		}
		if p.macros.IsDefined(s[start:i]) {
			return true
		}
	}
	return false
}

func isAsciiIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isAsciiIdentCont(c byte) bool {
	return isAsciiIdentStart(c) || (c >= '0' && c <= '9')
}

func (p *Preprocessor) expandLine(line string) (string, error) {
	toks, err := ppTokens(line)
	if err != nil {
		return "", diag.Wrap(diag.StagePP, p.cursorFile, err)
	}
	expanded, err := p.expandTokens(toks, make(collections.Set[string]))
	if err != nil {
		return "", err
	}
	parts := make([]string, len(expanded))
	for i, t := range expanded {
		parts[i] = t.Lexeme
	}
	return strings.Join(parts, " "), nil
}

func (p *Preprocessor) handleDirective(directive string, cursor *sourceCursor, out *strings.Builder, lineMap *LineMap) error {
	name, rest := splitDirectiveName(directive)
	switch name {
	case "ifdef", "ifndef":
		cond := p.macros.IsDefined(strings.TrimSpace(rest))
		if name == "ifndef" {
			cond = !cond
		}
		p.pushCond(cond)
		return nil
	case "if":
		if !p.active() {
			p.pushCond(false) // still track nesting depth inside a dead region
			return nil
		}
		v, err := p.evalIfLine(rest)
		if err != nil {
			return err
		}
		p.pushCond(!v.IsZero())
		return nil
	case "elif":
		return p.handleElif(rest)
	case "else":
		return p.handleElse()
	case "endif":
		return p.popCond()
	}

	if !p.active() {
		return nil
	}

	switch name {
	case "define":
		return p.handleDefine(rest)
	case "undef":
		p.macros.Undef(strings.TrimSpace(rest))
		return nil
	case "include":
		return p.handleInclude(rest, cursor, out, lineMap, false)
	case "include_next":
		if !p.gnu() {
			return diag.NewWithCode(diag.StagePP, p.cursorFile, "#include_next is a GNU extension", diag.CodeGNUExtensionInC11)
		}
		return p.handleInclude(rest, cursor, out, lineMap, true)
	case "error":
		return diag.NewWithCode(diag.StagePP, p.cursorFile, "#error "+strings.TrimSpace(rest), diag.CodeInvalidDirective)
	case "warning":
		return nil // diagnostics-only, never fatal
	case "line":
		return p.handleLine(rest, cursor)
	case "pragma":
		return p.handlePragma(rest, cursor)
	case "ident", "sccs":
		return nil // accepted, no effect
	default:
		return diag.NewWithCode(diag.StagePP, p.cursorFile, "Unknown directive: #"+name, diag.CodeUnknownDirective)
	}
}

func splitDirectiveName(directive string) (name, rest string) {
	i := 0
	for i < len(directive) && (isAsciiAlnum(directive[i]) || directive[i] == '_') {
		i++
	}
	return directive[:i], strings.TrimLeft(directive[i:], " \t")
}

func isAsciiAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (p *Preprocessor) pushCond(active bool) {
	parentLive := p.active()
	p.condStack = append(p.condStack, condFrame{
		branchTaken: active && parentLive,
		active:      active && parentLive,
		parentLive:  parentLive,
	})
}

func (p *Preprocessor) handleElif(rest string) error {
	if len(p.condStack) == 0 {
		return diag.NewWithCode(diag.StagePP, p.cursorFile, "#elif without #if", diag.CodeInvalidDirective)
	}
	top := &p.condStack[len(p.condStack)-1]
	if top.sawElse {
		return diag.NewWithCode(diag.StagePP, p.cursorFile, "#elif after #else", diag.CodeInvalidDirective)
	}
	if !top.parentLive || top.branchTaken {
		top.active = false
		return nil
	}
	v, err := p.evalIfLine(rest)
	if err != nil {
		return err
	}
	top.active = !v.IsZero()
	top.branchTaken = top.active
	return nil
}

func (p *Preprocessor) handleElse() error {
	if len(p.condStack) == 0 {
		return diag.NewWithCode(diag.StagePP, p.cursorFile, "#else without #if", diag.CodeInvalidDirective)
	}
	top := &p.condStack[len(p.condStack)-1]
	if top.sawElse {
		return diag.NewWithCode(diag.StagePP, p.cursorFile, "Duplicate #else", diag.CodeInvalidDirective)
	}
	top.sawElse = true
	top.active = top.parentLive && !top.branchTaken
	if top.active {
		top.branchTaken = true
	}
	return nil
}

func (p *Preprocessor) popCond() error {
	if len(p.condStack) == 0 {
		return diag.NewWithCode(diag.StagePP, p.cursorFile, "#endif without #if", diag.CodeInvalidDirective)
	}
	p.condStack = p.condStack[:len(p.condStack)-1]
	return nil
}

func (p *Preprocessor) evalIfLine(rest string) (PPValue, error) {
	resolved, err := p.resolveDefinedAndHasInclude(rest)
	if err != nil {
		return PPValue{}, err
	}
	toks, err := ppTokens(resolved)
	if err != nil {
		return PPValue{}, diag.Wrap(diag.StagePP, p.cursorFile, err)
	}
	expanded, err := p.expandTokens(toks, make(collections.Set[string]))
	if err != nil {
		return PPValue{}, err
	}
	expr, err := parseCondExpr(expanded)
	if err != nil {
		return PPValue{}, err
	}
	return EvalCondExpr(expr)
}

// resolveDefinedAndHasInclude resolves "defined NAME"/"defined(NAME)" and
// "__has_include(...)" to literal 0/1 before the expression is tokenized
// for parsing, so the #if grammar itself never represents either operator.
func (p *Preprocessor) resolveDefinedAndHasInclude(s string) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(s) {
		if rest := matchWord(s[i:], "defined"); rest >= 0 {
			j := i + rest
			name, consumed, err := parseDefinedOperand(s[j:])
			if err != nil {
				return "", err
			}
			if p.macros.IsDefined(name) {
				out.WriteByte('1')
			} else {
				out.WriteByte('0')
			}
			i = j + consumed
			continue
		}
		if rest := matchWord(s[i:], "__has_include"); rest >= 0 {
			j := i + rest
			name, angled, consumed, err := parseHasIncludeOperand(s[j:])
			if err != nil {
				return "", err
			}
			if p.resolver.HasInclude(name, angled, "") {
				out.WriteByte('1')
			} else {
				out.WriteByte('0')
			}
			i = j + consumed
			continue
		}
		out.WriteByte(s[i])
		i++
	}
	return out.String(), nil
}

// matchWord returns the length consumed (word length, including any
// trailing whitespace) if s begins with word as a standalone identifier,
// or -1 if it does not.
func matchWord(s, word string) int {
	if !strings.HasPrefix(s, word) {
		return -1
	}
	n := len(word)
	if n < len(s) && isIdentByte(s[n]) {
		return -1
	}
	for n < len(s) && (s[n] == ' ' || s[n] == '\t') {
		n++
	}
	return n
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func parseDefinedOperand(s string) (name string, consumed int, err error) {
	i := 0
	paren := false
	if i < len(s) && s[i] == '(' {
		paren = true
		i++
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
	}
	start := i
	for i < len(s) && isIdentByte(s[i]) {
		i++
	}
	if start == i {
		return "", 0, diag.NewWithCode(diag.StagePP, "", "Operator \"defined\" requires an identifier", diag.CodeInvalidIfExpr)
	}
	name = s[start:i]
	if paren {
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
		if i >= len(s) || s[i] != ')' {
			return "", 0, diag.NewWithCode(diag.StagePP, "", "Missing ')' after \"defined(\"", diag.CodeInvalidIfExpr)
		}
		i++
	}
	return name, i, nil
}

func parseHasIncludeOperand(s string) (name string, angled bool, consumed int, err error) {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	if i >= len(s) || s[i] != '(' {
		return "", false, 0, diag.NewWithCode(diag.StagePP, "", "Missing '(' after \"__has_include\"", diag.CodeInvalidIfExpr)
	}
	i++
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	if i >= len(s) {
		return "", false, 0, diag.NewWithCode(diag.StagePP, "", "Invalid __has_include operand", diag.CodeInvalidIfExpr)
	}
	open := s[i]
	close := byte('"')
	if open == '<' {
		angled = true
		close = '>'
	} else if open != '"' {
		return "", false, 0, diag.NewWithCode(diag.StagePP, "", "Invalid __has_include operand", diag.CodeInvalidIfExpr)
	}
	start := i + 1
	end := strings.IndexByte(s[start:], close)
	if end < 0 {
		return "", false, 0, diag.NewWithCode(diag.StagePP, "", "Unterminated __has_include operand", diag.CodeInvalidIfExpr)
	}
	name = s[start : start+end]
	i = start + end + 1
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	if i >= len(s) || s[i] != ')' {
		return "", false, 0, diag.NewWithCode(diag.StagePP, "", "Missing ')' after __has_include operand", diag.CodeInvalidIfExpr)
	}
	return name, angled, i + 1, nil
}

func (p *Preprocessor) handleDefine(rest string) error {
	i := 0
	for i < len(rest) && isIdentByte(rest[i]) {
		i++
	}
	if i == 0 {
		return diag.NewWithCode(diag.StagePP, p.cursorFile, "Macro name missing", diag.CodeInvalidMacro)
	}
	name := rest[:i]
	if i < len(rest) && rest[i] == '(' {
		close := strings.IndexByte(rest[i:], ')')
		if close < 0 {
			return diag.NewWithCode(diag.StagePP, p.cursorFile, "Missing ')' in macro parameter list", diag.CodeInvalidMacro)
		}
		params, variadic := parseParamList(rest[i+1 : i+close])
		body := strings.TrimSpace(rest[i+close+1:])
		toks, err := ppTokens(body)
		if err != nil {
			return diag.Wrap(diag.StagePP, p.cursorFile, err)
		}
		p.macros.Define(Macro{Name: name, Params: params, IsVariadic: variadic, Body: toks})
		return nil
	}
	body := strings.TrimSpace(rest[i:])
	toks, err := ppTokens(body)
	if err != nil {
		return diag.Wrap(diag.StagePP, p.cursorFile, err)
	}
	p.macros.Define(Macro{Name: name, Body: toks})
	return nil
}

func (p *Preprocessor) handleInclude(rest string, cursor *sourceCursor, out *strings.Builder, lineMap *LineMap, next bool) error {
	rest = strings.TrimSpace(rest)
	var name string
	var angled bool
	switch {
	case strings.HasPrefix(rest, "\"") && strings.HasSuffix(rest, "\"") && len(rest) >= 2:
		name = rest[1 : len(rest)-1]
	case strings.HasPrefix(rest, "<") && strings.HasSuffix(rest, ">") && len(rest) >= 2:
		name = rest[1 : len(rest)-1]
		angled = true
	default:
		expanded, err := p.expandLine(rest)
		if err != nil {
			return err
		}
		return p.handleInclude(expanded, cursor, out, lineMap, next)
	}

	curDir := dirOf(p.cursorFile)
	includeNextFrom := ""
	if next {
		includeNextFrom = p.cursorFile
	}
	resolved := p.resolver.Resolve(name, angled, curDir, includeNextFrom)
	if resolved == "" {
		return diag.NewWithCode(diag.StagePP, p.cursorFile, "Include not found: "+name, diag.CodeIncludeNotFound)
	}
	if p.resolver.AlreadyIncluded(resolved) {
		return nil
	}
	if err := p.resolver.Enter(resolved); err != nil {
		return err
	}
	defer p.resolver.Leave()

	data, err := ReadFile(resolved)
	if err != nil {
		return err
	}
	text, childMap, err := p.Run(data, resolved)
	if err != nil {
		return err
	}
	out.WriteString(text)
	for i := 0; i < childMap.Len(); i++ {
		f, l, _ := childMap.At(i)
		lineMap.Append(f, l)
	}
	return nil
}

func dirOf(filename string) string {
	if idx := strings.LastIndexByte(filename, '/'); idx >= 0 {
		return filename[:idx]
	}
	return "."
}

func (p *Preprocessor) handleLine(rest string, cursor *sourceCursor) error {
	expanded, err := p.expandLine(rest)
	if err != nil {
		return err
	}
	fields := strings.Fields(expanded)
	if len(fields) == 0 {
		return diag.NewWithCode(diag.StagePP, p.cursorFile, "Invalid #line directive", diag.CodeInvalidDirective)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return diag.NewWithCode(diag.StagePP, p.cursorFile, "Invalid #line directive", diag.CodeInvalidDirective)
	}
	file := ""
	if len(fields) > 1 {
		file = strings.Trim(fields[1], `"`)
	}
	cursor.setLine(n, file)
	if file != "" {
		p.cursorFile = file
	}
	p.cursorLine = n
	return nil
}

func (p *Preprocessor) handlePragma(rest string, cursor *sourceCursor) error {
	rest = strings.TrimSpace(rest)
	switch {
	case rest == "once":
		p.resolver.MarkPragmaOnce(p.cursorFile)
		return nil
	case strings.HasPrefix(rest, "GCC") || strings.HasPrefix(rest, "clang"):
		return nil // vendor pragmas are accepted and otherwise ignored
	default:
		return nil
	}
}
