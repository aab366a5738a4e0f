package preprocessor

// LineMap records, for each physical output line, the originating filename
// and line number so downstream diagnostics can point back into the source
// the user actually wrote, even after macro expansion, #include splicing,
// and #line rebasing.
type LineMap struct {
	files []string
	lines []int
}

// Append records that the next output line originated from (file, line).
func (lm *LineMap) Append(file string, line int) {
	lm.files = append(lm.files, file)
	lm.lines = append(lm.lines, line)
}

// Len returns the number of recorded output lines.
func (lm *LineMap) Len() int { return len(lm.files) }

// At returns the (file, line) an output line (0-based) originated from.
func (lm *LineMap) At(outputLine int) (file string, line int, ok bool) {
	if outputLine < 0 || outputLine >= len(lm.files) {
		return "", 0, false
	}
	return lm.files[outputLine], lm.lines[outputLine], true
}

// sourceCursor tracks the #line-adjustable (filename, line) pair used to
// stamp __FILE__/__LINE__ and the line map while a buffer is being scanned.
type sourceCursor struct {
	file       string
	line       int
	physical   int // physical line number, unaffected by #line
}

func newSourceCursor(file string) *sourceCursor {
	return &sourceCursor{file: file, line: 1, physical: 1}
}

func (c *sourceCursor) advance() {
	c.line++
	c.physical++
}

// setLine implements "#line N" and "#line N \"file\"": N rebases the
// *reported* line number of the line following the directive. The cursor
// is set to N-1 because the caller advances past the directive line itself.
func (c *sourceCursor) setLine(n int, file string) {
	c.line = n - 1
	if file != "" {
		c.file = file
	}
}
