// Package xcc is the compiler-frontend façade: preprocess, lex, parse and
// analyze a C11/GNU11 translation unit in one call.
package xcc

import "github.com/tcztzy/xcc-sub000/internal/cc/preprocessor"

// Standard selects the accepted dialect.
type Standard = preprocessor.Standard

const (
	C11   = preprocessor.C11
	GNU11 = preprocessor.GNU11
)

// DiagFormat selects how diagnostics are rendered by cmd/xccfrontend; the
// façade itself always returns structured Diagnostic values regardless of
// this setting.
type DiagFormat int

const (
	DiagHuman DiagFormat = iota
	DiagJSON
)

// FrontendOptions configures one CompileSource/CompilePath call.
type FrontendOptions struct {
	Std Standard

	IncludeDirs       []string
	QuoteIncludeDirs  []string
	SystemIncludeDirs []string
	AfterIncludeDirs  []string

	// ForcedIncludes names files textually included before the main
	// source, as if by "#include" (the -include compiler flag).
	ForcedIncludes []string
	// MacroIncludes names files processed for their #define/#undef
	// directives only, before the main source (the -imacros flag); any
	// other output they produce is discarded.
	MacroIncludes []string

	Defines []string // "NAME=body" or "NAME" (body defaults to "1")
	Undefs  []string

	// TargetOS/TargetArch select a compilation target whose conventional
	// predefined macros (__linux__, _WIN32, __x86_64__, and so on) are
	// seeded before Defines/Undefs are applied. Leave both empty to skip
	// target-specific predefined macros entirely.
	TargetOS   string
	TargetArch string

	Hosted             bool
	NoStandardIncludes bool
	WarnAsError        bool

	DiagFormat DiagFormat
}
