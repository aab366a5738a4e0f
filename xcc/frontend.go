package xcc

import (
	"fmt"
	"os"
	"time"

	"github.com/tcztzy/xcc-sub000/internal/cc/ast"
	"github.com/tcztzy/xcc-sub000/internal/cc/diag"
	"github.com/tcztzy/xcc-sub000/internal/cc/lexer"
	"github.com/tcztzy/xcc-sub000/internal/cc/parser"
	"github.com/tcztzy/xcc-sub000/internal/cc/platform"
	"github.com/tcztzy/xcc-sub000/internal/cc/preprocessor"
	"github.com/tcztzy/xcc-sub000/internal/cc/sema"
	"github.com/tcztzy/xcc-sub000/internal/cc/token"
)

// FrontendResult is everything a successful CompileSource/CompilePath call
// produces.
type FrontendResult struct {
	Filename string
	Source   string
	Tokens   []token.Token
	Unit     *ast.TranslationUnit
	Sema     *sema.Unit
	LineMap  *preprocessor.LineMap
}

func newResolver(opts FrontendOptions) *preprocessor.Resolver {
	systemDirs := opts.SystemIncludeDirs
	if !opts.NoStandardIncludes {
		systemDirs = append(append([]string{}, systemDirs...), defaultSystemIncludeDirs()...)
	}
	return preprocessor.NewResolver(opts.QuoteIncludeDirs, opts.IncludeDirs, systemDirs, opts.AfterIncludeDirs)
}

// defaultSystemIncludeDirs is empty: a hosted environment's real system
// headers aren't bundled with this module, so "standard" include lookup
// only ever resolves directories the caller configured explicitly.
func defaultSystemIncludeDirs() []string { return nil }

func newPreprocessor(opts FrontendOptions, now time.Time) *preprocessor.Preprocessor {
	pp := preprocessor.NewPreprocessor(opts.Std, newResolver(opts), now)
	if !opts.Hosted {
		pp.Define(preprocessor.Macro{Name: "__STDC_HOSTED__", Body: mustTokens("0")})
	}
	if opts.TargetOS != "" || opts.TargetArch != "" {
		if target, err := platform.Create(platform.OS(opts.TargetOS), platform.Arch(opts.TargetArch)); err == nil {
			for name, value := range platform.KnownPlatformEnv[target] {
				pp.Define(preprocessor.Macro{Name: name, Body: mustTokens(fmt.Sprint(value))})
			}
		}
	}
	for _, name := range opts.Undefs {
		pp.Undef(name)
	}
	for _, d := range opts.Defines {
		m, err := preprocessor.ParseMacroDefine(d)
		if err == nil {
			pp.Define(m)
		}
	}
	return pp
}

func mustTokens(s string) []token.Token {
	toks, err := lexer.LexPP(s, false)
	if err != nil {
		return nil
	}
	return toks
}

// CompileSource runs preprocess -> lex -> parse -> analyze over source,
// converting the first stage failure into a *diag.FrontendError tagged
// with its originating stage.
func CompileSource(source, filename string, opts FrontendOptions) (*FrontendResult, error) {
	pp := newPreprocessor(opts, time.Now())

	for _, inc := range opts.MacroIncludes {
		text, err := os.ReadFile(inc)
		if err != nil {
			return nil, diag.Wrap(diag.StagePP, inc, err)
		}
		// Only the #define/#undef side effects on pp's shared macro table
		// matter here; the expanded text itself is discarded.
		if _, _, err := pp.Run(string(text), inc); err != nil {
			return nil, asFrontendError(diag.StagePP, inc, err)
		}
	}

	var preamble string
	for _, inc := range opts.ForcedIncludes {
		text, err := os.ReadFile(inc)
		if err != nil {
			return nil, diag.Wrap(diag.StagePP, inc, err)
		}
		preamble += string(text) + "\n"
	}

	preprocessed, lineMap, err := pp.Run(preamble+source, filename)
	if err != nil {
		return nil, asFrontendError(diag.StagePP, filename, err)
	}

	toks, err := lexer.Lex(preprocessed)
	if err != nil {
		return nil, asFrontendError(diag.StageLex, filename, err)
	}

	unit, err := parser.Parse(toks)
	if err != nil {
		return nil, asFrontendError(diag.StageParse, filename, err)
	}

	semaUnit, err := sema.Analyze(unit)
	if err != nil {
		return nil, asFrontendError(diag.StageSema, filename, err)
	}

	return &FrontendResult{
		Filename: filename,
		Source:   source,
		Tokens:   toks,
		Unit:     unit,
		Sema:     semaUnit,
		LineMap:  lineMap,
	}, nil
}

// CompilePath reads path as UTF-8 text and delegates to CompileSource.
func CompilePath(path string, opts FrontendOptions) (*FrontendResult, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, diag.Wrap(diag.StagePP, path, err)
	}
	return CompileSource(string(text), path, opts)
}

// asFrontendError normalizes any stage's error type into a *diag.FrontendError
// carrying that stage's location if the underlying error has one.
func asFrontendError(stage diag.Stage, filename string, err error) *diag.FrontendError {
	if fe, ok := err.(*diag.FrontendError); ok {
		return fe
	}
	switch e := err.(type) {
	case *lexer.LexError:
		return diag.NewAt(stage, filename, e.Message, e.Line, e.Column)
	case *parser.Error:
		return diag.NewAt(stage, filename, e.Message, e.Line, e.Column)
	case *sema.Error:
		return diag.NewAt(stage, filename, e.Message, e.Line, e.Column)
	default:
		return diag.Wrap(stage, filename, err)
	}
}
