// Command xccfrontend drives the compiler frontend over a single
// translation unit: preprocess, lex, parse and analyze, optionally
// dumping the intermediate results.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/tcztzy/xcc-sub000/internal/cc/diag"
	"github.com/tcztzy/xcc-sub000/xcc"
)

func main() {
	dumpTokens := flag.Bool("dump-tokens", false, "Print the token stream after preprocessing")
	dumpAST := flag.Bool("dump-ast", false, "Print the parsed translation unit")
	dumpSema := flag.Bool("dump-sema", false, "Print the analyzed function/type summary")
	std := flag.String("std", "gnu11", "Language standard: c11 or gnu11")
	hosted := flag.Bool("hosted", true, "Assume a hosted environment (__STDC_HOSTED__)")
	noStdInc := flag.Bool("no-standard-includes", false, "Suppress host system include directories")
	warnAsError := flag.Bool("warn-as-error", false, "Accepted for compatibility; no stage emits warnings, so it has no effect")
	diagFormat := flag.String("diag-format", "human", "Diagnostic rendering: human or json")
	targetOS := flag.String("target-os", "", "Target OS for predefined platform macros (e.g. linux, windows, macos)")
	targetArch := flag.String("target-arch", "", "Target architecture for predefined platform macros (e.g. x86_64, aarch64)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	var includeDirs, quoteIncludeDirs, systemIncludeDirs, afterIncludeDirs multiFlag
	flag.Var(&includeDirs, "I", "Add a directory to the include search path (repeatable)")
	flag.Var(&quoteIncludeDirs, "iquote", "Add a directory searched only for quote-includes (repeatable)")
	flag.Var(&systemIncludeDirs, "isystem", "Add a system include directory (repeatable)")
	flag.Var(&afterIncludeDirs, "idirafter", "Add a directory searched after all others (repeatable)")

	var forcedIncludes, macroIncludes, defines, undefs multiFlag
	flag.Var(&forcedIncludes, "include", "Textually include a file before the main source (repeatable)")
	flag.Var(&macroIncludes, "imacros", "Process a file for its macro definitions only (repeatable)")
	flag.Var(&defines, "D", "Define a macro, NAME or NAME=body (repeatable)")
	flag.Var(&undefs, "U", "Undefine a macro (repeatable)")

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		log.Fatalf("Program requires exactly 1 argument - the input path, or - for stdin. Flags need to be defined before the argument")
	}
	input := flag.Arg(0)

	var standard xcc.Standard
	switch strings.ToLower(*std) {
	case "c11":
		standard = xcc.C11
	case "gnu11":
		standard = xcc.GNU11
	default:
		log.Fatalf("Unknown -std value %q: expected c11 or gnu11", *std)
	}

	var format xcc.DiagFormat
	switch strings.ToLower(*diagFormat) {
	case "human":
		format = xcc.DiagHuman
	case "json":
		format = xcc.DiagJSON
	default:
		log.Fatalf("Unknown -diag-format value %q: expected human or json", *diagFormat)
	}

	opts := xcc.FrontendOptions{
		Std:                standard,
		IncludeDirs:        includeDirs,
		QuoteIncludeDirs:   quoteIncludeDirs,
		SystemIncludeDirs:  systemIncludeDirs,
		AfterIncludeDirs:   afterIncludeDirs,
		ForcedIncludes:     forcedIncludes,
		MacroIncludes:      macroIncludes,
		Defines:            defines,
		Undefs:             undefs,
		TargetOS:           *targetOS,
		TargetArch:         *targetArch,
		Hosted:             *hosted,
		NoStandardIncludes: *noStdInc,
		WarnAsError:        *warnAsError,
		DiagFormat:         format,
	}

	var result *xcc.FrontendResult
	var err error
	if input == "-" {
		if *verbose {
			log.Printf("Reading source from stdin")
		}
		var source []byte
		source, err = io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatalf("Failed to read stdin: %v", err)
		}
		result, err = xcc.CompileSource(string(source), "<stdin>", opts)
	} else {
		if *verbose {
			log.Printf("Compiling %s", input)
		}
		result, err = xcc.CompilePath(input, opts)
	}

	if err != nil {
		reportError(err, format)
		os.Exit(1)
	}

	if *dumpTokens {
		dumpTokenStream(result)
	}
	if *dumpAST {
		dumpTranslationUnit(result)
	}
	if *dumpSema {
		dumpSemaUnit(result)
	}
}

// multiFlag implements flag.Value, accumulating one value per occurrence
// of a repeatable flag (e.g. -I dir1 -I dir2).
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(value string) error {
	*m = append(*m, value)
	return nil
}

func reportError(err error, format xcc.DiagFormat) {
	fe, ok := err.(*diag.FrontendError)
	if !ok {
		log.Print(err)
		return
	}
	if format == xcc.DiagJSON {
		encoded, marshalErr := json.Marshal(fe.Diagnostic)
		if marshalErr != nil {
			log.Print(fe.Diagnostic.String())
			return
		}
		fmt.Fprintln(os.Stderr, string(encoded))
		return
	}
	fmt.Fprintln(os.Stderr, fe.Diagnostic.String())
}

func dumpTokenStream(result *xcc.FrontendResult) {
	for _, tok := range result.Tokens {
		fmt.Printf("%d:%d %s %q\n", tok.Line, tok.Column, tok.Kind, tok.Lexeme)
	}
}

func dumpTranslationUnit(result *xcc.FrontendResult) {
	for _, fn := range result.Unit.Functions {
		stmts := 0
		if fn.Body != nil {
			stmts = len(fn.Body.Statements)
		}
		fmt.Printf("function %s -> %s (%d params, %d stmts)\n",
			fn.Name, fn.ReturnType.Name, len(fn.Params), stmts)
	}
	for _, decl := range result.Unit.Declarations {
		fmt.Printf("declaration %T\n", decl)
	}
}

func dumpSemaUnit(result *xcc.FrontendResult) {
	names := make([]string, 0, len(result.Sema.Functions))
	for name := range result.Sema.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fn := result.Sema.Functions[name]
		fmt.Printf("%s: returns %s, %d locals\n", fn.Name, fn.ReturnType, len(fn.Locals))
	}
}
