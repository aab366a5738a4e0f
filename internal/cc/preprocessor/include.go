package preprocessor

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tcztzy/xcc-sub000/internal/cc/diag"
	"github.com/tcztzy/xcc-sub000/internal/collections"
)

// Resolver implements #include/#include_next search-path resolution, cycle
// detection, and #pragma once.
type Resolver struct {
	QuoteDirs, IncludeDirs, SystemDirs, AfterDirs []string

	openStack  []string // resolved paths currently being read, for cycle detection
	pragmaOnce collections.Set[string]
}

func NewResolver(quoteDirs, includeDirs, systemDirs, afterDirs []string) *Resolver {
	return &Resolver{
		QuoteDirs:   expandGlobs(quoteDirs),
		IncludeDirs: expandGlobs(includeDirs),
		SystemDirs:  expandGlobs(systemDirs),
		AfterDirs:   expandGlobs(afterDirs),
		pragmaOnce:  make(collections.Set[string]),
	}
}

// expandGlobs lets an include-dir entry be a doublestar glob pattern (e.g.
// "vendor/**/include") in addition to a plain directory. Non-glob entries
// and patterns matching nothing pass through
// unchanged so a configured-but-absent directory is still reported as
// "not found" rather than silently vanishing.
func expandGlobs(dirs []string) []string {
	var out []string
	for _, d := range dirs {
		if !strings.ContainsAny(d, "*?[") {
			out = append(out, d)
			continue
		}
		matches, err := doublestar.FilepathGlob(d)
		if err != nil || len(matches) == 0 {
			out = append(out, d)
			continue
		}
		out = append(out, matches...)
	}
	return out
}

func (r *Resolver) searchOrder(angled bool, curDir string) []string {
	var dirs []string
	if !angled {
		dirs = append(dirs, curDir)
		dirs = append(dirs, r.QuoteDirs...)
	}
	dirs = append(dirs, r.IncludeDirs...)
	dirs = append(dirs, r.SystemDirs...)
	dirs = append(dirs, r.AfterDirs...)
	return dirs
}

// Resolve finds the file for #include name, returning the resolved path or
// "" if not found. includeNext starts the search after the first search
// directory that contains includeNextFrom (gnu11 only).
func (r *Resolver) Resolve(name string, angled bool, curDir string, includeNextFrom string) string {
	dirs := r.searchOrder(angled, curDir)
	start := 0
	if includeNextFrom != "" {
		for i, d := range dirs {
			if filepath.Clean(d) == filepath.Clean(filepath.Dir(includeNextFrom)) || filepath.Join(d, filepath.Base(includeNextFrom)) == includeNextFrom {
				start = i + 1
				break
			}
		}
	}
	for _, d := range dirs[start:] {
		candidate := filepath.Join(d, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// HasInclude implements __has_include(operand) without side effects.
func (r *Resolver) HasInclude(name string, angled bool, curDir string) bool {
	return r.Resolve(name, angled, curDir, "") != ""
}

// Enter pushes resolvedPath onto the open-file stack, failing with
// XCC-PP-0302 on a cycle.
func (r *Resolver) Enter(resolvedPath string) error {
	for _, open := range r.openStack {
		if open == resolvedPath {
			return diag.NewWithCode(diag.StagePP, resolvedPath, "Include cycle detected", diag.CodeIncludeCycle)
		}
	}
	r.openStack = append(r.openStack, resolvedPath)
	return nil
}

// Leave pops the most recently entered path.
func (r *Resolver) Leave() {
	if len(r.openStack) > 0 {
		r.openStack = r.openStack[:len(r.openStack)-1]
	}
}

// MarkPragmaOnce records resolvedPath as "#pragma once"-protected.
func (r *Resolver) MarkPragmaOnce(resolvedPath string) { r.pragmaOnce.Add(resolvedPath) }

// AlreadyIncluded reports whether resolvedPath was previously marked
// #pragma once, meaning later #includes of it expand to nothing.
func (r *Resolver) AlreadyIncluded(resolvedPath string) bool {
	return r.pragmaOnce.Contains(resolvedPath)
}

// ReadFile reads resolvedPath, wrapping any I/O error as XCC-PP-0301.
func ReadFile(resolvedPath string) (string, error) {
	data, err := os.ReadFile(resolvedPath)
	if err != nil {
		return "", diag.NewWithCode(diag.StagePP, resolvedPath, err.Error(), diag.CodeIncludeReadError)
	}
	return string(data), nil
}
