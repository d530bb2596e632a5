// Package safety screens submitted snippets before anything is sent to the
// container. The check is lexical and pattern-based: it is a conservative
// filter that may reject benign code but must catch each listed pattern.
// The container remains the real sandbox; this is defense in depth against
// the common foot-guns of generated code.
package safety

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/michaelbrown/agentrun/internal/pyimports"
)

// BlockedSubstrings are rejected anywhere in the source text.
var BlockedSubstrings = []string{
	"os.system",
	"subprocess.",
	"eval(",
	"exec(",
	"open(",
	"compile(",
	"__import__",
	"importlib",
	"sys.modules",
	"globals()",
	"locals()",
	"delattr",
	"setattr",
	"rm -rf",
}

// BlockedWords are rejected as whole words.
var BlockedWords = []string{
	"fork",
	"kill",
}

// BlockedModules may not be imported in any form.
var BlockedModules = map[string]bool{
	"subprocess":      true,
	"socket":          true,
	"ctypes":          true,
	"multiprocessing": true,
	"threading":       true,
	"_thread":         true,
	"pty":             true,
	"resource":        true,
	"signal":          true,
	"sys":             true,
	"builtins":        true,
	"importlib":       true,
}

// osReadOnlyMembers are the only members that may be pulled from the os
// module ("from os import path"). A bare "import os" is rejected because
// member use cannot be verified lexically.
var osReadOnlyMembers = map[string]bool{
	"path":    true,
	"environ": true,
	"getcwd":  true,
	"sep":     true,
	"linesep": true,
	"pathsep": true,
	"curdir":  true,
	"name":    true,
}

// allowedDunders are the harmless introspection attributes; every other
// dunder attribute access is treated as an escape attempt.
var allowedDunders = map[string]bool{
	"__name__":    true,
	"__version__": true,
	"__doc__":     true,
}

var (
	// dunderAttr matches attribute access with a double-underscore prefix
	// (obj.__dict__, fn.__globals__), the classic sandbox escape hatch.
	dunderAttr = regexp.MustCompile(`\.\s*(__\w+)`)

	wordPatterns = compileWords(BlockedWords)
)

func compileWords(words []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		out[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return out
}

// Check returns nil if the snippet passes screening, or an error whose
// message is surfaced verbatim to the caller. No side effects either way.
func Check(source string) error {
	if err := checkImports(source); err != nil {
		return err
	}

	for _, pat := range BlockedSubstrings {
		if strings.Contains(source, pat) {
			return fmt.Errorf("Unsafe pattern detected: %s", strings.TrimSuffix(pat, "("))
		}
	}
	for i, re := range wordPatterns {
		if re.MatchString(source) {
			return fmt.Errorf("Unsafe pattern detected: %s", BlockedWords[i])
		}
	}
	for _, m := range dunderAttr.FindAllStringSubmatch(source, -1) {
		if !allowedDunders[m[1]] {
			return fmt.Errorf("Unsafe attribute access: %s", m[1])
		}
	}

	return checkPathLiterals(source)
}

func checkImports(source string) error {
	for _, st := range pyimports.Statements(source) {
		if BlockedModules[st.Module] {
			return fmt.Errorf("Unsafe module import: %s", st.Module)
		}
		if st.Module != "os" {
			continue
		}
		// "import os" with no member list is unverifiable; from-imports
		// are allowed only for the read-only members.
		if len(st.Names) == 0 {
			return fmt.Errorf("Unsafe module import: os")
		}
		for _, name := range st.Names {
			if !osReadOnlyMembers[name] {
				return fmt.Errorf("Unsafe module import: os.%s", name)
			}
		}
	}
	return nil
}

// pathLiteral matches quoted string literals starting with "/".
var pathLiteral = regexp.MustCompile(`['"](/[^'"]*)['"]`)

// checkPathLiterals rejects absolute path literals outside /tmp — a crude
// heuristic against snippets that write outside the working directory.
func checkPathLiterals(source string) error {
	for _, m := range pathLiteral.FindAllStringSubmatch(source, -1) {
		p := m[1]
		if p == "/tmp" || strings.HasPrefix(p, "/tmp/") {
			continue
		}
		return fmt.Errorf("Unsafe path literal: %s is outside the working directory", p)
	}
	return nil
}
