// Package pyimports statically discovers the third-party modules a Python
// snippet imports. It never touches the filesystem or the network — the
// result is a pure function of the source text.
package pyimports

import (
	"sort"
	"strings"
)

// Statement is one import statement found in a snippet.
type Statement struct {
	// Module is the first dotted segment of the imported module path.
	// For "import foo.bar" and "from foo.bar import baz" it is "foo".
	// For "from . import x" it is "".
	Module string

	// Names are the imported members for the from-import form
	// ("from os import path, environ" -> ["path", "environ"]).
	// Empty for plain imports.
	Names []string
}

// Statements scans the snippet and returns every import statement, in
// source order. The scanner is lexical: it skips comments and string
// literals, handles parenthesized and semicolon-separated forms, and
// ignores anything that does not look like an import.
func Statements(source string) []Statement {
	var out []Statement
	for _, stmt := range logicalStatements(source) {
		fields := strings.Fields(stmt)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "import":
			// import a.b as c, d.e
			for _, clause := range splitClauses(fields[1:]) {
				if clause == "" {
					continue
				}
				out = append(out, Statement{Module: firstSegment(clause)})
			}
		case "from":
			// from a.b import c as d, e
			idx := indexOf(fields, "import")
			if idx < 2 {
				continue
			}
			st := Statement{Module: firstSegment(fields[1])}
			for _, name := range splitClauses(fields[idx+1:]) {
				if name != "" && name != "*" {
					st.Names = append(st.Names, name)
				}
			}
			out = append(out, st)
		}
	}
	return out
}

// Extract returns the deduplicated, sorted set of third-party top-level
// modules the snippet imports: everything Statements finds minus the
// standard library and builtin modules.
func Extract(source string) []string {
	seen := make(map[string]bool)
	for _, st := range Statements(source) {
		if st.Module == "" || IsStdlib(st.Module) {
			continue
		}
		seen[st.Module] = true
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// logicalStatements splits the source into statements: comments and string
// literal contents stripped, lines split on top-level semicolons,
// parenthesized import lists joined onto one line.
func logicalStatements(source string) []string {
	var (
		stmts   []string
		current strings.Builder
		depth   int
	)

	flush := func() {
		for _, part := range strings.Split(current.String(), ";") {
			part = strings.TrimSpace(part)
			if part != "" {
				stmts = append(stmts, part)
			}
		}
		current.Reset()
	}

	for _, line := range strings.Split(source, "\n") {
		code := stripLine(line)
		current.WriteString(" ")
		current.WriteString(code)
		depth += strings.Count(code, "(") - strings.Count(code, ")")
		if depth > 0 {
			// Parenthesized continuation: keep accumulating.
			continue
		}
		depth = 0
		if strings.HasSuffix(strings.TrimSpace(code), "\\") {
			continue
		}
		flush()
	}
	flush()
	return stmts
}

// stripLine removes comments and blanks out string literal contents so the
// statement scanner never mistakes quoted text for code. Escape sequences
// inside literals are skipped; triple quotes are treated as plain quotes,
// which is good enough for import discovery (imports inside docstrings are
// a false positive the conservative pipeline tolerates).
func stripLine(line string) string {
	var (
		b      strings.Builder
		quote  byte
		escape bool
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			if escape {
				escape = false
				continue
			}
			switch c {
			case '\\':
				escape = true
			case quote:
				quote = 0
				b.WriteByte(c)
			}
			continue
		}
		switch c {
		case '#':
			return b.String()
		case '\'', '"':
			quote = c
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// splitClauses splits the tail of an import statement on commas and drops
// "as" aliases: ["a.b", "as", "c,", "d"] -> ["a.b", "d"].
func splitClauses(fields []string) []string {
	joined := strings.Join(fields, " ")
	joined = strings.Trim(joined, "()")
	var out []string
	for _, clause := range strings.Split(joined, ",") {
		parts := strings.Fields(clause)
		if len(parts) == 0 {
			continue
		}
		out = append(out, strings.Trim(parts[0], "()"))
	}
	return out
}

func firstSegment(module string) string {
	module = strings.Trim(module, "()")
	if module == "" || strings.HasPrefix(module, ".") {
		return ""
	}
	seg, _, _ := strings.Cut(module, ".")
	return seg
}

func indexOf(fields []string, word string) int {
	for i, f := range fields {
		if f == word {
			return i
		}
	}
	return -1
}
