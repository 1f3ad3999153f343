// Package depfile parses and renders make-style dependency files — the
// indirection the two-phase compile protocol uses to recover a recorded
// prerequisite list from a source-only fingerprint before recomputing the
// full fingerprint that addresses the object cache.
package depfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/fabtrie/cade/internal/hash"
)

// DepFile is the parsed form of a .d file: one target and its ordered,
// deduplicated (case-insensitively) prerequisite list.
type DepFile struct {
	Target string
	Deps   []string
}

// Parse reads a make-style dependency file per spec §4.4:
//   - line continuations ("\" immediately before a CRLF or LF newline) fold
//     to a single space, joining continued physical lines into one logical
//     line
//   - within a logical line, double-quoted spans are token-transparent: the
//     quoted content is one token (target or prerequisite) even if it
//     contains whitespace; quotes are stripped from the stored value
//   - outside quotes, whitespace separates tokens; a backslash-escaped
//     space ("\ ") inside an unquoted token is preserved as-is
//   - the first token ending in ":" seen anywhere in the file becomes the
//     target (colon and quotes stripped, trimmed); within any logical line
//     that itself contains a ":"-ending token, every token following it on
//     that same line is a prerequisite — lines with no such token of their
//     own contribute nothing, even after the target has been established
//   - deduplication is case-insensitive; the first occurrence's original
//     case and position are kept
func Parse(content string) (DepFile, error) {
	folded := strings.ReplaceAll(content, "\\\r\n", " ")
	folded = strings.ReplaceAll(folded, "\\\n", " ")

	var target string
	haveTarget := false
	var deps []string
	seen := make(map[string]struct{})

	addDep := func(tok string) {
		tok = strings.Trim(tok, "\"")
		if tok == "" {
			return
		}
		key := strings.ToLower(tok)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		deps = append(deps, tok)
	}

	for _, line := range strings.Split(folded, "\n") {
		collecting := false
		for _, tok := range tokenizeLine(line) {
			if strings.HasSuffix(tok, ":") {
				if !haveTarget {
					target = strings.TrimSpace(strings.Trim(tok[:len(tok)-1], "\""))
					haveTarget = true
				}
				collecting = true
				continue
			}
			if collecting {
				addDep(tok)
			}
		}
	}

	if !haveTarget {
		return DepFile{}, fmt.Errorf("depfile: no target found")
	}

	return DepFile{Target: target, Deps: deps}, nil
}

// tokenizeLine splits a logical line into tokens, treating double-quoted
// spans as single tokens (surrounding quotes stripped) and unquoted runs as
// whitespace-separated tokens where "\ " is preserved literally.
func tokenizeLine(line string) []string {
	var tokens []string
	var cur strings.Builder
	inQuotes := false
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			// Quotes toggle verbatim mode without closing the current
			// token: "a":\"b\" parses as one token "a:" glued to the
			// quote-opened remainder of the same word, matching the
			// reference parser's column-based target/prereq scanning.
			inQuotes = !inQuotes
		case !inQuotes && r == '\\' && i+1 < len(runes) && runes[i+1] == ' ':
			cur.WriteString("\\ ")
			i++
		case !inQuotes && (r == ' ' || r == '\t' || r == '\r'):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()

	return tokens
}

// Render emits the make-style serialization cade writes into the dep cache
// entry and the compiler reads back from disk: "<target>:" followed by a
// " \\\n<dep>" sequence for each prerequisite, in stored order.
func (d DepFile) Render() string {
	var b strings.Builder
	b.WriteString(d.Target)
	b.WriteString(":")
	for _, dep := range d.Deps {
		b.WriteString(" \\\n")
		b.WriteString(dep)
	}
	return b.String()
}

// HashInto feeds the full contents of every prerequisite, in stored order,
// into h. A "\ " escape sequence is unescaped to a literal space before the
// file is opened, recovering the real on-disk path. Any read error aborts
// early and is returned to the caller, who treats the enclosing lookup as a
// miss (not a fatal failure) per spec §4.4.
func (d DepFile) HashInto(h *hash.Hasher) error {
	for _, dep := range d.Deps {
		realPath := strings.ReplaceAll(dep, "\\ ", " ")
		data, err := os.ReadFile(realPath)
		if err != nil {
			return fmt.Errorf("depfile: reading prerequisite %q: %w", realPath, err)
		}
		h.Update(data)
	}
	return nil
}
