// Package glossary persists the term → Vietnamese-rendering mapping used
// to keep proper nouns consistent across translation chunks.
//
// The on-disk format is a flat JSON object, UTF-8, indented. Keys are
// compared whitespace-insensitively so a term re-extracted with different
// internal spacing is not looked up twice.
package glossary

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxTermLen guards the builder against extraction noise: anything
// longer is almost certainly a sentence fragment, not a proper noun.
const DefaultMaxTermLen = 80

// badMarkers are substrings of the phonetic service's error pages. A
// looked-up rendering containing any of them (case-insensitive) is junk.
var badMarkers = []string{
	"Lightgoldenrodyellow",
	"Viewport",
	"Quá Giới Hạn",
	"timchu",
	"phienam",
}

var reAllSpace = regexp.MustCompile(`\s+`)

// NormalizeKey strips all whitespace so that keys differing only in
// spacing or line breaks compare equal.
func NormalizeKey(s string) string {
	return reAllSpace.ReplaceAllString(s, "")
}

// ---------------------------------------------------------------------------
// Store
// ---------------------------------------------------------------------------

// Load reads a glossary file. A missing file or a root that is not a JSON
// object yields an empty mapping. Non-string values are coerced to their
// string rendering.
func Load(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading glossary %s: %w", path, err)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing glossary %s: %w", path, err)
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return map[string]string{}, nil
	}

	out := make(map[string]string, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			out[k] = val
		default:
			out[k] = fmt.Sprintf("%v", val)
		}
	}
	return out, nil
}

// Save writes the glossary as indented JSON with stable key order.
func Save(path string, m map[string]string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling glossary: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing glossary %s: %w", path, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Vietnamese proper-case
// ---------------------------------------------------------------------------

var (
	rePunctOnly = regexp.MustCompile(`^[^\p{L}\p{N}_]+$`)
	reWordCore  = regexp.MustCompile(`^([^\p{L}\p{N}_]*)([\p{L}\p{N}_]+)([^\p{L}\p{N}_]*)$`)
)

// ProperCase converts a lookup result (usually all-lowercase) into
// Vietnamese-style proper case: every word token gets a capital first
// letter, hyphenated parts are capitalized individually, and punctuation
// around or between words is preserved verbatim.
func ProperCase(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var b strings.Builder
	for _, tok := range splitPreservingSpace(s) {
		if strings.TrimSpace(tok) == "" {
			b.WriteString(tok)
			continue
		}
		b.WriteString(capToken(tok))
	}
	return strings.TrimSpace(b.String())
}

// splitPreservingSpace splits into alternating word and whitespace runs so
// the original separators survive reassembly.
func splitPreservingSpace(s string) []string {
	var parts []string
	var cur strings.Builder
	var inSpace bool

	for i, r := range s {
		isSpace := unicode.IsSpace(r)
		if i > 0 && isSpace != inSpace {
			parts = append(parts, cur.String())
			cur.Reset()
		}
		inSpace = isSpace
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

func capToken(tok string) string {
	if rePunctOnly.MatchString(tok) {
		return tok
	}

	sub := strings.Split(tok, "-")
	out := make([]string, 0, len(sub))
	for _, sp := range sub {
		if sp == "" {
			out = append(out, sp)
			continue
		}

		m := reWordCore.FindStringSubmatch(sp)
		if m == nil {
			out = append(out, upperFirst(sp))
			continue
		}

		lead, core, tail := m[1], m[2], m[3]
		if utf8.RuneCountInString(core) > 1 {
			core = upperFirst(strings.ToLower(core))
		} else {
			core = strings.ToUpper(core)
		}
		out = append(out, lead+core+tail)
	}
	return strings.Join(out, "-")
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// ---------------------------------------------------------------------------
// Builder
// ---------------------------------------------------------------------------

// LookupFunc resolves one source term into a phonetic rendering.
type LookupFunc func(ctx context.Context, term string) (string, error)

// BuildOptions controls glossary building.
type BuildOptions struct {
	// MaxTermLen skips candidate terms longer than this (0 = DefaultMaxTermLen).
	MaxTermLen int
	// OnLog emits per-term progress.
	OnLog func(format string, args ...any)
}

func (o *BuildOptions) effectiveMaxTermLen() int {
	if o.MaxTermLen > 0 {
		return o.MaxTermLen
	}
	return DefaultMaxTermLen
}

func (o *BuildOptions) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

// Build resolves candidate terms into glossary entries via lookup. Each
// term is looked up at most once: terms already present in existing or in
// the output so far are skipped, over-length terms are skipped, and
// renderings matching a known service error page are discarded. Only
// non-empty results are accumulated.
func Build(ctx context.Context, terms []string, existing map[string]string, lookup LookupFunc, opts BuildOptions) map[string]string {
	out := map[string]string{}
	total := len(terms)
	if total == 0 {
		return out
	}

	known := make(map[string]string, len(existing))
	for k, v := range existing {
		known[NormalizeKey(k)] = v
	}

	opts.log("Looking up %d terms via Hán-Việt service (each at most once)...", total)

	for i, term := range terms {
		key := strings.ReplaceAll(term, "\r", " ")
		key = strings.TrimSpace(strings.ReplaceAll(key, "\n", " "))
		if key == "" {
			continue
		}

		nk := NormalizeKey(key)
		if prev, ok := known[nk]; ok {
			opts.log("[%d/%d] already known: %s -> %s", i+1, total, key, prev)
			continue
		}

		if n := utf8.RuneCountInString(key); n > opts.effectiveMaxTermLen() {
			opts.log("[%d/%d] skipped (too long, %d chars): %.50s...", i+1, total, n, key)
			continue
		}

		raw, err := lookup(ctx, key)
		if err != nil {
			raw = ""
		}

		hv := ""
		if raw != "" {
			hv = ProperCase(raw)
			if containsBadMarker(hv) {
				hv = ""
			}
		}

		if hv != "" {
			out[key] = hv
			known[nk] = hv
			opts.log("[%d/%d] %s -> %s", i+1, total, key, hv)
		} else {
			opts.log("[%d/%d] %s -> (no result)", i+1, total, key)
		}
	}

	opts.log("Resolved %d/%d terms.", len(out), total)
	return out
}

func containsBadMarker(s string) bool {
	low := strings.ToLower(s)
	for _, m := range badMarkers {
		if strings.Contains(low, strings.ToLower(m)) {
			return true
		}
	}
	return false
}
