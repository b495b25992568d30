// Package extract pulls proper nouns and formal titles out of a document
// sample by asking a chat model for strict JSON, then defensively parsing
// whatever actually comes back.
//
// Models routinely ignore the "strict JSON" instruction, so parsing is an
// ordered chain of strategies tried until one succeeds: whole-response
// JSON, an "items" array fragment fished out by regex, and finally a raw
// split on common delimiters. Every candidate item goes through the same
// cleanup and garbage filter regardless of which strategy produced it.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hanviet-tools/hvkit/glossary"
	"github.com/hanviet-tools/hvkit/llm"
)

// DefaultMaxItems caps the number of extracted terms.
const DefaultMaxItems = 250

// DefaultMaxItemLen rejects candidates longer than this; names are short.
const DefaultMaxItemLen = 100

// DefaultSampleLimit bounds how much of the document is sent to the model.
const DefaultSampleLimit = 20000

// Options controls extraction.
type Options struct {
	// Model is the chat model used for extraction.
	Model string
	// MaxItems caps the result list (0 = DefaultMaxItems).
	MaxItems int
	// MaxItemLen rejects longer candidates (0 = DefaultMaxItemLen).
	MaxItemLen int
	// SampleLimit truncates the input sample (0 = DefaultSampleLimit).
	SampleLimit int
}

func (o *Options) effectiveMaxItems() int {
	if o.MaxItems > 0 {
		return o.MaxItems
	}
	return DefaultMaxItems
}

func (o *Options) effectiveMaxItemLen() int {
	if o.MaxItemLen > 0 {
		return o.MaxItemLen
	}
	return DefaultMaxItemLen
}

func (o *Options) effectiveSampleLimit() int {
	if o.SampleLimit > 0 {
		return o.SampleLimit
	}
	return DefaultSampleLimit
}

// ---------------------------------------------------------------------------
// Prompting
// ---------------------------------------------------------------------------

func systemPrompt(maxItems int) string {
	return "You are an expert linguistic annotator.\n" +
		"Extract ONLY proper nouns and formal titles from the text: person names, place names, " +
		"official titles, noble ranks, era names, institutions.\n" +
		"Return STRICT JSON only.\n" +
		"Schema: {\"items\": [\"...\"]}\n" +
		"Rules:\n" +
		fmt.Sprintf("- Return at most %d items.\n", maxItems) +
		"- Each item must be a short single-line string (no newlines).\n" +
		"- Do NOT include explanations.\n" +
		"- Do NOT include duplicates.\n" +
		"- Do NOT include sentences.\n" +
		"- No markdown. No code fences.\n"
}

func userPrompt(sample, sourceLang string) string {
	return fmt.Sprintf(`Source language: %s
Task: Extract unique name/title strings that should be standardized in translation.

Return JSON only:
{"items": ["..."]}

Text:
%s`, sourceLang, sample)
}

// Nouns asks the model for the proper nouns in a text sample. The sample
// is truncated to the configured limit before it is sent. The returned
// list is cleaned, deduplicated (whitespace-insensitively, first seen
// wins) and capped. A response no strategy can parse yields an empty
// list, not an error; only the API call itself can fail.
func Nouns(ctx context.Context, client llm.Client, text, sourceLang string, opts Options) ([]string, error) {
	sample := truncate(text, opts.effectiveSampleLimit())

	raw, err := client.Complete(ctx, llm.Request{
		Model:       opts.Model,
		Temperature: 0,
		System:      systemPrompt(opts.effectiveMaxItems()),
		User:        userPrompt(sample, sourceLang),
	})
	if err != nil {
		return nil, fmt.Errorf("extracting proper nouns: %w", err)
	}

	return ParseItems(raw, opts), nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// ---------------------------------------------------------------------------
// Response parsing
// ---------------------------------------------------------------------------

var (
	reCodeFence  = regexp.MustCompile("(?i)^```(?:json)?\\s*|\\s*```$")
	reItemsArray = regexp.MustCompile(`(?s)"items"\s*:\s*\[(.*?)\]`)
	reDelimiters = regexp.MustCompile(`[\n,，、;；]+`)
)

// parser attempts to turn a raw model response into candidate items.
type parser func(raw string) ([]string, bool)

// parsers is the ordered fallback chain; the first success wins.
var parsers = []parser{parseStrictJSON, parseItemsFragment, parseDelimited}

// ParseItems runs the fallback chain over a raw model response and
// sanitizes whichever candidate list comes out.
func ParseItems(raw string, opts Options) []string {
	raw = stripCodeFence(raw)

	for _, p := range parsers {
		if items, ok := p(raw); ok {
			return sanitize(items, opts)
		}
	}
	return nil
}

func stripCodeFence(s string) string {
	return reCodeFence.ReplaceAllString(strings.TrimSpace(s), "")
}

// firstJSONObject parses s as a JSON object, falling back to the slice
// between the first '{' and the last '}'.
func firstJSONObject(s string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err == nil {
		return obj
	}

	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first == -1 || last <= first {
		return nil
	}
	if err := json.Unmarshal([]byte(s[first:last+1]), &obj); err != nil {
		return nil
	}
	return obj
}

func itemsFromObject(obj map[string]any) ([]string, bool) {
	if obj == nil {
		return nil, false
	}
	list, ok := obj["items"].([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		} else {
			out = append(out, fmt.Sprintf("%v", v))
		}
	}
	return out, true
}

func parseStrictJSON(raw string) ([]string, bool) {
	return itemsFromObject(firstJSONObject(raw))
}

func parseItemsFragment(raw string) ([]string, bool) {
	m := reItemsArray.FindStringSubmatch(raw)
	if m == nil {
		return nil, false
	}
	return itemsFromObject(firstJSONObject(`{"items":[` + m[1] + `]}`))
}

func parseDelimited(raw string) ([]string, bool) {
	return reDelimiters.Split(raw, -1), true
}

// ---------------------------------------------------------------------------
// Item cleanup
// ---------------------------------------------------------------------------

var (
	reBullets   = regexp.MustCompile(`^[-•*]+\s*`)
	reNumbering = regexp.MustCompile(`^\d+[).\-\s]+`)
	reSpaceRun  = regexp.MustCompile(`\s+`)
	reClauseSep = regexp.MustCompile(`[，。；;,:]`)
)

func cleanItem(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	s = reSpaceRun.ReplaceAllString(s, " ")
	s = reBullets.ReplaceAllString(s, "")
	s = reNumbering.ReplaceAllString(s, "")
	if len(s) >= 2 {
		if (strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`)) ||
			(strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'")) {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return strings.TrimSpace(s)
}

// isGarbage rejects candidates that are clearly not names: over-length
// strings, JSON fragments, meta lines, and sentence-like text with three
// or more clause separators.
func isGarbage(s string, maxLen int) bool {
	if s == "" {
		return true
	}
	if utf8.RuneCountInString(s) > maxLen {
		return true
	}
	if strings.ContainsAny(s, "{}[]") {
		return true
	}
	low := strings.ToLower(s)
	for _, prefix := range []string{"items:", "json", "output", "schema"} {
		if strings.HasPrefix(low, prefix) {
			return true
		}
	}
	if len(reClauseSep.FindAllString(s, -1)) >= 3 {
		return true
	}
	return false
}

// sanitize cleans, filters, deduplicates and caps candidate items,
// preserving first-seen order.
func sanitize(items []string, opts Options) []string {
	seen := map[string]bool{}
	var out []string
	for _, it := range items {
		cleaned := cleanItem(it)
		if isGarbage(cleaned, opts.effectiveMaxItemLen()) {
			continue
		}
		key := glossary.NormalizeKey(cleaned)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, cleaned)
		if len(out) >= opts.effectiveMaxItems() {
			break
		}
	}
	return out
}
