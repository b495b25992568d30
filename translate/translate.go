// Package translate drives chunked document translation through a
// chat-completion model.
//
// Documents are split at paragraph boundaries into budget-bounded chunks;
// each chunk is translated independently with a fixed three-message
// transcript (system instruction, assistant guidance, user content built
// from an intro text, an optional glossary block and the chunk body).
package translate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hanviet-tools/hvkit/llm"
)

// DefaultBudget is the per-chunk character budget.
const DefaultBudget = 6000

// DefaultMode is the default translation style.
const DefaultMode = "smooth"

// ---------------------------------------------------------------------------
// Prompt bundle
// ---------------------------------------------------------------------------

// Bundle is a resolved, validated set of prompt texts for one
// language/mode pair. Loading fails fast on any missing file instead of
// deferring the lookup to each translation call.
type Bundle struct {
	Lang string
	Mode string

	System    string
	Assistant string
	Intro     string
}

// LoadBundle reads the prompt files for a language/mode pair from dir:
// system_{lang}_{mode}.txt, assistant_{lang}_{mode}.txt and
// intro_{lang}.txt (intro_auto.txt when lang is "auto").
func LoadBundle(dir, lang, mode string) (*Bundle, error) {
	if mode == "" {
		mode = DefaultMode
	}

	system, err := readPrompt(dir, fmt.Sprintf("system_%s_%s.txt", lang, mode))
	if err != nil {
		return nil, err
	}
	assistant, err := readPrompt(dir, fmt.Sprintf("assistant_%s_%s.txt", lang, mode))
	if err != nil {
		return nil, err
	}
	intro, err := readPrompt(dir, fmt.Sprintf("intro_%s.txt", lang))
	if err != nil {
		return nil, err
	}

	return &Bundle{
		Lang:      lang,
		Mode:      mode,
		System:    system,
		Assistant: assistant,
		Intro:     intro,
	}, nil
}

func readPrompt(dir, name string) (string, error) {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("prompt file not found: %s (create it before translating)", path)
		}
		return "", fmt.Errorf("reading prompt file %s: %w", path, err)
	}
	return string(data), nil
}

// ---------------------------------------------------------------------------
// Chunking
// ---------------------------------------------------------------------------

// SplitChunks cuts text into chunks of at most budget characters, packing
// whole paragraphs (split on blank lines) greedily. A paragraph is never
// split internally; a single paragraph larger than the budget becomes its
// own oversized chunk.
func SplitChunks(text string, budget int) []string {
	if budget <= 0 {
		budget = DefaultBudget
	}

	paragraphs := strings.Split(text, "\n\n")
	var chunks []string
	current := ""

	for _, para := range paragraphs {
		if utf8.RuneCountInString(current)+utf8.RuneCountInString(para)+2 <= budget {
			if current == "" {
				current = para
			} else {
				current = current + "\n\n" + para
			}
		} else {
			if strings.TrimSpace(current) != "" {
				chunks = append(chunks, strings.TrimSpace(current))
			}
			current = para
		}
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}

	return chunks
}

// ---------------------------------------------------------------------------
// Glossary rendering
// ---------------------------------------------------------------------------

// RenderGlossary formats the glossary as the block injected into each
// chunk request, one "- source => target" line per entry in stable key
// order. An empty glossary renders as an empty string.
func RenderGlossary(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("=== GLOSSARY (THAM KHẢO, HOA/THƯỜNG tùy theo hoàn cảnh mà sửa đổi) ===\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s => %s\n", k, m[k])
	}
	b.WriteString("=== END GLOSSARY ===\n\n")
	return b.String()
}

// ---------------------------------------------------------------------------
// Translator
// ---------------------------------------------------------------------------

// Options controls translation behavior.
type Options struct {
	// Budget is the per-chunk character budget (0 = DefaultBudget).
	Budget int
	// OnLog emits progress messages.
	OnLog func(format string, args ...any)
	// OnProgress is called after each translated chunk.
	OnProgress func(done, total int)
}

func (o *Options) effectiveBudget() int {
	if o.Budget > 0 {
		return o.Budget
	}
	return DefaultBudget
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

// Translator translates documents chunk by chunk. Each chunk request is
// independent of the previous one; the glossary is the only cross-chunk
// consistency mechanism.
type Translator struct {
	Client   llm.Client
	Bundle   *Bundle
	Model    string
	Glossary map[string]string
	Options  Options
}

// Chunk translates a single chunk.
func (t *Translator) Chunk(ctx context.Context, chunk string) (string, error) {
	user := t.Bundle.Intro + "\n\n" + RenderGlossary(t.Glossary) + chunk

	out, err := t.Client.Complete(ctx, llm.Request{
		Model:       t.Model,
		Temperature: 0,
		System:      t.Bundle.System,
		Assistant:   t.Bundle.Assistant,
		User:        user,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Document translates a whole document. Text within the chunk budget goes
// out as a single request; longer text is split with SplitChunks and
// translated sequentially. Translated chunks are rejoined with a blank
// line, so a chunk boundary always becomes a paragraph break in the
// output even when the source had none at that point — a known
// approximation of the source structure.
func (t *Translator) Document(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	budget := t.Options.effectiveBudget()
	if utf8.RuneCountInString(text) <= budget {
		return t.Chunk(ctx, text)
	}

	chunks := SplitChunks(text, budget)
	t.Options.log("Long text: split into %d chunks.", len(chunks))

	translated := make([]string, 0, len(chunks))
	for i, ch := range chunks {
		t.Options.log("Translating chunk %d/%d...", i+1, len(chunks))
		out, err := t.Chunk(ctx, ch)
		if err != nil {
			return "", fmt.Errorf("translating chunk %d/%d: %w", i+1, len(chunks), err)
		}
		translated = append(translated, out)
		if t.Options.OnProgress != nil {
			t.Options.OnProgress(i+1, len(chunks))
		}
	}

	return strings.Join(translated, "\n\n"), nil
}
