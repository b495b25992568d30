// hvkit — Hán-Việt toolkit: phonetic transliteration and AI translation
// of Chinese-character documents into Vietnamese.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hanviet-tools/hvkit/config"
	"github.com/hanviet-tools/hvkit/extract"
	"github.com/hanviet-tools/hvkit/glossary"
	"github.com/hanviet-tools/hvkit/hanviet"
	"github.com/hanviet-tools/hvkit/llm"
	"github.com/hanviet-tools/hvkit/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir    string
	apiKeyFlag string
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hvkit",
		Short: "Hán-Việt toolkit: phonetic transliteration and AI translation",
		Long: `hvkit — Hán-Việt toolkit.

Transliterates Chinese-character text into Sino-Vietnamese readings via
the nguyendu.com.free.fr web form, and translates documents into
Vietnamese through an OpenAI-compatible chat API. Proper nouns can be
standardized across the whole document with a glossary auto-built from
the phonetic lookup.

Commands:
  lookup      Transliterate a file into Hán-Việt readings
  glossary    Extract proper nouns and build/refresh the glossary
  translate   Translate a file into Vietnamese (optionally glossary-first)

Source language codes: auto, zh, hv, en, th, lo, fr, other.

Configuration is read from .hvkit.yaml in the project root; the chat API
key comes from --api-key, HVKIT_API_KEY, OPENAI_API_KEY or a .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flags — inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")
	root.PersistentFlags().StringVar(&apiKeyFlag, "api-key", "", "Chat API key (overrides environment)")

	root.AddCommand(
		newLookupCmd(),
		newGlossaryCmd(),
		newTranslateCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hvkit version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// Interactive prompts
// ---------------------------------------------------------------------------

// promptString asks for a value on the terminal, returning def when the
// user just presses Enter. Missing --input/--output flags fall back to
// this, matching the tool's original prompt-driven workflow.
func promptString(r io.Reader, label, def string) string {
	if def != "" {
		fmt.Fprintf(os.Stderr, "%s (default: %s): ", label, def)
	} else {
		fmt.Fprintf(os.Stderr, "%s: ", label)
	}
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		return def
	}
	v := strings.TrimSpace(scanner.Text())
	if v == "" {
		return def
	}
	return v
}

func resolveInOut(input, output string) (string, string) {
	if input == "" {
		input = promptString(os.Stdin, "Enter input file path", "input.txt")
	}
	if output == "" {
		output = promptString(os.Stdin, "Enter output file path", "output.txt")
	}
	return input, output
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// ---------------------------------------------------------------------------
// lookup
// ---------------------------------------------------------------------------

func newLookupCmd() *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Transliterate a file into Hán-Việt readings",
		Long: `Transliterate a Chinese-character text file into Sino-Vietnamese
readings. Line structure is preserved exactly: every input line becomes
one output line and blank lines stay blank. Failed requests keep the
original text for the affected segment, so the output is always complete.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(input, output)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input file (prompted if omitted)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (prompted if omitted)")
	return cmd
}

func newLookupClient(cfg *config.Config) *hanviet.Client {
	return hanviet.New(hanviet.Options{
		URL:            cfg.ServiceURL,
		Window:         cfg.LookupWindow,
		Delay:          cfg.LookupDelay(),
		Timeout:        cfg.Timeout(),
		KeepLeadingHan: cfg.KeepLeadingHan,
		OnLog:          logInfo,
		OnError:        logWarning,
	})
}

func runLookup(input, output string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := config.Load(rootDir)
	if err != nil {
		return err
	}

	input, output = resolveInOut(input, output)

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("reading %s: %w", input, err)
	}

	logInfo("Looking up Hán-Việt readings via %s ...", cfg.ServiceURL)
	result := newLookupClient(cfg).LookupText(ctx, string(data))

	if err := os.WriteFile(output, []byte(result), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}

	logSuccess("Done. Result saved to %s", output)
	return nil
}

// ---------------------------------------------------------------------------
// glossary
// ---------------------------------------------------------------------------

func newGlossaryCmd() *cobra.Command {
	var input, lang string
	var manual bool

	cmd := &cobra.Command{
		Use:   "glossary",
		Short: "Extract proper nouns and build/refresh the glossary",
		Long: `Extract proper nouns and formal titles from a document with the chat
model, resolve each new term through the Hán-Việt phonetic lookup, and
merge the proper-cased results into the persisted glossary file.

Terms already present in the glossary (compared ignoring whitespace) are
never looked up again. With --manual, terms the service could not
resolve can be filled in interactively.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGlossary(input, lang, manual)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input file (prompted if omitted)")
	cmd.Flags().StringVarP(&lang, "lang", "l", "zh", "Source language code")
	cmd.Flags().BoolVar(&manual, "manual", false, "Prompt for unresolved terms")
	return cmd
}

func runGlossary(input, lang string, manual bool) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := config.Load(rootDir)
	if err != nil {
		return err
	}

	if input == "" {
		input = promptString(os.Stdin, "Enter input file path", "input.txt")
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("reading %s: %w", input, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return fmt.Errorf("input file %s is empty", input)
	}

	_, err = buildGlossary(ctx, cfg, text, lang, manual)
	return err
}

// buildGlossary runs the extract → lookup → merge → save pipeline and
// returns the merged glossary.
func buildGlossary(ctx context.Context, cfg *config.Config, text, lang string, manual bool) (map[string]string, error) {
	apiKey, err := config.APIKey(rootDir, apiKeyFlag)
	if err != nil {
		return nil, err
	}
	client, err := llm.NewOpenAI(apiKey)
	if err != nil {
		return nil, err
	}

	gloss, err := glossary.Load(cfg.GlossaryPath)
	if err != nil {
		return nil, err
	}
	if len(gloss) > 0 {
		logInfo("Loaded %d existing glossary entries from %s", len(gloss), cfg.GlossaryPath)
	}

	logInfo("Extracting proper nouns/titles from the text...")
	names, err := extract.Nouns(ctx, client, text, lang, extract.Options{
		Model:       cfg.ExtractModel,
		MaxItems:    cfg.MaxItems,
		SampleLimit: cfg.SampleLimit,
	})
	if err != nil {
		return nil, err
	}

	known := map[string]bool{}
	for k := range gloss {
		known[glossary.NormalizeKey(k)] = true
	}
	var missing []string
	for _, n := range names {
		if nk := glossary.NormalizeKey(n); nk != "" && !known[nk] {
			missing = append(missing, n)
		}
	}
	logInfo("Extracted %d terms, %d missing from the glossary.", len(names), len(missing))

	if len(missing) > 0 {
		lookupClient := newLookupClient(cfg)
		lookup := func(ctx context.Context, term string) (string, error) {
			return lookupClient.LookupText(ctx, term), nil
		}

		built := glossary.Build(ctx, missing, gloss, lookup, glossary.BuildOptions{
			MaxTermLen: cfg.MaxTermLen,
			OnLog:      logInfo,
		})
		for k, v := range built {
			gloss[k] = v
		}

		if manual {
			still := unresolvedTerms(missing, gloss)
			if len(still) > 0 {
				logInfo("%d terms could not be resolved automatically.", len(still))
				for k, v := range promptManualEntries(os.Stdin, still) {
					gloss[k] = v
				}
			}
		}
	}

	if err := glossary.Save(cfg.GlossaryPath, gloss); err != nil {
		return nil, err
	}
	logSuccess("Glossary saved to %s (%d entries)", cfg.GlossaryPath, len(gloss))
	return gloss, nil
}

// unresolvedTerms returns the terms still absent from the glossary,
// compared whitespace-insensitively.
func unresolvedTerms(terms []string, gloss map[string]string) []string {
	known := map[string]bool{}
	for k := range gloss {
		known[glossary.NormalizeKey(k)] = true
	}
	var out []string
	for _, term := range terms {
		if !known[glossary.NormalizeKey(term)] {
			out = append(out, term)
		}
	}
	return out
}

// promptManualEntries asks for a rendering per term; Enter skips. Typed
// values are kept exactly as entered.
func promptManualEntries(r io.Reader, terms []string) map[string]string {
	out := map[string]string{}
	scanner := bufio.NewScanner(r)
	for i, term := range terms {
		fmt.Fprintf(os.Stderr, "[%d/%d] %s => ", i+1, len(terms), term)
		if !scanner.Scan() {
			break
		}
		if v := strings.TrimSpace(scanner.Text()); v != "" {
			out[term] = v
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var input, output, lang, mode string
	var noGlossary, manual bool

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate a file into Vietnamese",
		Long: `Translate a text file into Vietnamese with the chat model. Long
documents are split at paragraph boundaries into budget-bounded chunks,
each translated independently with the configured prompt files and the
glossary injected into every request.

Unless --no-glossary is given, the glossary pipeline runs first: proper
nouns are extracted, new ones resolved via the phonetic lookup, and the
merged glossary is saved and used for the translation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(input, output, lang, mode, !noGlossary, manual)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input file (prompted if omitted)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (prompted if omitted)")
	cmd.Flags().StringVarP(&lang, "lang", "l", "zh", "Source language code")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Translation mode: smooth or literal")
	cmd.Flags().BoolVar(&noGlossary, "no-glossary", false, "Skip glossary building and injection")
	cmd.Flags().BoolVar(&manual, "manual", false, "Prompt for unresolved glossary terms")
	return cmd
}

func runTranslate(input, output, lang, mode string, useGlossary, manual bool) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := config.Load(rootDir)
	if err != nil {
		return err
	}
	if mode == "" {
		mode = cfg.Mode
	}

	input, output = resolveInOut(input, output)

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("reading %s: %w", input, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return fmt.Errorf("input file %s is empty, nothing to translate", input)
	}

	// Fail fast on missing prompt files before any remote call.
	bundle, err := translate.LoadBundle(cfg.PromptDir, lang, mode)
	if err != nil {
		return err
	}

	apiKey, err := config.APIKey(rootDir, apiKeyFlag)
	if err != nil {
		return err
	}
	client, err := llm.NewOpenAI(apiKey)
	if err != nil {
		return err
	}

	if useGlossary {
		if _, err := buildGlossary(ctx, cfg, text, lang, manual); err != nil {
			return err
		}
	}

	// Reload from disk so the translation sees exactly what was persisted.
	gloss, err := glossary.Load(cfg.GlossaryPath)
	if err != nil {
		return err
	}
	if !useGlossary {
		gloss = nil
	}

	tr := &translate.Translator{
		Client:   client,
		Bundle:   bundle,
		Model:    cfg.Model,
		Glossary: gloss,
		Options: translate.Options{
			Budget: cfg.ChunkBudget,
			OnLog:  logInfo,
		},
	}

	logInfo("Translating %s (%s, %s mode)...", input, lang, mode)
	result, err := tr.Document(ctx, text)
	if err != nil {
		return err
	}

	if err := os.WriteFile(output, []byte(result), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}

	logSuccess("Done. Result saved to %s", output)
	return nil
}
