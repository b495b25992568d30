// Package hanviet implements a client for the nguyendu.com.free.fr
// Hán-Việt phonetic transliteration web form.
//
// The service accepts a block of Chinese characters in an HTML form and
// renders the Sino-Vietnamese reading inside <div class='div-td-scrolls'>
// blocks. The page layout is not guaranteed; extraction is best-effort
// regex scraping with a plain-body fallback.
package hanviet

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
)

// DefaultURL is the phonetic transliteration endpoint.
const DefaultURL = "http://nguyendu.com.free.fr/hanviet/hv_phienam_dtk.php"

// DefaultWindow is the per-request character cap enforced by the service.
const DefaultWindow = 1000

// DefaultTimeout is the per-request deadline. The service either answers
// quickly or not at all, so a short deadline keeps long documents moving.
const DefaultTimeout = 2 * time.Second

const userAgent = "Mozilla/5.0"

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Options controls lookup behavior.
type Options struct {
	// URL overrides the service endpoint (used by tests).
	URL string
	// Window is the maximum characters per request (0 = DefaultWindow).
	Window int
	// Delay is an optional politeness pause between windowed requests.
	Delay time.Duration
	// Timeout is the per-request deadline (0 = DefaultTimeout).
	Timeout time.Duration
	// KeepLeadingHan disables the heuristic that strips a leading run of
	// Chinese ideographs from cleaned output. The service sometimes echoes
	// the source characters before the reading; stripping them may misfire
	// on legitimate leading content, so it can be turned off.
	KeepLeadingHan bool
	// OnLog emits progress messages.
	OnLog func(format string, args ...any)
	// OnError emits per-segment failure messages.
	OnError func(format string, args ...any)
}

func (o *Options) effectiveURL() string {
	if o.URL != "" {
		return o.URL
	}
	return DefaultURL
}

func (o *Options) effectiveWindow() int {
	if o.Window > 0 {
		return o.Window
	}
	return DefaultWindow
}

func (o *Options) effectiveTimeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return DefaultTimeout
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// Client issues phonetic lookups against the web form.
type Client struct {
	http *resty.Client
	opts Options
}

// New creates a lookup client.
func New(opts Options) *Client {
	httpClient := resty.New().
		SetTimeout(opts.effectiveTimeout()).
		SetHeader("User-Agent", userAgent)

	return &Client{http: httpClient, opts: opts}
}

// call posts one segment of Chinese text to the form and returns the raw
// HTML response body.
func (c *Client) call(ctx context.Context, text string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"choix":     "2", // two-column layout
			"choix_py":  "4", // Hán-Việt reading
			"nbhanchar": fmt.Sprintf("%d", c.opts.effectiveWindow()),
			"text_in":   text,
			"submit":    "Go",
		}).
		Post(c.opts.effectiveURL())
	if err != nil {
		return "", fmt.Errorf("posting to phonetic service: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("phonetic service returned status %d", resp.StatusCode())
	}
	return resp.String(), nil
}

// ---------------------------------------------------------------------------
// HTML extraction
// ---------------------------------------------------------------------------

var (
	reScrollBlocks = regexp.MustCompile(`(?is)<div[^>]+class=['"]div-td-scrolls['"][^>]*>(.*?)</div>`)
	reBody         = regexp.MustCompile(`(?is)<body[^>]*>(.*?)</body>`)
	reScript       = regexp.MustCompile(`(?is)<script.*?</script>`)
	reStyle        = regexp.MustCompile(`(?is)<style.*?</style>`)
	reTag          = regexp.MustCompile(`<[^>]+>`)
	reSpaces       = regexp.MustCompile(`\s+`)
)

// ExtractReading pulls the phonetic reading out of a service response page.
//
// The reading lives in <div class='div-td-scrolls'> blocks as a run of
// <FONT> elements, one per syllable. Entities are decoded, tags stripped
// and whitespace collapsed. When no such block exists (the page layout
// changed, or the service rendered an error page) the whole body minus
// script/style is flattened instead. Never fails on malformed HTML.
func ExtractReading(doc string) string {
	matches := reScrollBlocks.FindAllStringSubmatch(doc, -1)
	if len(matches) > 0 {
		var parts []string
		for _, m := range matches {
			seg := html.UnescapeString(m[1])
			seg = reTag.ReplaceAllString(seg, "")
			seg = strings.TrimSpace(reSpaces.ReplaceAllString(seg, " "))
			if seg != "" {
				parts = append(parts, seg)
			}
		}
		return strings.Join(parts, " ")
	}

	body := doc
	if m := reBody.FindStringSubmatch(doc); m != nil {
		body = m[1]
	}
	body = reScript.ReplaceAllString(body, "")
	body = reStyle.ReplaceAllString(body, "")
	text := reTag.ReplaceAllString(body, "")
	text = reSpaces.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// ---------------------------------------------------------------------------
// Cleaning
// ---------------------------------------------------------------------------

var (
	reDupOpen    = regexp.MustCompile(`【\s*【`)
	reDupClose   = regexp.MustCompile(`】\s*】`)
	reLeadingHan = regexp.MustCompile(`^[\x{4E00}-\x{9FFF}]+\s+`)
)

// CleanReading normalizes extracted phonetic text into a single line:
// line breaks become spaces, whitespace runs collapse, doubled 【 / 】
// glyphs merge, and (unless keepLeadingHan) a leading run of ideographs
// followed by whitespace is dropped — the service occasionally echoes the
// source characters in front of the reading (仁 nhân..., 九 cửu...).
func CleanReading(s string, keepLeadingHan bool) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))

	s = reDupOpen.ReplaceAllString(s, "【")
	s = reDupClose.ReplaceAllString(s, "】")

	if !keepLeadingHan {
		s = reLeadingHan.ReplaceAllString(s, "")
	}

	return strings.TrimSpace(s)
}

// ---------------------------------------------------------------------------
// Chunked lookup
// ---------------------------------------------------------------------------

// splitWindows cuts text into segments of at most window characters.
// Plain fixed-size slicing; this operates on one logical line, so no
// word-boundary awareness is needed.
func splitWindows(text string, window int) []string {
	runes := []rune(text)
	var out []string
	for i := 0; i < len(runes); i += window {
		end := i + window
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}

// lookupSegment performs one remote call and cleans the result.
func (c *Client) lookupSegment(ctx context.Context, seg string) (string, error) {
	doc, err := c.call(ctx, seg)
	if err != nil {
		return "", err
	}
	return CleanReading(ExtractReading(doc), c.opts.KeepLeadingHan), nil
}

// LookupLine transliterates a single logical line of arbitrary length.
//
// Lines within the service cap go out as one request; longer lines are cut
// into fixed-size windows issued sequentially, with an optional delay
// between requests. A failed request is logged and the original segment
// text is substituted, so the call always produces output.
func (c *Client) LookupLine(ctx context.Context, line string) string {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return ""
	}

	window := c.opts.effectiveWindow()

	if utf8.RuneCountInString(line) <= window {
		out, err := c.lookupSegment(ctx, line)
		if err != nil {
			c.opts.logError("phonetic lookup failed, keeping original line: %v", err)
			return line
		}
		return out
	}

	segments := splitWindows(line, window)
	var parts []string
	for i, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			continue
		}
		out, err := c.lookupSegment(ctx, seg)
		if err != nil {
			c.opts.logError("phonetic lookup failed for segment %d/%d, keeping original: %v", i+1, len(segments), err)
			parts = append(parts, seg)
		} else {
			parts = append(parts, out)
			c.opts.log("  segment %d/%d done (%d chars)", i+1, len(segments), utf8.RuneCountInString(seg))
		}

		if c.opts.Delay > 0 {
			time.Sleep(c.opts.Delay)
		}
	}

	return strings.TrimSpace(strings.Join(parts, " "))
}

// LookupText transliterates a whole document line by line.
//
// Line structure is preserved exactly: every input line maps to one output
// line, and blank lines pass through without a remote call.
func (c *Client) LookupText(ctx context.Context, text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimRight(text, " \t\n")
	if text == "" {
		return ""
	}

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			out = append(out, "")
			continue
		}
		out = append(out, c.LookupLine(ctx, line))
	}

	return strings.Join(out, "\n")
}
