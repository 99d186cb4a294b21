// Package dom acquires page text from rendered markup: a direct HTTP
// fetch with browser-like headers, block detection, and HTML-to-plaintext
// stripping. Product pages that render purely client-side come back as JS
// shells here and are handled by the OCR fallback instead.
package dom

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// TextExtractor fetches a product page and returns its visible text.
type TextExtractor interface {
	ExtractText(ctx context.Context, pageURL string) (string, error)
}

// Extractor implements TextExtractor over net/http. Rendered markup that
// arrives through the capture adapter bypasses the fetch and goes through
// StripHTML directly.
type Extractor struct {
	client    *http.Client
	userAgent string
}

// NewExtractor creates an Extractor with the given timeout and user agent.
func NewExtractor(timeout time.Duration, userAgent string) *Extractor {
	return &Extractor{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		userAgent: userAgent,
	}
}

// ExtractText fetches a URL and strips the response to plaintext.
// Anti-bot challenge pages and JS shells are reported as errors so the
// acquisition strategy can fall back to OCR.
func (e *Extractor) ExtractText(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "dom: create request")
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,hi;q=0.8")
	if ref := refererFor(pageURL); ref != "" {
		req.Header.Set("Referer", ref)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "dom: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", eris.Wrap(err, "dom: read body")
	}

	if blocked, blockType := DetectBlock(resp, body); blocked {
		zap.L().Debug("dom: block detected",
			zap.String("url", pageURL),
			zap.String("type", string(blockType)),
		)
		return "", eris.Errorf("dom: blocked (%s)", blockType)
	}

	if resp.StatusCode >= 400 {
		return "", eris.Errorf("dom: status %d", resp.StatusCode)
	}

	return StripHTML(string(body)), nil
}

// refererFor returns the homepage of the target URL, mimicking a visitor
// arriving from the site's own front page.
func refererFor(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/"
}

// BlockType describes the kind of block detected.
type BlockType string

const (
	BlockNone         BlockType = ""
	BlockAccessDenied BlockType = "access_denied"
	BlockCaptcha      BlockType = "captcha"
	BlockJSShell      BlockType = "js_shell"
)

// DetectBlock checks an HTTP response for signs of anti-bot protection.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	lower := strings.ToLower(string(body))

	if resp.StatusCode == 403 || resp.StatusCode == 503 {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("server") == "cloudflare" {
			return true, BlockAccessDenied
		}
	}

	if strings.Contains(lower, "access denied") ||
		strings.Contains(lower, "you don't have permission") ||
		strings.Contains(lower, "checking your browser") {
		return true, BlockAccessDenied
	}

	if strings.Contains(lower, "captcha") ||
		strings.Contains(lower, "recaptcha") ||
		strings.Contains(lower, "hcaptcha") {
		return true, BlockCaptcha
	}

	// JS-only shell: very small body with noscript or meta refresh.
	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, "meta http-equiv=\"refresh\"") {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}

// StripHTML removes scripts/styles/nav/footer, strips tags, decodes
// entities, and collapses whitespace into line-oriented plaintext.
func StripHTML(html string) string {
	for _, tag := range []string{"script", "style", "nav", "footer"} {
		re := regexp.MustCompile(`(?is)<` + tag + `[^>]*>.*?</` + tag + `>`)
		html = re.ReplaceAllString(html, "")
	}

	// Block-level closers become line breaks so labels and values keep
	// their line structure for the instruction builder.
	blockRe := regexp.MustCompile(`(?i)</(div|p|li|h[1-6]|tr|section|article)>|<br\s*/?>`)
	html = blockRe.ReplaceAllString(html, "\n")

	tagRe := regexp.MustCompile(`<[^>]+>`)
	html = tagRe.ReplaceAllString(html, " ")

	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	html = r.Replace(html)

	spaceRe := regexp.MustCompile(`[ \t]+`)
	html = spaceRe.ReplaceAllString(html, " ")

	var lines []string
	for _, l := range strings.Split(html, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}

	return strings.Join(lines, "\n")
}
