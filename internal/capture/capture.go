// Package capture is the thin adapter over the browser-automation
// service that renders a product page and returns a full-page screenshot
// plus, when available, the rendered markup.
package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Page is the result of rendering one URL. ImagePath points at a
// transient raster image on disk, a hand-off to the OCR engines; HTML,
// when the service returns it, carries the rendered markup so the
// acquisition strategy can recover DOM text the direct fetch could not.
type Page struct {
	ImagePath string
	HTML      string
}

// Capturer renders a URL. Any failure means "screenshot unavailable" and
// the acquisition strategy proceeds without it.
type Capturer interface {
	Capture(ctx context.Context, pageURL string) (*Page, error)
}

// ServiceCapturer calls a remote rendering service over HTTP. The
// service drives a real headless browser; this adapter only moves bytes.
type ServiceCapturer struct {
	endpoint string
	tempDir  string
	client   *http.Client
}

// NewServiceCapturer creates a capturer against the given service URL.
func NewServiceCapturer(endpoint, tempDir string, timeout time.Duration) *ServiceCapturer {
	return &ServiceCapturer{
		endpoint: endpoint,
		tempDir:  tempDir,
		client:   &http.Client{Timeout: timeout},
	}
}

type captureRequest struct {
	URL      string `json:"url"`
	FullPage bool   `json:"full_page"`
}

type captureResponse struct {
	Screenshot string `json:"screenshot"` // base64 PNG
	HTML       string `json:"html,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Capture renders the URL and writes the screenshot to a temp file.
func (c *ServiceCapturer) Capture(ctx context.Context, pageURL string) (*Page, error) {
	if c.endpoint == "" {
		return nil, eris.New("capture: no rendering service configured")
	}

	body, err := json.Marshal(captureRequest{URL: pageURL, FullPage: true})
	if err != nil {
		return nil, eris.Wrap(err, "capture: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "capture: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "capture: render call")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "capture: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("capture: service returned %d: %s", resp.StatusCode, string(respBody))
	}

	var cr captureResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return nil, eris.Wrap(err, "capture: unmarshal response")
	}
	if cr.Error != "" {
		return nil, eris.Errorf("capture: service error: %s", cr.Error)
	}

	img, err := base64.StdEncoding.DecodeString(cr.Screenshot)
	if err != nil {
		return nil, eris.Wrap(err, "capture: decode screenshot")
	}

	if err := os.MkdirAll(c.tempDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "capture: create temp dir")
	}
	imgPath := filepath.Join(c.tempDir, uuid.New().String()+".png")
	if err := os.WriteFile(imgPath, img, 0o644); err != nil {
		return nil, eris.Wrap(err, "capture: write screenshot")
	}

	return &Page{ImagePath: imgPath, HTML: cr.HTML}, nil
}
