// Package acquire implements the text acquisition strategy: DOM text
// first, OCR as the fallback, with a content quality gate between them.
// The strategy produces a single AcquiredText that downstream stages
// treat as the ground truth for the page.
package acquire

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/pagelens/internal/capture"
	"github.com/sells-group/pagelens/internal/dom"
	"github.com/sells-group/pagelens/internal/model"
	"github.com/sells-group/pagelens/internal/ocr"
)

// Error reports that every enabled acquisition path failed or was
// disabled. It carries the per-path causes for diagnostics.
type Error struct {
	URL     string
	DOMErr  error
	OCRErr  error
	Message string
}

func (e *Error) Error() string {
	parts := []string{fmt.Sprintf("acquire: no text acquired for %s", e.URL)}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.DOMErr != nil {
		parts = append(parts, "dom: "+e.DOMErr.Error())
	}
	if e.OCRErr != nil {
		parts = append(parts, "ocr: "+e.OCRErr.Error())
	}
	return strings.Join(parts, "; ")
}

// Strategy runs the DOM-first, OCR-fallback acquisition flow.
type Strategy struct {
	dom      dom.TextExtractor
	capturer capture.Capturer
	engines  []ocr.Engine
	minChars int
}

// NewStrategy creates a Strategy. capturer may be nil when no rendering
// service is configured; the OCR path is then unavailable.
func NewStrategy(d dom.TextExtractor, c capture.Capturer, engines []ocr.Engine, minChars int) *Strategy {
	return &Strategy{dom: d, capturer: c, engines: engines, minChars: minChars}
}

// Acquire runs the strategy for one request. The returned text has
// passed the quality gate; if no path produces usable text an *Error is
// returned and the caller must not invoke inference.
func (s *Strategy) Acquire(ctx context.Context, req model.ExtractionRequest) (*model.AcquiredText, error) {
	var domErr, ocrErr error

	if req.PreferDOMText {
		text, err := s.tryDOM(ctx, req.URL)
		if err == nil {
			return text, nil
		}
		domErr = err
	}

	if req.AllowOCRFallback {
		text, err := s.tryOCR(ctx, req.URL, req.PreferDOMText)
		if err == nil {
			return text, nil
		}
		ocrErr = err
	}

	aerr := &Error{URL: req.URL, DOMErr: domErr, OCRErr: ocrErr}
	if !req.PreferDOMText && !req.AllowOCRFallback {
		aerr.Message = "both acquisition paths disabled"
	}
	return nil, aerr
}

// tryDOM fetches and strips page markup, then applies the quality gate.
func (s *Strategy) tryDOM(ctx context.Context, pageURL string) (*model.AcquiredText, error) {
	raw, err := s.dom.ExtractText(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	text := Normalize(raw)
	if len(text) < s.minChars {
		zap.L().Debug("acquire: dom text below quality gate",
			zap.String("url", pageURL),
			zap.Int("chars", len(text)),
			zap.Int("min", s.minChars),
		)
		return nil, eris.Errorf("acquire: dom text too short (%d chars, need %d)", len(text), s.minChars)
	}

	at := model.NewAcquiredText(text, model.OriginDOM)
	zap.L().Info("acquire: dom text accepted",
		zap.String("url", pageURL),
		zap.Int("chars", len(text)),
		zap.Int("quality", at.QualitySignal),
	)
	return &at, nil
}

// tryOCR captures a screenshot and runs every configured engine,
// concatenating their outputs in order. Engines see different parts of a
// noisy page, so outputs are never deduplicated or truncated. When the
// render service also returns the page's markup and DOM text was wanted,
// stripping that markup is tried before any OCR: it is the same DOM text
// the direct fetch could not reach.
func (s *Strategy) tryOCR(ctx context.Context, pageURL string, domWanted bool) (*model.AcquiredText, error) {
	if s.capturer == nil {
		return nil, eris.New("acquire: no capture service configured")
	}
	if len(s.engines) == 0 {
		return nil, eris.New("acquire: no ocr engines configured")
	}

	page, err := s.capturer.Capture(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	if domWanted && page.HTML != "" {
		text := Normalize(dom.StripHTML(page.HTML))
		if len(text) >= s.minChars {
			at := model.NewAcquiredText(text, model.OriginDOM)
			zap.L().Info("acquire: rendered markup accepted",
				zap.String("url", pageURL),
				zap.Int("chars", len(text)),
				zap.Int("quality", at.QualitySignal),
			)
			return &at, nil
		}
		zap.L().Debug("acquire: rendered markup below quality gate",
			zap.String("url", pageURL),
			zap.Int("chars", len(text)),
		)
	}

	var parts []string
	for _, eng := range s.engines {
		out, err := eng.ExtractText(ctx, page.ImagePath)
		if err != nil {
			zap.L().Warn("acquire: ocr engine failed",
				zap.String("engine", eng.Name()),
				zap.String("url", pageURL),
				zap.Error(err),
			)
			continue
		}
		out = strings.TrimSpace(out)
		if out != "" {
			parts = append(parts, out)
		}
	}

	text := Normalize(strings.Join(parts, "\n\n"))
	if len(text) < s.minChars {
		return nil, eris.Errorf("acquire: ocr text too short (%d chars, need %d)", len(text), s.minChars)
	}

	at := model.NewAcquiredText(text, model.OriginOCR)
	zap.L().Info("acquire: ocr text accepted",
		zap.String("url", pageURL),
		zap.Int("engines", len(parts)),
		zap.Int("chars", len(text)),
		zap.Int("quality", at.QualitySignal),
	)
	return &at, nil
}

// Normalize applies NFKC normalization so fullwidth digits, compatibility
// currency forms, and OCR ligatures compare equal downstream, then trims
// surrounding whitespace.
func Normalize(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}
