// Package ocr turns page screenshots into text. Multiple engines can be
// configured; the acquisition strategy runs them in order and concatenates
// whatever each produces, since different engines recover different parts
// of a noisy page.
package ocr

import (
	"context"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pagelens/internal/config"
)

// Engine extracts text from an image file on disk.
type Engine interface {
	ExtractText(ctx context.Context, imagePath string) (string, error)
	Name() string
}

// NewEngines builds the configured engine list, in configuration order.
// Unknown engine names and engines missing credentials are skipped with a
// warning rather than failing startup.
func NewEngines(cfg config.OCRConfig) []Engine {
	var engines []Engine
	for _, name := range cfg.Engines {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "tesseract":
			engines = append(engines, NewTesseract(cfg.TesseractPath))
		case "mistral":
			if cfg.MistralKey == "" {
				zap.L().Warn("ocr: mistral engine configured without api key, skipping")
				continue
			}
			engines = append(engines, NewMistral(cfg.MistralKey, cfg.MistralModel))
		default:
			zap.L().Warn("ocr: unknown engine", zap.String("name", name))
		}
	}
	return engines
}

// Tesseract shells out to the tesseract binary.
type Tesseract struct {
	binPath string
}

// NewTesseract creates a Tesseract engine using the given binary path.
func NewTesseract(binPath string) *Tesseract {
	if binPath == "" {
		binPath = "tesseract"
	}
	return &Tesseract{binPath: binPath}
}

// Name returns the engine identifier.
func (t *Tesseract) Name() string { return "tesseract" }

// ExtractText runs tesseract on the image, writing to stdout.
func (t *Tesseract) ExtractText(ctx context.Context, imagePath string) (string, error) {
	// "stdout" as the output base makes tesseract print text instead of
	// writing a sidecar file. PSM 3 is full automatic page segmentation,
	// the right mode for a whole product page.
	cmd := exec.CommandContext(ctx, t.binPath, imagePath, "stdout", "--psm", "3")
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return "", eris.Errorf("ocr: tesseract failed: %s", strings.TrimSpace(string(ee.Stderr)))
		}
		return "", eris.Wrap(err, "ocr: run tesseract")
	}

	text := strings.TrimSpace(string(out))
	zap.L().Debug("ocr: tesseract extracted",
		zap.String("image", imagePath),
		zap.Int("chars", len(text)),
	)
	return text, nil
}
