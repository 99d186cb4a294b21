package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pagelens/internal/config"
)

func TestNewEngines_Order(t *testing.T) {
	engines := NewEngines(config.OCRConfig{
		Engines:    []string{"tesseract", "mistral"},
		MistralKey: "test-key",
	})

	require.Len(t, engines, 2)
	assert.Equal(t, "tesseract", engines[0].Name())
	assert.Equal(t, "mistral", engines[1].Name())
}

func TestNewEngines_SkipsMistralWithoutKey(t *testing.T) {
	engines := NewEngines(config.OCRConfig{
		Engines: []string{"mistral", "tesseract"},
	})

	require.Len(t, engines, 1)
	assert.Equal(t, "tesseract", engines[0].Name())
}

func TestNewEngines_SkipsUnknown(t *testing.T) {
	engines := NewEngines(config.OCRConfig{
		Engines: []string{"easyocr", " Tesseract "},
	})

	require.Len(t, engines, 1)
	assert.Equal(t, "tesseract", engines[0].Name())
}

func TestNewEngines_Empty(t *testing.T) {
	assert.Empty(t, NewEngines(config.OCRConfig{}))
}
