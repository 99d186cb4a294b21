package acquire

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pagelens/internal/capture"
	"github.com/sells-group/pagelens/internal/model"
	"github.com/sells-group/pagelens/internal/ocr"
)

type mockDOM struct {
	text string
	err  error
}

func (m *mockDOM) ExtractText(_ context.Context, _ string) (string, error) {
	return m.text, m.err
}

type mockCapturer struct {
	page *capture.Page
	err  error
}

func (m *mockCapturer) Capture(_ context.Context, _ string) (*capture.Page, error) {
	return m.page, m.err
}

type mockEngine struct {
	name string
	text string
	err  error
}

func (m *mockEngine) Name() string { return m.name }
func (m *mockEngine) ExtractText(_ context.Context, _ string) (string, error) {
	return m.text, m.err
}

func request(dom, ocr bool) model.ExtractionRequest {
	return model.ExtractionRequest{
		URL:              "https://shop.example/p/1",
		PreferDOMText:    dom,
		AllowOCRFallback: ocr,
	}
}

const longText = "Product Name X\nRating: 4.3 out of 5\nSpecial price ₹592\nM.R.P. ₹1,302\nIn Stock"

func TestAcquire_DOMSuccess(t *testing.T) {
	s := NewStrategy(&mockDOM{text: longText}, nil, nil, 50)

	text, err := s.Acquire(context.Background(), request(true, true))

	require.NoError(t, err)
	assert.Equal(t, model.OriginDOM, text.Origin)
	assert.Equal(t, longText, text.Content)
	assert.Equal(t, 5, text.QualitySignal)
}

func TestAcquire_DOMBelowGateFallsToOCR(t *testing.T) {
	s := NewStrategy(
		&mockDOM{text: "tiny"},
		&mockCapturer{page: &capture.Page{ImagePath: "/tmp/x.png"}},
		[]ocr.Engine{&mockEngine{name: "tesseract", text: longText}},
		50,
	)

	text, err := s.Acquire(context.Background(), request(true, true))

	require.NoError(t, err)
	assert.Equal(t, model.OriginOCR, text.Origin)
}

func TestAcquire_DOMErrorFallsToOCR(t *testing.T) {
	s := NewStrategy(
		&mockDOM{err: errors.New("blocked (captcha)")},
		&mockCapturer{page: &capture.Page{ImagePath: "/tmp/x.png"}},
		[]ocr.Engine{&mockEngine{name: "tesseract", text: longText}},
		50,
	)

	text, err := s.Acquire(context.Background(), request(true, true))

	require.NoError(t, err)
	assert.Equal(t, model.OriginOCR, text.Origin)
}

func TestAcquire_RenderedMarkupRecoversDOMText(t *testing.T) {
	html := "<html><body><div>Product Name X</div><div>Rating: 4.3 out of 5</div>" +
		"<div>Special price ₹592</div><div>M.R.P. ₹1,302</div><div>In Stock</div></body></html>"
	engine := &mockEngine{name: "tesseract", text: longText}
	s := NewStrategy(
		&mockDOM{err: errors.New("blocked (captcha)")},
		&mockCapturer{page: &capture.Page{ImagePath: "/tmp/x.png", HTML: html}},
		[]ocr.Engine{engine},
		50,
	)

	text, err := s.Acquire(context.Background(), request(true, true))

	require.NoError(t, err)
	assert.Equal(t, model.OriginDOM, text.Origin)
	assert.Contains(t, text.Content, "Special price ₹592")
}

func TestAcquire_RenderedMarkupIgnoredWhenDOMNotWanted(t *testing.T) {
	html := "<html><body><div>" + longText + "</div></body></html>"
	s := NewStrategy(
		&mockDOM{text: longText},
		&mockCapturer{page: &capture.Page{ImagePath: "/tmp/x.png", HTML: html}},
		[]ocr.Engine{&mockEngine{name: "tesseract", text: longText}},
		50,
	)

	text, err := s.Acquire(context.Background(), request(false, true))

	require.NoError(t, err)
	assert.Equal(t, model.OriginOCR, text.Origin)
}

func TestAcquire_ShortRenderedMarkupFallsToOCR(t *testing.T) {
	s := NewStrategy(
		&mockDOM{err: errors.New("down")},
		&mockCapturer{page: &capture.Page{ImagePath: "/tmp/x.png", HTML: "<html><body>JS shell</body></html>"}},
		[]ocr.Engine{&mockEngine{name: "tesseract", text: longText}},
		50,
	)

	text, err := s.Acquire(context.Background(), request(true, true))

	require.NoError(t, err)
	assert.Equal(t, model.OriginOCR, text.Origin)
	assert.Equal(t, longText, text.Content)
}

func TestAcquire_EnginesConcatenatedInOrder(t *testing.T) {
	s := NewStrategy(
		&mockDOM{err: errors.New("down")},
		&mockCapturer{page: &capture.Page{ImagePath: "/tmp/x.png"}},
		[]ocr.Engine{
			&mockEngine{name: "tesseract", text: strings.Repeat("first engine sees the top\n", 3)},
			&mockEngine{name: "mistral", text: strings.Repeat("second engine sees the bottom\n", 3)},
		},
		50,
	)

	text, err := s.Acquire(context.Background(), request(true, true))

	require.NoError(t, err)
	first := strings.Index(text.Content, "first engine")
	second := strings.Index(text.Content, "second engine")
	assert.Greater(t, second, first)
	// Redundant signal is kept: outputs are never deduplicated.
	assert.Equal(t, 3, strings.Count(text.Content, "first engine sees the top"))
}

func TestAcquire_FailedEngineSkipped(t *testing.T) {
	s := NewStrategy(
		&mockDOM{err: errors.New("down")},
		&mockCapturer{page: &capture.Page{ImagePath: "/tmp/x.png"}},
		[]ocr.Engine{
			&mockEngine{name: "tesseract", err: errors.New("binary not found")},
			&mockEngine{name: "mistral", text: longText},
		},
		50,
	)

	text, err := s.Acquire(context.Background(), request(true, true))

	require.NoError(t, err)
	assert.Equal(t, longText, text.Content)
}

func TestAcquire_BothDisabled(t *testing.T) {
	s := NewStrategy(&mockDOM{text: longText}, nil, nil, 50)

	text, err := s.Acquire(context.Background(), request(false, false))

	assert.Nil(t, text)
	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Contains(t, aerr.Error(), "both acquisition paths disabled")
}

func TestAcquire_AllPathsFail(t *testing.T) {
	s := NewStrategy(
		&mockDOM{err: errors.New("403")},
		&mockCapturer{err: errors.New("render timeout")},
		[]ocr.Engine{&mockEngine{name: "tesseract", text: longText}},
		50,
	)

	text, err := s.Acquire(context.Background(), request(true, true))

	assert.Nil(t, text)
	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Contains(t, aerr.Error(), "403")
	assert.Contains(t, aerr.Error(), "render timeout")
}

func TestNormalize_NFKC(t *testing.T) {
	// Fullwidth digits normalize to ASCII.
	assert.Equal(t, "592", Normalize("５９２"))
	assert.Equal(t, "x", Normalize("  x  "))
}
