package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pagelens/internal/model"
)

var (
	ratingSpec = model.FieldSpec{
		Name: "rating", Type: model.TypeDecimal,
		Description: "Product rating",
		Rules:       []string{"Find the number near star symbols."},
		Example:     "4.3",
	}
	priceSpec = model.FieldSpec{
		Name: "price", Type: model.TypeString,
		Description: "Current selling price",
		Rules:       []string{"Ignore struck-through prices."},
		Example:     "₹592",
	}
)

func TestBuild_Deterministic(t *testing.T) {
	text := model.NewAcquiredText("some page text", model.OriginDOM)
	specs := []model.FieldSpec{ratingSpec, priceSpec}

	a := Build(specs, text)
	b := Build(specs, text)
	assert.Equal(t, a, b)
}

func TestBuild_FieldOrderPreserved(t *testing.T) {
	text := model.NewAcquiredText("some page text", model.OriginDOM)

	forward := Build([]model.FieldSpec{ratingSpec, priceSpec}, text)
	reversed := Build([]model.FieldSpec{priceSpec, ratingSpec}, text)

	// Same fields, different order: the instruction differs only in
	// block ordering, and blocks appear in request order.
	assert.NotEqual(t, forward, reversed)
	assert.Less(t, strings.Index(forward, `"rating"`), strings.Index(forward, `"price"`))
	assert.Less(t, strings.Index(reversed, `"price"`), strings.Index(reversed, `"rating"`))
}

func TestBuild_TextVerbatim(t *testing.T) {
	content := "line one\n  noisy OCR  l1ne\n₹592   ₹1,302\n" + strings.Repeat("padding ", 500)
	text := model.NewAcquiredText(content, model.OriginOCR)

	out := Build([]model.FieldSpec{priceSpec}, text)

	// Never truncated, never reformatted.
	assert.Contains(t, out, content)
}

func TestBuild_ClosingContract(t *testing.T) {
	text := model.NewAcquiredText("page", model.OriginDOM)
	out := Build([]model.FieldSpec{ratingSpec, priceSpec}, text)

	assert.Contains(t, out, `keys are exactly: "rating", "price"`)
	assert.Contains(t, out, "Use null")
}

func TestBuild_RulesAndExamplesRendered(t *testing.T) {
	text := model.NewAcquiredText("page", model.OriginDOM)
	out := Build([]model.FieldSpec{ratingSpec}, text)

	assert.Contains(t, out, "Find the number near star symbols.")
	assert.Contains(t, out, "Example value: 4.3")
}

func TestBuild_OCRNoticeOnlyForOCR(t *testing.T) {
	dom := Build([]model.FieldSpec{ratingSpec}, model.NewAcquiredText("page", model.OriginDOM))
	ocr := Build([]model.FieldSpec{ratingSpec}, model.NewAcquiredText("page", model.OriginOCR))

	assert.NotContains(t, dom, "OCR")
	assert.Contains(t, ocr, "OCR")
}

func TestBuild_EmptyFieldsDebugVariant(t *testing.T) {
	text := model.NewAcquiredText("page", model.OriginOCR)
	out := Build(nil, text)

	require.NotEmpty(t, out)
	assert.Contains(t, out, `"source"`)
	assert.Contains(t, out, `"ocr"`)
	assert.Contains(t, out, "page")
}

func TestBuildDiagnostic_NarrowsToMissing(t *testing.T) {
	text := model.NewAcquiredText("page", model.OriginDOM)
	specs := []model.FieldSpec{ratingSpec, priceSpec}

	out := BuildDiagnostic(specs, text, []string{"price"})

	assert.Contains(t, out, `"price"`)
	assert.NotContains(t, out, `1. "rating"`)
	assert.Contains(t, out, "source: dom")
}
