package parse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pagelens/internal/model"
)

func successAttempt(raw string) []model.InferenceAttempt {
	return []model.InferenceAttempt{{
		Backend:     "local",
		Tier:        model.TierLocal,
		RawResponse: raw,
		Succeeded:   true,
	}}
}

func specsFor(t *testing.T, fields ...model.FieldSpec) []model.FieldSpec {
	t.Helper()
	return fields
}

var (
	ratingSpec = model.FieldSpec{Name: "rating", Type: model.TypeDecimal, Min: 0, Max: 5}
	priceSpec  = model.FieldSpec{Name: "price", Type: model.TypeString}
	mrpSpec    = model.FieldSpec{Name: "mrp", Type: model.TypeString}
	countSpec  = model.FieldSpec{Name: "ratings_count", Type: model.TypeInteger}
)

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"fenced with tag", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced no tag", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose wrapped", `Here is the result: {"a": {"b": 2}} hope that helps`, `{"a": {"b": 2}}`},
		{"braces in strings", `{"a": "val { with brace"}`, `{"a": "val { with brace"}`},
		{"no object", "no json here", ""},
		{"unterminated", `{"a": 1`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSON(tt.input))
		})
	}
}

func TestCoerce_DecimalCurrency(t *testing.T) {
	spec := model.FieldSpec{Name: "p", Type: model.TypeDecimal}

	val, warns := Coerce("₹1,302", spec)
	require.Empty(t, warns)
	assert.Equal(t, 1302.0, val)
}

func TestParseDecimal_CurrencyMarkers(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"₹1,302", 1302.0},
		// The dot in "Rs." belongs to the marker, not the number.
		{"Rs. 1,302", 1302.0},
		{"Rs 592", 592.0},
		{"$49.99", 49.99},
		{"-5.5", -5.5},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			f, ok := ParseDecimal(tt.input)
			require.True(t, ok)
			assert.Equal(t, tt.want, f)
		})
	}
}

func TestParseInteger_CurrencyMarker(t *testing.T) {
	n, ok := ParseInteger("Rs. 140")
	require.True(t, ok)
	assert.Equal(t, int64(140), n)
}

func TestCoerce_IntegerIndianGrouping(t *testing.T) {
	val, _ := Coerce("3,34,015", countSpec)
	assert.Equal(t, int64(334015), val)

	val, _ = Coerce("7 624", countSpec)
	assert.Equal(t, int64(7624), val)
}

func TestCoerce_OutOfRangeWarnsNotClamps(t *testing.T) {
	val, warns := Coerce("7.8", ratingSpec)

	// The value is kept; clamping would hide a parsing error.
	assert.Equal(t, 7.8, val)
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0], "outside range")
}

func TestCoerce_StringTrimsAndNulls(t *testing.T) {
	val, _ := Coerce("  In Stock  ", priceSpec)
	assert.Equal(t, "In Stock", val)

	val, _ = Coerce("   ", priceSpec)
	assert.Nil(t, val)
}

func TestParse_KeysExactlyRequested(t *testing.T) {
	text := model.NewAcquiredText("Product page", model.OriginDOM)
	specs := specsFor(t, ratingSpec, priceSpec)

	raw := `{"rating": 4.3, "price": "₹592", "unrequested": "x", "another": 1}`
	result := Parse(successAttempt(raw), specs, text)

	assert.Len(t, result.Values, 2)
	assert.Contains(t, result.Values, "rating")
	assert.Contains(t, result.Values, "price")
	assert.NotContains(t, result.Values, "unrequested")
	assert.Equal(t, 4.3, result.Values["rating"])
}

func TestParse_PriceExceedsMRPWarns(t *testing.T) {
	text := model.NewAcquiredText("page", model.OriginDOM)
	specs := specsFor(t, priceSpec, mrpSpec)

	result := Parse(successAttempt(`{"price": "592", "mrp": "300"}`), specs, text)

	// Both raw values survive; only a warning is emitted.
	assert.Equal(t, "592", result.Values["price"])
	assert.Equal(t, "300", result.Values["mrp"])
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "exceeds")
}

func TestParse_RsMarkerDoesNotInvertPriceMRP(t *testing.T) {
	text := model.NewAcquiredText("page", model.OriginDOM)
	specs := specsFor(t, priceSpec, mrpSpec)

	// 592 < 1302: a marker-dot misread as a decimal point would turn the
	// mrp into 0.1302 and trigger a false inversion warning.
	result := Parse(successAttempt(`{"price": "₹592", "mrp": "Rs. 1,302"}`), specs, text)

	assert.Equal(t, "₹592", result.Values["price"])
	assert.Equal(t, "Rs. 1,302", result.Values["mrp"])
	assert.Empty(t, result.Warnings)
}

func TestParse_MRPMatchingCountWarns(t *testing.T) {
	text := model.NewAcquiredText("page", model.OriginDOM)
	specs := specsFor(t, priceSpec, mrpSpec, countSpec)

	result := Parse(successAttempt(`{"price": "₹592", "mrp": "2,82,519", "ratings_count": "2,82,519"}`), specs, text)

	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "wrong section") {
			found = true
		}
	}
	assert.True(t, found, "expected a wrong-section warning, got %v", result.Warnings)
}

func TestParse_PatternFallbackRating(t *testing.T) {
	text := model.NewAcquiredText("Great product\nRating: 4.3 out of 5\nBuy now", model.OriginDOM)
	specs := specsFor(t, ratingSpec)

	// No usable inference response at all.
	attempts := []model.InferenceAttempt{{Backend: "local", Tier: model.TierLocal, Succeeded: false}}
	result := Parse(attempts, specs, text)

	assert.Equal(t, 4.3, result.Values["rating"])
}

func TestParse_InvalidJSONDegradesToPatterns(t *testing.T) {
	text := model.NewAcquiredText("Rating: 4.0 out of 5", model.OriginOCR)
	specs := specsFor(t, ratingSpec)

	result := Parse(successAttempt("I could not produce JSON, sorry"), specs, text)

	assert.Equal(t, 4.0, result.Values["rating"])
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "no JSON object")
}

func TestParse_MixedSource(t *testing.T) {
	text := model.NewAcquiredText("Rating: 4.1 out of 5\n₹592", model.OriginDOM)
	specs := specsFor(t, ratingSpec, priceSpec)

	// Inference finds price but misses rating; the pattern fallback
	// fills rating, so the result mixes stages.
	result := Parse(successAttempt(`{"rating": null, "price": "₹592"}`), specs, text)

	assert.Equal(t, "₹592", result.Values["price"])
	assert.Equal(t, 4.1, result.Values["rating"])
	assert.Equal(t, model.OriginMixed, result.Source)
}

func TestParse_UsesLastSuccessfulAttempt(t *testing.T) {
	text := model.NewAcquiredText("page", model.OriginDOM)
	specs := specsFor(t, priceSpec)

	attempts := []model.InferenceAttempt{
		{Backend: "local", Tier: model.TierLocal, Succeeded: true, RawResponse: `{"price": "old"}`},
		{Backend: "anthropic", Tier: model.TierHostedPrimary, Succeeded: true, RawResponse: `{"price": "₹592"}`},
	}
	result := Parse(attempts, specs, text)

	assert.Equal(t, "₹592", result.Values["price"])
}

func TestPatternExtract_Prices(t *testing.T) {
	text := "Special price\n₹592\nM.R.P.: ₹1,302\n20% off"

	price := PatternExtract(priceSpec, text)
	assert.Equal(t, "₹592", price)

	mrp := PatternExtract(mrpSpec, text)
	assert.Equal(t, "₹1,302", mrp)
}

func TestPatternExtract_Counts(t *testing.T) {
	text := "4.2 out of 5\n3,34,015 Ratings and 17,504 Reviews"

	assert.Equal(t, int64(334015), PatternExtract(countSpec, text))
	assert.Equal(t, int64(17504),
		PatternExtract(model.FieldSpec{Name: "reviews_count", Type: model.TypeInteger}, text))
}

func TestPatternExtract_Discounts(t *testing.T) {
	discountSpec := model.FieldSpec{Name: "discount", Type: model.TypeString}

	tests := []struct {
		name string
		text string
		want any
	}{
		{"percent off", "Great deal 20% off today", "20% off"},
		{"save percent", "Save 35% on this item", "35% off"},
		{"rupee amount", "₹100 off on first order", "₹100 off"},
		{"rs amount", "Rs. 250 off with coupon", "Rs. 250 off"},
		{"no discount", "In Stock, free delivery", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PatternExtract(discountSpec, tt.text))
		})
	}
}

func TestPatternExtract_CustomFieldHasNoPattern(t *testing.T) {
	spec := model.FieldSpec{Name: "Warranty", Kind: model.KindCustom, Type: model.TypeString}
	assert.Nil(t, PatternExtract(spec, "1 year warranty"))
}
