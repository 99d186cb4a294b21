package parse

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/pagelens/internal/model"
)

// Pattern extractors are the deterministic safety net under inference:
// pure regex passes over the acquired page text, applied per field when
// inference returned null or failed entirely.

var (
	// "4.3 out of 5", "4.3/5", "Rating: 4.3"
	ratingOutOfRe = regexp.MustCompile(`(\d(?:\.\d+)?)\s*(?:out of|/)\s*5`)
	ratingStarRe  = regexp.MustCompile(`(\d(?:\.\d+)?)\s*[★⭐]|[★⭐]\s*(\d(?:\.\d+)?)`)
	ratingLabelRe = regexp.MustCompile(`(?i)rating[:\s]+(\d(?:\.\d+)?)`)

	// "7,624 Ratings", "3,34,015 ratings"
	ratingsCountRe = regexp.MustCompile(`(?i)([\d,]+)\s*ratings?\b`)
	reviewsCountRe = regexp.MustCompile(`(?i)([\d,]+)\s*reviews?\b`)

	// Currency amounts: "₹592", "Rs. 1,302", "$49.99"
	currencyRe = regexp.MustCompile(`(?:₹|Rs\.?\s*|\$)\s*([\d,]+(?:\.\d+)?)`)

	// "20% off", "Save 20%"
	discountPctRe = regexp.MustCompile(`(?i)(\d{1,3})\s*%\s*off|save\s+(\d{1,3})\s*%`)
	// "₹100 off", "Rs. 100 off", "$10 off"
	discountAmtRe = regexp.MustCompile(`(?i)((?:₹|Rs\.?\s*|\$)\s*[\d,]+)\s*off\b`)

	availabilityRe = regexp.MustCompile(`(?i)\b(in stock|out of stock|currently unavailable|available|sold out)\b`)
)

// PatternExtract applies the field's deterministic extractor to the
// acquired page text. It returns nil when no pattern matches or the
// field has no extractor; only predefined numeric-adjacent fields have
// one, custom fields rely entirely on inference.
func PatternExtract(spec model.FieldSpec, text string) any {
	switch spec.Name {
	case "rating":
		return extractRating(text)
	case "ratings_count":
		return extractCount(ratingsCountRe, text)
	case "reviews_count":
		return extractCount(reviewsCountRe, text)
	case "price":
		return extractPrice(text, false)
	case "mrp":
		return extractPrice(text, true)
	case "discount":
		return extractDiscount(text)
	case "availability":
		return extractAvailability(text)
	default:
		return nil
	}
}

func extractRating(text string) any {
	for _, re := range []*regexp.Regexp{ratingOutOfRe, ratingStarRe, ratingLabelRe} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		for _, g := range m[1:] {
			if g == "" {
				continue
			}
			if f, ok := ParseDecimal(g); ok && f >= 0 && f <= 5 {
				return f
			}
		}
	}
	return nil
}

func extractCount(re *regexp.Regexp, text string) any {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	if n, ok := ParseInteger(m[1]); ok && n > 0 {
		return n
	}
	return nil
}

// extractPrice returns the first currency amount in the text, or for the
// reference price the second distinct amount, since struck-through prices
// render after the selling price in stripped page text.
func extractPrice(text string, reference bool) any {
	matches := currencyRe.FindAllString(text, 3)
	if len(matches) == 0 {
		return nil
	}
	idx := 0
	if reference {
		// Find the first amount that differs from the selling price.
		first, _ := ParseDecimal(matches[0])
		idx = -1
		for i := 1; i < len(matches); i++ {
			if f, ok := ParseDecimal(matches[i]); ok && f != first {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil
		}
	}
	return strings.Join(strings.Fields(matches[idx]), " ")
}

func extractDiscount(text string) any {
	if m := discountPctRe.FindStringSubmatch(text); m != nil {
		pct := m[1]
		if pct == "" {
			pct = m[2]
		}
		if pct != "" {
			return pct + "% off"
		}
	}
	if m := discountAmtRe.FindStringSubmatch(text); m != nil {
		return strings.Join(strings.Fields(m[1]), " ") + " off"
	}
	return nil
}

func extractAvailability(text string) any {
	m := availabilityRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return cases.Title(language.English).String(strings.ToLower(m[1]))
}
