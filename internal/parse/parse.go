// Package parse turns raw inference output into a validated
// ExtractionResult: it locates the JSON payload, coerces values to their
// field types, cross-validates related fields, and fills remaining gaps
// with deterministic pattern extractors over the acquired page text.
package parse

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/pagelens/internal/model"
)

// Parse reconciles the inference attempts against the requested fields.
// It never fails: a missing or unparsable response degrades to pattern
// extraction with a warning, and the result always contains exactly the
// requested field names.
func Parse(attempts []model.InferenceAttempt, specs []model.FieldSpec, text model.AcquiredText) model.ExtractionResult {
	result := model.ExtractionResult{
		Values:   make(map[string]any, len(specs)),
		Source:   text.Origin,
		Attempts: attempts,
	}

	decoded := decodeLastSuccess(attempts, &result)

	inferred := make(map[string]bool, len(specs))
	for _, spec := range specs {
		raw, ok := decoded[spec.Name]
		if !ok || raw == nil {
			result.Values[spec.Name] = nil
			continue
		}
		val, warns := Coerce(raw, spec)
		result.Values[spec.Name] = val
		result.Warnings = append(result.Warnings, warns...)
		if val != nil {
			inferred[spec.Name] = true
		}
	}

	result.Warnings = append(result.Warnings, crossValidate(result.Values)...)

	// Pattern fallback for anything still null.
	patterned := false
	for _, spec := range specs {
		if result.Values[spec.Name] != nil {
			continue
		}
		if val := PatternExtract(spec, text.Content); val != nil {
			result.Values[spec.Name] = val
			patterned = true
			zap.L().Debug("parse: pattern fallback hit", zap.String("field", spec.Name))
		}
	}

	if patterned && len(inferred) > 0 {
		result.Source = model.OriginMixed
	}

	return result
}

// decodeLastSuccess finds the most recent successful attempt and decodes
// the JSON object from its raw response. A decode failure is recorded as
// a warning, not an error.
func decodeLastSuccess(attempts []model.InferenceAttempt, result *model.ExtractionResult) map[string]any {
	var raw string
	for i := len(attempts) - 1; i >= 0; i-- {
		if attempts[i].Succeeded {
			raw = attempts[i].RawResponse
			break
		}
	}
	if raw == "" {
		return nil
	}

	payload := CleanJSON(raw)
	if payload == "" {
		result.Warnings = append(result.Warnings, "parsing: no JSON object found in response")
		return nil
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		result.Warnings = append(result.Warnings, "parsing: invalid JSON in response: "+err.Error())
		return nil
	}
	return decoded
}

// CleanJSON extracts the JSON object from model output. It handles fenced
// code blocks and prose-wrapped objects by matching the outermost brace
// pair, respecting strings and escapes.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)

	// Fenced code block, with or without a language tag.
	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := s[idx+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			first := strings.TrimSpace(rest[:nl])
			if first == "json" || first == "" {
				rest = rest[nl+1:]
			}
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		s = strings.TrimSpace(rest)
	}

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}

// Coerce converts a decoded JSON value to the spec's value type. A value
// that cannot be coerced becomes nil; a numeric value outside the spec's
// documented range is kept but flagged, since clamping would hide a
// parsing error.
func Coerce(raw any, spec model.FieldSpec) (any, []string) {
	switch spec.Type {
	case model.TypeDecimal:
		f, ok := ParseDecimal(raw)
		if !ok {
			return nil, nil
		}
		var warns []string
		if spec.Bounded() && (f < spec.Min || f > spec.Max) {
			warns = append(warns, fmt.Sprintf(
				"validation: %s value %v outside range [%v, %v]", spec.Name, f, spec.Min, spec.Max))
		}
		return f, warns
	case model.TypeInteger:
		n, ok := ParseInteger(raw)
		if !ok {
			return nil, nil
		}
		return n, nil
	default:
		s := strings.TrimSpace(fmt.Sprintf("%v", raw))
		if s == "" || s == "null" || s == "<nil>" {
			return nil, nil
		}
		return s, nil
	}
}

// ParseDecimal parses a locale-flexible numeric value: grouping
// separators (Western "1,302" and Indian "3,34,015"), currency symbols,
// and stray OCR spaces are all tolerated.
func ParseDecimal(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		cleaned := cleanNumeric(v)
		if cleaned == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ParseInteger parses digit groups, stripping separators.
func ParseInteger(raw any) (int64, bool) {
	switch v := raw.(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		cleaned := cleanNumeric(v)
		if cleaned == "" {
			return 0, false
		}
		// Drop a fractional part if the model returned "140.0".
		if dot := strings.IndexByte(cleaned, '.'); dot >= 0 {
			cleaned = cleaned[:dot]
		}
		n, err := strconv.ParseInt(cleaned, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// cleanNumeric strips everything that is not a digit, decimal point, or
// leading sign: currency symbols, grouping commas, OCR spaces. A dot is
// only meaningful after the first digit; the one in "Rs." is part of the
// currency marker, not the number.
func cleanNumeric(s string) string {
	s = strings.TrimSpace(s)
	var sb strings.Builder
	seenDigit := false
	seenDot := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
			sb.WriteRune(r)
		case r == '.' && seenDigit && !seenDot:
			seenDot = true
			sb.WriteRune(r)
		case r == '-' && sb.Len() == 0:
			sb.WriteRune(r)
		}
	}
	if !seenDigit {
		return ""
	}
	return sb.String()
}

// crossValidate checks known related pairs and returns warnings. Values
// are never dropped here; the caller decides what to do with a suspect
// pair.
func crossValidate(values map[string]any) []string {
	var warns []string

	price, pok := numericValue(values["price"])
	mrp, mok := numericValue(values["mrp"])
	if pok && mok {
		if price > mrp {
			warns = append(warns, fmt.Sprintf(
				"validation: price (%v) exceeds mrp (%v)", price, mrp))
		}
		// An mrp matching a ratings/reviews count almost certainly came
		// from the ratings block, not the price block.
		for _, countField := range []string{"ratings_count", "reviews_count"} {
			if count, ok := numericValue(values[countField]); ok && count == mrp && mrp > 0 {
				warns = append(warns, fmt.Sprintf(
					"validation: mrp (%v) matches %s; likely extracted from the wrong section", mrp, countField))
			}
		}
	}

	return warns
}

// numericValue extracts a comparable float from an already-coerced value.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case string:
		return ParseDecimal(n)
	default:
		return 0, false
	}
}
