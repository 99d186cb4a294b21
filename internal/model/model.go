// Package model holds the shared domain types: field schemas, extraction
// requests, acquired text, inference attempt records, and results.
package model

import (
	"strings"
	"time"
)

// FieldKind distinguishes registry-defined fields from synthesized ones.
type FieldKind string

const (
	KindPredefined FieldKind = "predefined"
	KindCustom     FieldKind = "custom"
)

// ValueType is the coercion target for an extracted value.
type ValueType string

const (
	TypeDecimal ValueType = "decimal"
	TypeInteger ValueType = "integer"
	TypeString  ValueType = "string"
)

// FieldSpec describes one extractable product attribute: its value type,
// the extraction rules fed to inference, and an optional valid range.
type FieldSpec struct {
	Name        string    `json:"name"`
	Kind        FieldKind `json:"kind"`
	Type        ValueType `json:"type"`
	Description string    `json:"description,omitempty"`
	Rules       []string  `json:"rules,omitempty"`
	Example     string    `json:"example,omitempty"`
	Min         float64   `json:"min,omitempty"`
	Max         float64   `json:"max,omitempty"`
}

// Bounded reports whether the spec carries a meaningful numeric range.
func (s FieldSpec) Bounded() bool {
	return s.Min != 0 || s.Max != 0
}

// ExtractionRequest is one unit of work: a page URL and the fields to
// pull from it.
type ExtractionRequest struct {
	URL              string   `json:"url"`
	Fields           []string `json:"fields"`
	PreferDOMText    bool     `json:"prefer_dom_text"`
	AllowOCRFallback bool     `json:"allow_ocr_fallback"`
}

// FieldNames returns the requested names, trimmed, preserving order.
func (r ExtractionRequest) FieldNames() []string {
	names := make([]string, 0, len(r.Fields))
	for _, f := range r.Fields {
		f = strings.TrimSpace(f)
		if f != "" {
			names = append(names, f)
		}
	}
	return names
}

// TextOrigin records which acquisition path produced the page text.
type TextOrigin string

const (
	OriginDOM   TextOrigin = "dom"
	OriginOCR   TextOrigin = "ocr"
	OriginMixed TextOrigin = "mixed"
)

// AcquiredText is the page text handed to the instruction builder, with
// its provenance and a coarse quality signal.
type AcquiredText struct {
	Content       string     `json:"content"`
	Origin        TextOrigin `json:"origin"`
	QualitySignal int        `json:"quality_signal"`
}

// NewAcquiredText builds an AcquiredText, deriving the quality signal
// from the number of non-empty lines.
func NewAcquiredText(content string, origin TextOrigin) AcquiredText {
	quality := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			quality++
		}
	}
	return AcquiredText{Content: content, Origin: origin, QualitySignal: quality}
}

// BackendTier orders inference backends by escalation priority.
type BackendTier string

const (
	TierLocal           BackendTier = "local"
	TierHostedPrimary   BackendTier = "hosted_primary"
	TierHostedSecondary BackendTier = "hosted_secondary"
)

// InferenceAttempt is the audit record for one backend invocation,
// covering all of its internal retries.
type InferenceAttempt struct {
	Backend     string      `json:"backend"`
	Tier        BackendTier `json:"tier"`
	Prompt      string      `json:"-"`
	RawResponse string      `json:"raw_response,omitempty"`
	Succeeded   bool        `json:"succeeded"`
	RetryCount  int         `json:"retry_count"`
	ElapsedMs   int64       `json:"elapsed_ms"`
}

// ExtractionResult is the reconciled output for one URL. Values holds
// exactly the requested field names, each mapped to a typed value or nil.
type ExtractionResult struct {
	URL      string             `json:"url"`
	Values   map[string]any     `json:"values"`
	Source   TextOrigin         `json:"source"`
	Warnings []string           `json:"warnings,omitempty"`
	Error    string             `json:"error,omitempty"`
	Attempts []InferenceAttempt `json:"attempts,omitempty"`
}

// RunStatus tracks a persisted extraction run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is a persisted extraction: the request, its status, and the result
// once available.
type Run struct {
	ID        string            `json:"id"`
	URL       string            `json:"url"`
	Fields    []string          `json:"fields"`
	Status    RunStatus         `json:"status"`
	Result    *ExtractionResult `json:"result,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
