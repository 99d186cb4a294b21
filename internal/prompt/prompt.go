// Package prompt builds the extraction instruction sent to the inference
// backends. Building is deterministic: the same field specs in the same
// order over the same text always produce the same instruction, so runs
// are reproducible and cacheable.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/pagelens/internal/model"
)

// Build assembles the instruction for one extraction: a task statement,
// one rule block per requested field in request order, the acquired page
// text verbatim, and a closing contract that pins the output to a JSON
// object whose keys are exactly the requested field names.
func Build(specs []model.FieldSpec, text model.AcquiredText) string {
	var sb strings.Builder

	sb.WriteString("You are extracting product attributes from the raw text of an e-commerce product page.\n")
	if text.Origin == model.OriginOCR || text.Origin == model.OriginMixed {
		sb.WriteString("The text comes from OCR and may contain split digits, joined words, and misread characters.\n")
	}
	if len(specs) == 0 {
		// Debug path: no fields named, ask for anything recognizable.
		sb.WriteString("\nPAGE TEXT:\n---\n")
		sb.WriteString(text.Content)
		sb.WriteString("\n---\n\n")
		sb.WriteString("Respond with a single JSON object containing every product attribute you can confidently identify, ")
		fmt.Fprintf(&sb, "plus a %q key set to %q.\n", "source", text.Origin)
		return sb.String()
	}

	sb.WriteString("\nExtract the following fields:\n\n")

	for i, spec := range specs {
		fmt.Fprintf(&sb, "%d. %q (%s)", i+1, spec.Name, spec.Type)
		if spec.Description != "" {
			sb.WriteString(": " + spec.Description)
		}
		sb.WriteString("\n")
		for _, rule := range spec.Rules {
			sb.WriteString("   - " + rule + "\n")
		}
		if spec.Example != "" {
			fmt.Fprintf(&sb, "   Example value: %s\n", spec.Example)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("PAGE TEXT:\n---\n")
	sb.WriteString(text.Content)
	sb.WriteString("\n---\n\n")

	names := make([]string, len(specs))
	for i, spec := range specs {
		names[i] = fmt.Sprintf("%q", spec.Name)
	}
	fmt.Fprintf(&sb,
		"Respond with a single JSON object whose keys are exactly: %s.\n",
		strings.Join(names, ", "))
	sb.WriteString("Use null for any field not present in the text. Do not add keys, prose, or explanations.\n")

	return sb.String()
}

// BuildDiagnostic assembles a follow-up instruction used when inference
// returned null for fields a human can see on the page. It narrows the
// task to the missing fields and tags the text with its origin so the
// response can be compared against the acquisition path.
func BuildDiagnostic(specs []model.FieldSpec, text model.AcquiredText, missing []string) string {
	want := make(map[string]bool, len(missing))
	for _, m := range missing {
		want[m] = true
	}

	subset := make([]model.FieldSpec, 0, len(missing))
	for _, spec := range specs {
		if want[spec.Name] {
			subset = append(subset, spec)
		}
	}
	sort.SliceStable(subset, func(i, j int) bool { return subset[i].Name < subset[j].Name })

	var sb strings.Builder
	fmt.Fprintf(&sb, "A previous pass over this page text (source: %s) missed some fields. Look again, carefully.\n\n", text.Origin)
	sb.WriteString(Build(subset, text))
	return sb.String()
}
