// Package registry holds the field schema registry: the set of known
// product-attribute definitions plus on-demand synthesis of custom specs
// for arbitrary field names. The registry is populated at startup and
// read-only thereafter.
package registry

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/pagelens/internal/model"
)

// aliases maps common variations of field names to their canonical key.
var aliases = map[string]string{
	"m.r.p.":               "mrp",
	"maximum retail price": "mrp",
	"list price":           "mrp",
	"original price":       "mrp",
}

// Registry resolves field names to FieldSpecs. Safe for concurrent use:
// the maps are never mutated after New returns.
type Registry struct {
	predefined map[string]model.FieldSpec // canonical name → spec
	lowerIndex map[string]string          // lowercased name → canonical name
}

// New builds a registry from the built-in definitions.
func New() *Registry {
	r := &Registry{
		predefined: make(map[string]model.FieldSpec, len(builtinSpecs)),
		lowerIndex: make(map[string]string, len(builtinSpecs)),
	}
	for _, spec := range builtinSpecs {
		r.add(spec)
	}
	return r
}

func (r *Registry) add(spec model.FieldSpec) {
	spec.Kind = model.KindPredefined
	r.predefined[spec.Name] = spec
	r.lowerIndex[strings.ToLower(spec.Name)] = spec.Name
}

// fileSpec is the YAML shape for extension field definitions.
type fileSpec struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`
	Description string   `yaml:"description"`
	Rules       []string `yaml:"rules"`
	Example     string   `yaml:"example"`
	Min         float64  `yaml:"min"`
	Max         float64  `yaml:"max"`
}

// LoadExtensions merges additional predefined specs from a YAML file.
// Extension specs override built-ins with the same name.
func (r *Registry) LoadExtensions(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "registry: read fields file %s", path)
	}

	var specs []fileSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return eris.Wrap(err, "registry: parse fields file")
	}

	for _, fs := range specs {
		if fs.Name == "" {
			zap.L().Warn("registry: skipping extension spec with empty name")
			continue
		}
		vt := model.ValueType(fs.Type)
		switch vt {
		case model.TypeDecimal, model.TypeInteger, model.TypeString:
		default:
			vt = model.TypeString
		}
		r.add(model.FieldSpec{
			Name:        fs.Name,
			Type:        vt,
			Description: fs.Description,
			Rules:       fs.Rules,
			Example:     fs.Example,
			Min:         fs.Min,
			Max:         fs.Max,
		})
	}

	zap.L().Info("registry: loaded extension fields",
		zap.String("path", path),
		zap.Int("count", len(specs)),
	)
	return nil
}

// Resolve returns the spec for a field name. Predefined names (matched
// case-insensitively, after alias normalization) return the canonical
// spec; any other name synthesizes a custom spec with a generic rule set.
// Resolve never fails: arbitrary attribute labels like "SELECT SIZE" must
// work without code changes.
func (r *Registry) Resolve(name string) model.FieldSpec {
	trimmed := strings.TrimSpace(name)
	lower := strings.ToLower(trimmed)

	if canonical, ok := aliases[lower]; ok {
		lower = canonical
	}
	if canonical, ok := r.lowerIndex[lower]; ok {
		return r.predefined[canonical]
	}

	return synthesize(trimmed)
}

// ResolveAll resolves a list of names, preserving request order and
// dropping duplicates after normalization.
func (r *Registry) ResolveAll(names []string) []model.FieldSpec {
	seen := make(map[string]bool, len(names))
	specs := make([]model.FieldSpec, 0, len(names))
	for _, n := range names {
		spec := r.Resolve(n)
		if seen[spec.Name] {
			continue
		}
		seen[spec.Name] = true
		specs = append(specs, spec)
	}
	return specs
}

// Predefined returns all predefined specs for the fields listing surface.
func (r *Registry) Predefined() []model.FieldSpec {
	specs := make([]model.FieldSpec, 0, len(builtinSpecs))
	for _, b := range builtinSpecs {
		specs = append(specs, r.predefined[b.Name])
	}
	return specs
}

// synthesize builds a custom spec for an unregistered field name. The
// rules tell the inference step to locate the field's label (tolerating
// OCR-joined words) and capture everything until the next section header.
func synthesize(name string) model.FieldSpec {
	display := strings.TrimSpace(strings.NewReplacer("_", " ", ".", " ").Replace(name))
	joined := strings.ReplaceAll(display, " ", "")

	rules := []string{
		fmt.Sprintf("Search the entire text for %q or %q (OCR may join words: also try %q).", display, name, joined),
		"When the label is found on a line, capture content from that line and the following lines.",
		"Keep capturing until a different field, title, or section header appears (e.g. 'Delivery Option', 'Brand', 'Price', 'ADD TO BAG').",
		fmt.Sprintf("Accept patterns: %q, %q, or the label alone followed by value lines.", display+": VALUE", display+" VALUE"),
		"Capture the complete value, however long; never stop mid-list or mid-sentence.",
		"If the label is found but the next line immediately starts another section, the value is null.",
	}

	return model.FieldSpec{
		Name:        name,
		Kind:        model.KindCustom,
		Type:        model.TypeString,
		Description: "Custom attribute: " + display,
		Rules:       rules,
	}
}
