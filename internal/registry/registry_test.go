package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pagelens/internal/model"
)

func TestResolve_Predefined(t *testing.T) {
	reg := New()

	spec := reg.Resolve("rating")
	assert.Equal(t, "rating", spec.Name)
	assert.Equal(t, model.KindPredefined, spec.Kind)
	assert.Equal(t, model.TypeDecimal, spec.Type)
	assert.Equal(t, 0.0, spec.Min)
	assert.Equal(t, 5.0, spec.Max)
	assert.True(t, spec.Bounded())
	assert.NotEmpty(t, spec.Rules)
}

func TestResolve_CaseInsensitive(t *testing.T) {
	reg := New()

	spec := reg.Resolve("  Price ")
	assert.Equal(t, "price", spec.Name)
	assert.Equal(t, model.KindPredefined, spec.Kind)
}

func TestResolve_Aliases(t *testing.T) {
	reg := New()

	for _, alias := range []string{"M.R.P.", "Maximum Retail Price", "list price", "Original Price"} {
		spec := reg.Resolve(alias)
		assert.Equal(t, "mrp", spec.Name, "alias %q", alias)
		assert.Equal(t, model.KindPredefined, spec.Kind)
	}
}

func TestResolve_CustomField(t *testing.T) {
	reg := New()

	spec := reg.Resolve("Operating System")
	assert.Equal(t, "Operating System", spec.Name)
	assert.Equal(t, model.KindCustom, spec.Kind)
	assert.Equal(t, model.TypeString, spec.Type)
	assert.NotEmpty(t, spec.Rules)

	// The synthesized rules must mention the label so inference can
	// locate it, including the OCR-joined variant.
	joined := false
	for _, r := range spec.Rules {
		if strings.Contains(r, "OperatingSystem") {
			joined = true
		}
	}
	assert.True(t, joined, "rules should include the joined-word variant")
}

func TestResolveAll_OrderAndDedup(t *testing.T) {
	reg := New()

	specs := reg.ResolveAll([]string{"price", "rating", "PRICE", "m.r.p.", "mrp", "Warranty"})

	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"price", "rating", "mrp", "Warranty"}, names)
}

func TestPredefined_Complete(t *testing.T) {
	reg := New()

	names := map[string]bool{}
	for _, spec := range reg.Predefined() {
		names[spec.Name] = true
	}
	for _, want := range []string{
		"rating", "ratings_count", "reviews_count", "review",
		"price", "mrp", "product_name", "discount", "availability",
	} {
		assert.True(t, names[want], "missing predefined field %s", want)
	}
}

func TestLoadExtensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fields.yaml")
	content := `
- name: brand
  type: string
  description: Manufacturer brand
  rules:
    - Look near the product title.
  example: Samsung
- name: rating
  type: decimal
  description: Overridden rating
  min: 0
  max: 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	reg := New()
	require.NoError(t, reg.LoadExtensions(path))

	brand := reg.Resolve("brand")
	assert.Equal(t, model.KindPredefined, brand.Kind)
	assert.Equal(t, "Samsung", brand.Example)

	// Extensions override built-ins with the same name.
	rating := reg.Resolve("rating")
	assert.Equal(t, 10.0, rating.Max)
}

func TestLoadExtensions_MissingFile(t *testing.T) {
	reg := New()
	assert.Error(t, reg.LoadExtensions("/nonexistent/fields.yaml"))
}
