package facet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catalog-sync/internal/model"
)

func TestExtract_Handgun(t *testing.T) {
	e := NewExtractor()
	got := e.Extract("Glock 19 Gen5 9mm 15rd", Context{Department: "01"})

	assert.Equal(t, "9mm", got[model.FacetCaliber])
	assert.Equal(t, "Compact", got[model.FacetFrameSize])
	assert.Equal(t, "Striker Fired", got[model.FacetActionType])
	assert.Equal(t, "15 Round", got[model.FacetCapacity])
	assert.NotContains(t, got, model.FacetBarrelLength)
}

func TestExtract_Shotgun(t *testing.T) {
	e := NewExtractor()
	got := e.Extract(`Mossberg 500 12GA 28" Pump`, Context{Category: model.CategoryShotguns})

	assert.Equal(t, "12 Gauge", got[model.FacetCaliber])
	assert.Equal(t, `28"`, got[model.FacetBarrelLength])
	assert.Equal(t, "Pump Action", got[model.FacetActionType])
}

func TestExtract_OpticZoomPrecedence(t *testing.T) {
	e := NewExtractor()
	got := e.Extract("Vortex Viper 4-16x44", Context{Department: "08"})
	assert.Equal(t, "4-16X", got[model.FacetFrameSize])
	assert.Equal(t, "Scope", got[model.FacetSightType])
}

func TestExtract_RedDotIsNotAFinish(t *testing.T) {
	e := NewExtractor()
	got := e.Extract("Holosun HS507C Red Dot", Context{Category: model.CategoryOptics})

	assert.NotContains(t, got, model.FacetFinish)
	assert.Equal(t, "Red Dot", got[model.FacetSightType])
	assert.Equal(t, "No Magnification", got[model.FacetFrameSize])
}

func TestExtract_ContextGating(t *testing.T) {
	e := NewExtractor()
	text := "Ruger PC Carbine 9mm"

	rifle := e.Extract(text, Context{Category: model.CategoryRifles})
	assert.Equal(t, "Carbine", rifle[model.FacetFrameSize])

	handgun := e.Extract(text, Context{Category: model.CategoryHandguns})
	assert.NotContains(t, handgun, model.FacetFrameSize)

	mag := e.Extract("Magpul PMAG 30rd AR-15 Magazine", Context{Category: model.CategoryMagazines})
	assert.Equal(t, "AR-15", mag[model.FacetCompatibility])
	assert.Equal(t, "30 Round", mag[model.FacetCapacity])
	assert.NotContains(t, mag, model.FacetFrameSize)
}

func TestExtract_EmptyText(t *testing.T) {
	assert.Empty(t, NewExtractor().Extract("", Context{}))
}

func TestExtract_Deterministic(t *testing.T) {
	e := NewExtractor()
	ctx := Context{Department: "05"}
	first := e.Extract("Ruger American Rifle 308 Win 22\" Bolt Action Black", ctx)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, e.Extract("Ruger American Rifle 308 Win 22\" Bolt Action Black", ctx))
	}
}

func TestTables_NotApplicable(t *testing.T) {
	e := NewExtractor()
	assert.Nil(t, e.Tables(model.FacetFinish, Context{Department: "18"}))
	assert.NotNil(t, e.Tables(model.FacetFinish, Context{Department: "01"}))
}

func TestExtract_AmmunitionCaliberOnly(t *testing.T) {
	e := NewExtractor()
	tests := []struct {
		text string
		want string
	}{
		{"FED AMERICAN EAGLE 9MM 115GR FMJ 50RD", "9mm"},
		{"HORNADY 223 REM 55GR V-MAX 20RD", "223 Remington"},
		{`WIN SUPER-X 12GA 2-3/4" 00 BUCK 5RD`, "12 Gauge"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := e.Extract(tt.text, Context{Department: "18"})
			assert.Equal(t, tt.want, got[model.FacetCaliber])
			assert.NotContains(t, got, model.FacetCapacity)
			assert.NotContains(t, got, model.FacetFinish)
		})
	}
}

func TestNames_MatchesModel(t *testing.T) {
	names := Names()
	assert.Equal(t, model.FacetNames, names)

	names[0] = "mutated"
	assert.Equal(t, model.FacetCaliber, model.FacetNames[0])
}

func TestApplyUnset(t *testing.T) {
	dst := model.Facets{model.FacetCaliber: "9mm"}
	r := Result{model.FacetCaliber: "380 ACP", model.FacetFinish: "Black"}

	set := ApplyUnset(&dst, r)
	assert.Equal(t, []model.FacetName{model.FacetFinish}, set)
	assert.Equal(t, "9mm", dst[model.FacetCaliber])
	assert.Equal(t, "Black", dst[model.FacetFinish])

	// Second pass is a no-op.
	assert.Empty(t, ApplyUnset(&dst, r))
}

func TestApplyUnset_NilDestination(t *testing.T) {
	var dst model.Facets
	set := ApplyUnset(&dst, Result{model.FacetMaterial: "Polymer"})
	require.NotNil(t, dst)
	assert.Equal(t, []model.FacetName{model.FacetMaterial}, set)
}

func TestLoadOverrides(t *testing.T) {
	rules := `
caliber:
  prepend:
    - pattern: '\b8\.6\s*(?:BLK|BLACKOUT)\b'
      label: 8.6 BLK
finish:
  append:
    - pattern: '\bPURPLE\b'
      label: Purple
`
	o, err := LoadOverrides(strings.NewReader(rules))
	require.NoError(t, err)
	assert.False(t, o.Empty())

	e := NewExtractor(WithOverrides(o))
	got := e.Extract("Q Fix 8.6 Blackout Purple", Context{Category: model.CategoryRifles})
	assert.Equal(t, "8.6 BLK", got[model.FacetCaliber])
	assert.Equal(t, "Purple", got[model.FacetFinish])

	// Built-in tables are not affected.
	plain := NewExtractor().Extract("Q Fix 8.6 Blackout Purple", Context{Category: model.CategoryRifles})
	assert.NotContains(t, plain, model.FacetFinish)
}

func TestLoadOverrides_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown facet", "color:\n  prepend:\n    - pattern: x\n      label: y\n", "unknown facet"},
		{"bad regex", "caliber:\n  prepend:\n    - pattern: '('\n      label: y\n", "caliber rule 0"},
		{"missing label", "caliber:\n  append:\n    - pattern: x\n", "needs pattern and label"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadOverrides(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadOverrides_Empty(t *testing.T) {
	o, err := LoadOverrides(strings.NewReader(""))
	require.NoError(t, err)
	assert.True(t, o.Empty())
}
