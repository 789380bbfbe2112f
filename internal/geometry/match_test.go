package geometry_test

import (
	"testing"

	"github.com/couchcryptid/flood-risk-engine/internal/domain"
	"github.com/couchcryptid/flood-risk-engine/internal/geometry"
	"github.com/stretchr/testify/assert"
)

func names(features ...string) []domain.PolygonFeature {
	out := make([]domain.PolygonFeature, len(features))
	for i, n := range features {
		out[i] = domain.PolygonFeature{Name: n}
	}
	return out
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		features []domain.PolygonFeature
		want     string
		method   domain.ResolutionMethod
	}{
		{"exact wins over earlier normalized", "Uíge", names("Uige", "Uíge"), "Uíge", domain.MatchExact},
		{"normalized wins over earlier substring", "Kilamba Kiaxi", names("Kilamba", "Kilamba-Kiaxi"), "Kilamba-Kiaxi", domain.MatchNormalized},
		{"query contains feature", "Viana Sede", names("Cacuaco", "Viana"), "Viana", domain.MatchSubstring},
		{"feature contains query", "Quiçama", names("Municipio da Quicama"), "Municipio da Quicama", domain.MatchSubstring},
		{"first substring in order", "Cazenga Norte", names("Cazenga", "Norte"), "Cazenga", domain.MatchSubstring},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, method, ok := geometry.Match(tt.query, tt.features)
			assert.True(t, ok)
			assert.Equal(t, tt.want, f.Name)
			assert.Equal(t, tt.method, method)
		})
	}
}

func TestMatch_NoMatch(t *testing.T) {
	_, _, ok := geometry.Match("Luanda", names("Bengo", "Zaire"))
	assert.False(t, ok)

	_, _, ok = geometry.Match("", names("Bengo"))
	assert.False(t, ok)

	// Empty feature names never match by containment.
	_, _, ok = geometry.Match("Bengo", names(""))
	assert.False(t, ok)
}

func TestWithParent(t *testing.T) {
	features := []domain.PolygonFeature{
		{Name: "A", ParentNames: []string{"Luanda", "Viana"}},
		{Name: "B", ParentNames: []string{"Luanda", "Cazenga"}},
		{Name: "C", ParentNames: []string{"Bengo", "Dande"}},
	}

	got := geometry.WithParent(features, domain.LevelMunicipality, "viana")
	assert.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Name)

	assert.Len(t, geometry.WithParent(features, domain.LevelProvince, "Luanda"), 2)
	assert.Empty(t, geometry.WithParent(features, domain.LevelProvince, "Namibe"))
}

func TestMatchName(t *testing.T) {
	i, method, ok := geometry.MatchName("Cazenga Norte", []string{"Viana", "Cazenga"})
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	assert.Equal(t, domain.MatchSubstring, method)

	_, _, ok = geometry.MatchName("Huambo", []string{"Viana", "Cazenga"})
	assert.False(t, ok)
}
