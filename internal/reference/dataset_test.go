package reference_test

import (
	"testing"

	"github.com/couchcryptid/flood-risk-engine/internal/domain"
	"github.com/couchcryptid/flood-risk-engine/internal/reference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDataset(t *testing.T) *reference.Dataset {
	t.Helper()
	d, err := reference.Load()
	require.NoError(t, err)
	return d
}

func TestLoad_EmbeddedDataset(t *testing.T) {
	d := loadDataset(t)

	provinces := d.Provinces()
	require.Len(t, provinces, 18)
	assert.Equal(t, "Bengo", provinces[0].Name)
	assert.Equal(t, "Zaire", provinces[len(provinces)-1].Name)

	for _, p := range provinces {
		assert.Equal(t, domain.LevelProvince, p.Level)
		assert.NotEmpty(t, p.RiskCategory, p.Name)
		assert.Positive(t, p.Population, p.Name)
	}
}

func TestLookup_SpacedRiskCategoryParsed(t *testing.T) {
	d := loadDataset(t)

	luanda, ok := d.Lookup(domain.LevelProvince, "luanda", "")

	require.True(t, ok)
	assert.Equal(t, domain.RiskVeryHigh, luanda.RiskCategory)
	assert.Equal(t, uint(8329517), luanda.Population)
}

func TestLookup_NormalizedName(t *testing.T) {
	d := loadDataset(t)

	tests := []struct {
		level domain.Level
		name  string
		want  string
	}{
		{domain.LevelProvince, "Uige", "Uíge"},
		{domain.LevelProvince, "cuando-cubango", "Cuando Cubango"},
		{domain.LevelMunicipality, "Kilamba-Kiaxi", "Kilamba Kiaxi"},
		{domain.LevelMunicipality, "quicama", "Quiçama"},
		{domain.LevelNeighborhood, "ilha de luanda", "Ilha de Luanda"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := d.Lookup(tt.level, tt.name, "")
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Name)
		})
	}
}

func TestLookup_ParentDisambiguates(t *testing.T) {
	d := loadDataset(t)

	benguela, ok := d.Lookup(domain.LevelNeighborhood, "Compão", "Benguela")
	require.True(t, ok)
	lobito, ok := d.Lookup(domain.LevelNeighborhood, "Compao", "lobito")
	require.True(t, ok)

	assert.Equal(t, 1302, benguela.ID)
	assert.Equal(t, 1403, lobito.ID)

	_, ok = d.Lookup(domain.LevelNeighborhood, "Compão", "Viana")
	assert.False(t, ok)
}

func TestLookup_LevelsAreSeparate(t *testing.T) {
	d := loadDataset(t)

	province, ok := d.Lookup(domain.LevelProvince, "Huambo", "")
	require.True(t, ok)
	municipality, ok := d.Lookup(domain.LevelMunicipality, "Huambo", "")
	require.True(t, ok)

	assert.NotEqual(t, province.ID, municipality.ID)
	assert.Equal(t, "Huambo", municipality.ParentName)
}

func TestMunicipalities_FilterByProvince(t *testing.T) {
	d := loadDataset(t)

	luanda := d.Municipalities("Luanda")
	require.Len(t, luanda, 8)
	for _, m := range luanda {
		assert.Equal(t, "Luanda", m.ParentName)
		assert.Equal(t, "Luanda", m.ProvinceName)
	}

	assert.Len(t, d.Municipalities("all"), 20)
	assert.Empty(t, d.Municipalities("Atlantis"))
}

func TestNeighborhoods_FilterByMunicipality(t *testing.T) {
	d := loadDataset(t)

	viana := d.Neighborhoods("viana", "")

	require.Len(t, viana, 4)
	names := make([]string, len(viana))
	for i, n := range viana {
		names[i] = n.Name
		assert.Equal(t, domain.LevelNeighborhood, n.Level)
		assert.Equal(t, "Luanda", n.ProvinceName)
	}
	assert.Equal(t, []string{"Calumbo", "Catete", "Kikuxi", "Viana Sede"}, names)
}

func TestRegions(t *testing.T) {
	d := loadDataset(t)

	assert.Len(t, d.Regions(domain.LevelProvince), 18)
	assert.Len(t, d.Regions(domain.LevelNeighborhood), 22)
	assert.Nil(t, d.Regions("country"))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", `{"provinces": [`},
		{"unknown category", `{"provinces":[{"id":1,"name":"X","riskCategory":"Extremo"}]}`},
		{"empty name", `{"provinces":[{"id":1,"name":" ","riskCategory":"Alto"}]}`},
		{"orphan municipality", `{"provinces":[{"id":1,"name":"A","riskCategory":"Alto"}],"municipalities":[{"id":2,"name":"M","province":"B","riskCategory":"Alto"}]}`},
		{"orphan neighborhood", `{"provinces":[{"id":1,"name":"A","riskCategory":"Alto"}],"neighborhoods":[{"id":3,"name":"N","municipality":"M","province":"A","riskCategory":"Alto"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reference.Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParse_DefaultsNeighborhoodType(t *testing.T) {
	data := `{
		"provinces":[{"id":1,"name":"A","riskCategory":"Alto"}],
		"municipalities":[{"id":2,"name":"M","province":"A","riskCategory":"Baixo"}],
		"neighborhoods":[{"id":3,"name":"N","municipality":"M","province":"A","riskCategory":"Médio"}]
	}`

	d, err := reference.Parse([]byte(data))
	require.NoError(t, err)

	n, ok := d.Lookup(domain.LevelNeighborhood, "N", "M")
	require.True(t, ok)
	assert.Equal(t, "Residencial", n.Type)
	assert.Equal(t, "M", n.ParentName)
	assert.Equal(t, "A", n.ProvinceName)
}

func TestNeighborhoods_SameMunicipalityNameInTwoProvinces(t *testing.T) {
	d, err := reference.Parse([]byte(`{
  "provinces": [
    {"id": 1, "name": "Luanda", "riskCategory": "Alto", "population": 100, "area": 1},
    {"id": 2, "name": "Bengo", "riskCategory": "Baixo", "population": 100, "area": 1}
  ],
  "municipalities": [
    {"id": 10, "name": "Sede", "province": "Luanda", "riskCategory": "Alto", "population": 50, "area": 1},
    {"id": 11, "name": "Sede", "province": "Bengo", "riskCategory": "Baixo", "population": 50, "area": 1}
  ],
  "neighborhoods": [
    {"id": 100, "name": "Centro", "municipality": "Sede", "province": "Luanda", "riskCategory": "Alto", "population": 10, "area": 1},
    {"id": 101, "name": "Praia", "municipality": "Sede", "province": "Bengo", "riskCategory": "Baixo", "population": 10, "area": 1}
  ]
}`))
	require.NoError(t, err)

	bengo := d.Neighborhoods("Sede", "bengo")
	require.Len(t, bengo, 1)
	assert.Equal(t, "Praia", bengo[0].Name)

	assert.Len(t, d.Neighborhoods("Sede", ""), 2)
	assert.Len(t, d.Neighborhoods("Sede", "all"), 2)
}
