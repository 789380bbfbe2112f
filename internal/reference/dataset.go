// Package reference holds the static demographic and risk table for Angolan
// administrative regions. The table is embedded at build time and is
// immutable once loaded.
package reference

import (
	"embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/couchcryptid/flood-risk-engine/internal/domain"
)

//go:embed data/angola.json
var dataFS embed.FS

const defaultNeighborhoodType = "Residencial"

type record struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Province     string  `json:"province"`
	Municipality string  `json:"municipality"`
	Type         string  `json:"type"`
	RiskCategory string  `json:"riskCategory"`
	Population   uint    `json:"population"`
	Area         float64 `json:"area"`
}

type document struct {
	Provinces      []record `json:"provinces"`
	Municipalities []record `json:"municipalities"`
	Neighborhoods  []record `json:"neighborhoods"`
}

type indexKey struct {
	level domain.Level
	name  string // normalized
}

// Dataset is a read-only lookup over the reference regions, indexed by
// normalized name.
type Dataset struct {
	provinces      []domain.AdministrativeRegion
	municipalities []domain.AdministrativeRegion
	neighborhoods  []domain.AdministrativeRegion
	index          map[indexKey][]domain.AdministrativeRegion
}

// Load parses the embedded Angola dataset.
func Load() (*Dataset, error) {
	data, err := dataFS.ReadFile("data/angola.json")
	if err != nil {
		return nil, fmt.Errorf("reading embedded reference data: %w", err)
	}
	return Parse(data)
}

// Parse builds a Dataset from JSON with "provinces", "municipalities" and
// "neighborhoods" arrays. Every entry must carry a known risk category and
// municipalities and neighborhoods must name a loaded parent.
func Parse(data []byte) (*Dataset, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing reference data: %w", err)
	}

	d := &Dataset{index: make(map[indexKey][]domain.AdministrativeRegion)}

	for _, r := range doc.Provinces {
		region, err := r.toRegion(domain.LevelProvince, "", "")
		if err != nil {
			return nil, err
		}
		d.add(region)
	}
	for _, r := range doc.Municipalities {
		if _, ok := d.Lookup(domain.LevelProvince, r.Province, ""); !ok {
			return nil, fmt.Errorf("municipality %q: unknown province %q", r.Name, r.Province)
		}
		region, err := r.toRegion(domain.LevelMunicipality, r.Province, r.Province)
		if err != nil {
			return nil, err
		}
		d.add(region)
	}
	for _, r := range doc.Neighborhoods {
		if _, ok := d.Lookup(domain.LevelMunicipality, r.Municipality, r.Province); !ok {
			return nil, fmt.Errorf("neighborhood %q: unknown municipality %q in %q", r.Name, r.Municipality, r.Province)
		}
		region, err := r.toRegion(domain.LevelNeighborhood, r.Municipality, r.Province)
		if err != nil {
			return nil, err
		}
		if region.Type == "" {
			region.Type = defaultNeighborhoodType
		}
		d.add(region)
	}

	for _, regions := range [][]domain.AdministrativeRegion{d.provinces, d.municipalities, d.neighborhoods} {
		slices.SortStableFunc(regions, func(a, b domain.AdministrativeRegion) int {
			return strings.Compare(domain.NormalizeName(a.Name), domain.NormalizeName(b.Name))
		})
	}
	return d, nil
}

func (r record) toRegion(level domain.Level, parent, province string) (domain.AdministrativeRegion, error) {
	if strings.TrimSpace(r.Name) == "" {
		return domain.AdministrativeRegion{}, fmt.Errorf("%s %d: empty name", level, r.ID)
	}
	category, err := domain.ParseRiskCategory(r.RiskCategory)
	if err != nil {
		return domain.AdministrativeRegion{}, fmt.Errorf("%s %q: %w", level, r.Name, err)
	}
	return domain.AdministrativeRegion{
		ID:           r.ID,
		Name:         r.Name,
		Level:        level,
		ParentName:   parent,
		ProvinceName: province,
		Type:         r.Type,
		RiskCategory: category,
		Population:   r.Population,
		Area:         r.Area,
	}, nil
}

func (d *Dataset) add(region domain.AdministrativeRegion) {
	switch region.Level {
	case domain.LevelProvince:
		d.provinces = append(d.provinces, region)
	case domain.LevelMunicipality:
		d.municipalities = append(d.municipalities, region)
	case domain.LevelNeighborhood:
		d.neighborhoods = append(d.neighborhoods, region)
	}
	key := indexKey{level: region.Level, name: domain.NormalizeName(region.Name)}
	d.index[key] = append(d.index[key], region)
}

// Provinces returns every province, ordered by name.
func (d *Dataset) Provinces() []domain.AdministrativeRegion {
	return slices.Clone(d.provinces)
}

// Municipalities returns the municipalities of province, or all of them when
// province is empty or "all".
func (d *Dataset) Municipalities(province string) []domain.AdministrativeRegion {
	return filterByParent(d.municipalities, province)
}

// Neighborhoods returns the neighborhoods of municipality, or all of them
// when municipality is empty or "all". A province other than empty or "all"
// keeps only that province's municipality of the name.
func (d *Dataset) Neighborhoods(municipality, province string) []domain.AdministrativeRegion {
	regions := filterByParent(d.neighborhoods, municipality)
	if domain.IsAll(province) {
		return regions
	}
	return slices.DeleteFunc(regions, func(r domain.AdministrativeRegion) bool {
		return !domain.SameName(r.ProvinceName, province)
	})
}

// Regions returns every region of level l.
func (d *Dataset) Regions(l domain.Level) []domain.AdministrativeRegion {
	switch l {
	case domain.LevelProvince:
		return d.Provinces()
	case domain.LevelMunicipality:
		return d.Municipalities("")
	case domain.LevelNeighborhood:
		return d.Neighborhoods("", "")
	default:
		return nil
	}
}

// Lookup finds a region by normalized name. A non-empty parent narrows the
// match to regions whose parent or province normalizes equal to it; without
// one the first region in load order wins.
func (d *Dataset) Lookup(l domain.Level, name, parent string) (domain.AdministrativeRegion, bool) {
	candidates := d.index[indexKey{level: l, name: domain.NormalizeName(name)}]
	for _, c := range candidates {
		if parent == "" || domain.SameName(c.ParentName, parent) || domain.SameName(c.ProvinceName, parent) {
			return c, true
		}
	}
	return domain.AdministrativeRegion{}, false
}

func filterByParent(regions []domain.AdministrativeRegion, parent string) []domain.AdministrativeRegion {
	if domain.IsAll(parent) {
		return slices.Clone(regions)
	}
	want := domain.NormalizeName(parent)
	var out []domain.AdministrativeRegion
	for _, r := range regions {
		if domain.NormalizeName(r.ParentName) == want {
			out = append(out, r)
		}
	}
	return out
}
