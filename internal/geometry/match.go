package geometry

import (
	"strings"

	"github.com/couchcryptid/flood-risk-engine/internal/domain"
)

// Match finds the feature for name. Tiers are tried in order across the whole
// set: exact equality, normalized equality, then normalized containment in
// either direction. Within a tier the first feature wins.
func Match(name string, features []domain.PolygonFeature) (domain.PolygonFeature, domain.ResolutionMethod, bool) {
	names := make([]string, len(features))
	for i, f := range features {
		names[i] = f.Name
	}
	i, method, ok := MatchName(name, names)
	if !ok {
		return domain.PolygonFeature{}, "", false
	}
	return features[i], method, true
}

// MatchName applies the same tiers as Match to plain names and returns the
// index of the winner.
func MatchName(name string, candidates []string) (int, domain.ResolutionMethod, bool) {
	for i, c := range candidates {
		if c == name {
			return i, domain.MatchExact, true
		}
	}

	want := domain.NormalizeName(name)
	if want == "" {
		return 0, "", false
	}

	normalized := make([]string, len(candidates))
	for i, c := range candidates {
		normalized[i] = domain.NormalizeName(c)
		if normalized[i] == want {
			return i, domain.MatchNormalized, true
		}
	}

	for i, got := range normalized {
		if got == "" {
			continue
		}
		if strings.Contains(want, got) || strings.Contains(got, want) {
			return i, domain.MatchSubstring, true
		}
	}
	return 0, "", false
}

// WithParent keeps the features whose ancestor at level normalizes equal to
// parent.
func WithParent(features []domain.PolygonFeature, level domain.Level, parent string) []domain.PolygonFeature {
	want := domain.NormalizeName(parent)
	var out []domain.PolygonFeature
	for _, f := range features {
		if domain.NormalizeName(f.Parent(level)) == want {
			out = append(out, f)
		}
	}
	return out
}
