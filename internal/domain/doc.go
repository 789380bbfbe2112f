// Package domain models Angolan administrative regions and the flood-risk
// scoring applied to them.
//
// # Data Sources
//
// Static reference data (population, area, risk category) comes from the
// embedded dataset in package reference. Boundary polygons come from GADM 4.1
// GeoJSON exports, one file per administrative depth:
//
//	province      → GADM level 1 (NAME_1)
//	municipality  → GADM level 2 (NAME_1, NAME_2)
//	neighborhood  → GADM level 3 (NAME_1, NAME_2, NAME_3)
//
// Point elevations come from the Open-Elevation API (SRTM, metres above sea
// level). Negative values are provider sentinels and are discarded.
//
// # Name Conventions
//
// The two datasets share no identifier. Names are joined with [NormalizeName],
// which lower-cases, strips diacritics and removes spaces, hyphens and
// underscores, so "Kilamba-Kiaxi", "Kilamba Kiaxi" and "kilambakiaxi" compare
// equal. Risk categories are matched the same way, so the legacy spelling
// "Muito Alto" parses as [RiskVeryHigh].
//
// # Scoring
//
// [Score] composes five independently scaled signals into one probability:
//
//	category modifier   MuitoAlto +0.35 | Alto +0.20 | Médio +0.05 | Baixo −0.10
//	elevation band      <50m +0.40 | <200m +0.30 | <500m +0.15 | <1000m +0.05 | else −0.10
//	terrain relief      >300m +0.25 | >150m +0.15 | >50m +0.08 | else 0
//	flow accumulation   min(0.3, 0.1·ln(maxAccumulation+1))
//	flood rate          user supplied, 0..1
//
// The clamped sum drives a water level, compared against a threshold derived
// from the region's minimum elevation. Flooded regions are banded into a
// severity with a recovery estimate:
//
//	<8m (and avg elevation >100m)  Leve      7  + 0.5·level days
//	<15m                           Moderada  15 + 1.0·level days
//	<25m                           Grave     30 + 1.5·level days
//	otherwise                      Crítica   60 + 2.0·level days
//
// Regions averaging under 50m drain slowly; their recovery is multiplied by 1.5.
package domain
