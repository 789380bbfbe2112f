// Command reconcile reports how well the embedded reference regions match
// the GADM boundary names. For every province, municipality and
// neighborhood it resolves the region the same way a simulation does and
// tallies the resolution method; it also lists boundary features that have
// no reference data and would be skipped by a simulation.
//
// It exits non-zero if any province falls back instead of matching.
//
// Usage:
//
//	go run ./cmd/reconcile -country AGO -v
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/couchcryptid/flood-risk-engine/internal/adapter/gadm"
	"github.com/couchcryptid/flood-risk-engine/internal/domain"
	"github.com/couchcryptid/flood-risk-engine/internal/geometry"
	"github.com/couchcryptid/flood-risk-engine/internal/observability"
	"github.com/couchcryptid/flood-risk-engine/internal/reference"
)

var methods = []domain.ResolutionMethod{
	domain.MatchExact,
	domain.MatchNormalized,
	domain.MatchSubstring,
	domain.FallbackParent,
	domain.FallbackDefault,
}

// phase tracks the outcome of reconciling one level.
type phase struct {
	name     string
	counts   map[domain.ResolutionMethod]int
	unmapped []string // boundary features without reference data
	notes    []string
	errors   []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	country := flag.String("country", "AGO", "ISO 3166-1 alpha-3 country code")
	baseURL := flag.String("gadm-url", gadm.DefaultBaseURL, "GADM GeoJSON archive base URL")
	timeout := flag.Duration("timeout", 60*time.Second, "timeout per boundary download")
	verbose := flag.Bool("v", false, "list every non-exact resolution")
	flag.Parse()

	os.Exit(run(context.Background(), os.Stdout, *country, *baseURL, *timeout, *verbose))
}

func run(ctx context.Context, out io.Writer, country, baseURL string, timeout time.Duration, verbose bool) int {
	ref, err := reference.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load reference data: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := geometry.NewResolver(gadm.NewClient(baseURL, timeout, logger), timeout, logger, observability.NewMetricsForTesting())

	fmt.Fprintf(out, "=== Boundary Reconciliation (%s) ===\n\n", country)

	phases := []*phase{
		reconcile(ctx, resolver, country, ref, domain.LevelProvince, true),
		reconcile(ctx, resolver, country, ref, domain.LevelMunicipality, false),
		reconcile(ctx, resolver, country, ref, domain.LevelNeighborhood, false),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-28s %s\n", p.name, status)
		for _, m := range methods {
			fmt.Fprintf(out, "      %-16s %d\n", m, p.counts[m])
		}
		fmt.Fprintf(out, "      %-16s %d\n", "unmapped", len(p.unmapped))
	}

	for _, p := range phases {
		if len(p.errors) > 0 {
			fmt.Fprintf(out, "\n--- %s errors ---\n", p.name)
			for i, e := range p.errors {
				fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
			}
		}
		if verbose && len(p.notes)+len(p.unmapped) > 0 {
			fmt.Fprintf(out, "\n--- %s details ---\n", p.name)
			for _, n := range p.notes {
				fmt.Fprintf(out, "  %s\n", n)
			}
			for _, u := range p.unmapped {
				fmt.Fprintf(out, "  no reference data: %s\n", u)
			}
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nReconciliation passed.")
		return 0
	}
	fmt.Fprintln(out, "\nReconciliation FAILED.")
	return 1
}

// reconcile resolves every reference region of level l. When strict, any
// fallback is an error.
func reconcile(ctx context.Context, r *geometry.Resolver, country string, ref *reference.Dataset, l domain.Level, strict bool) *phase {
	p := &phase{name: fmt.Sprintf("%s (GADM level %d)", l, l.Depth()), counts: make(map[domain.ResolutionMethod]int)}

	features, err := r.Resolve(ctx, country, l)
	if err != nil {
		p.errorf("fetch boundaries: %v", err)
		return p
	}

	for _, region := range ref.Regions(l) {
		loc, err := r.Locate(ctx, country, region)
		if err != nil {
			p.errorf("%s: %v", region.Name, err)
			continue
		}
		p.counts[loc.Method]++
		switch {
		case loc.Method.IsFallback() && strict:
			p.errorf("%s: no boundary match (%s)", region.Name, loc.Method)
		case loc.Method != domain.MatchExact:
			p.notef("%-24s %-16s %s", region.Name, loc.Method, loc.FeatureName)
		}
	}

	if l != domain.LevelNeighborhood {
		p.unmapped = unmapped(features, ref, l)
	}
	return p
}

// unmapped lists features a province or municipality simulation would skip.
func unmapped(features []domain.PolygonFeature, ref *reference.Dataset, l domain.Level) []string {
	var out []string
	for _, f := range features {
		parent := ""
		if l != domain.LevelProvince {
			parent = f.Parent(domain.LevelProvince)
		}
		if _, ok := ref.Lookup(l, f.Name, parent); !ok {
			out = append(out, f.Name)
		}
	}
	slices.Sort(out)
	return out
}
