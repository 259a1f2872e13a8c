// Package fonts resolves host fonts for PDF compilation.
//
// The PDF compiler takes explicit font names for its main, sans-serif,
// monospace and CJK variables. Which fonts a host actually has varies, so
// the resolver probes the system inventory with fc-list and picks the
// first present name from a prioritized candidate list per role. Probing
// failure never fails a build; it only degrades selection to the most
// common candidate.
package fonts

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

// Candidate lists per logical role, most common first. The first entry
// doubles as the fallback when probing is unavailable.
var (
	mainCandidates = []string{"DejaVu Serif", "Liberation Serif", "Noto Serif", "Times New Roman"}
	sansCandidates = []string{"DejaVu Sans", "Liberation Sans", "Noto Sans", "Arial"}
	monoCandidates = []string{"DejaVu Sans Mono", "Liberation Mono", "Noto Sans Mono", "Courier New"}
	cjkCandidates  = []string{"Noto Sans CJK SC", "Noto Serif CJK SC", "Source Han Sans SC", "WenQuanYi Micro Hei"}
)

// Resolution carries the chosen font per role. Probed reports whether the
// host inventory was actually consulted; when false every role holds its
// default candidate.
type Resolution struct {
	Main   string
	Sans   string
	Mono   string
	CJK    string
	Probed bool
}

// Resolver probes the host font inventory.
type Resolver struct {
	path string
}

// NewResolver returns a resolver using the given fc-list executable. An
// empty path means "fc-list" resolved via PATH.
func NewResolver(path string) *Resolver {
	if path == "" {
		path = "fc-list"
	}
	return &Resolver{path: path}
}

// Resolve probes the host inventory and picks a font per role. It never
// returns an error: when the probe fails, each role falls back to its
// first candidate and Probed is false.
func (r *Resolver) Resolve(ctx context.Context) Resolution {
	available, ok := r.probe(ctx)
	if !ok {
		return Resolution{
			Main: mainCandidates[0],
			Sans: sansCandidates[0],
			Mono: monoCandidates[0],
			CJK:  cjkCandidates[0],
		}
	}
	return resolveFrom(available)
}

// resolveFrom picks the first present candidate per role from a probed
// family set.
func resolveFrom(available map[string]bool) Resolution {
	pick := func(candidates []string) string {
		for _, c := range candidates {
			if available[c] {
				return c
			}
		}
		return candidates[0]
	}
	return Resolution{
		Main:   pick(mainCandidates),
		Sans:   pick(sansCandidates),
		Mono:   pick(monoCandidates),
		CJK:    pick(cjkCandidates),
		Probed: true,
	}
}

// probe lists installed font families via fc-list. The second return is
// false when the executable is missing or exits non-zero.
func (r *Resolver) probe(ctx context.Context) (map[string]bool, bool) {
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, r.path, ":", "family")
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, false
	}
	return parseFamilies(stdout.String()), true
}

// parseFamilies splits fc-list family output into a set. Each line may
// carry several comma-separated aliases of the same family.
func parseFamilies(output string) map[string]bool {
	families := make(map[string]bool)
	for _, line := range strings.Split(output, "\n") {
		for _, name := range strings.Split(line, ",") {
			if name = strings.TrimSpace(name); name != "" {
				families[name] = true
			}
		}
	}
	return families
}
