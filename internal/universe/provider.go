// Package universe resolves the set of instruments scanned each cycle.
package universe

import (
	"context"
	"fmt"
	"strings"

	"PivotScreener/internal/model"
)

// Provider returns the venue-suffixed identifiers to scan. Any failure is
// reported as an error wrapping model.ErrUniverseUnavailable with a nil slice.
type Provider interface {
	Fetch(ctx context.Context) ([]string, error)
	Name() string
}

// Normalize trims a raw listing symbol and appends the venue suffix.
// It returns "" for blank input.
func Normalize(raw, suffix string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	if suffix != "" && strings.HasSuffix(s, strings.ToUpper(suffix)) {
		return s
	}
	return s + suffix
}

// DisplaySymbol strips the venue suffix for presentation.
func DisplaySymbol(id, suffix string) string {
	if suffix == "" {
		return id
	}
	return strings.TrimSuffix(id, suffix)
}

// StaticProvider serves a fixed, configured symbol list.
type StaticProvider struct {
	symbols []string
}

// NewStaticProvider normalizes and deduplicates symbols, keeping their order.
func NewStaticProvider(symbols []string, suffix string) *StaticProvider {
	return &StaticProvider{symbols: dedupe(symbols, suffix)}
}

func (p *StaticProvider) Name() string { return "static" }

func (p *StaticProvider) Fetch(_ context.Context) ([]string, error) {
	if len(p.symbols) == 0 {
		return nil, fmt.Errorf("static universe is empty: %w", model.ErrUniverseUnavailable)
	}
	return append([]string(nil), p.symbols...), nil
}

func dedupe(raw []string, suffix string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		id := Normalize(r, suffix)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
