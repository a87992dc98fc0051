// Package sizing converts streak amplitude into a target weight.
package sizing

import (
	"math"

	"contrarian-lab/internal/config"
	"contrarian-lab/internal/domain"
)

// ProfileSource resolves a sizing profile for an asset class.
type ProfileSource interface {
	Profile(class domain.AssetClass) config.SizingProfile
}

// Sizer maps |amplitude| to a magnitude-only weight.
type Sizer struct {
	profiles     ProfileSource
	perSymbolCap float64
}

// NewSizer creates a sizer with a global per-symbol ceiling.
func NewSizer(profiles ProfileSource, perSymbolCap float64) *Sizer {
	return &Sizer{profiles: profiles, perSymbolCap: perSymbolCap}
}

// Size returns clip(sensitivity*|amp|, min_pos, max_pos) capped by the
// per-symbol ceiling. A zero or non-finite amplitude sizes to 0.
func (s *Sizer) Size(class domain.AssetClass, amplitude float64) float64 {
	abs := math.Abs(amplitude)
	if !(abs > 0) || math.IsInf(abs, 0) {
		return 0
	}
	p := s.profiles.Profile(class)
	w := p.Sensitivity * abs
	w = math.Max(w, p.MinPos)
	w = math.Min(w, p.MaxPos)
	return math.Min(w, s.perSymbolCap)
}
