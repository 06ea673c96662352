package jp2k

import (
	"fmt"
	"image"
)

// applyProfile clones o and, if o.Profile names a restricted profile,
// overrides any option that conflicts with that profile's mandated
// values, reporting each override through diag. Profile validation runs
// at session-construction time (here, before any encode work begins) so
// configuration problems surface before the encoder touches the image,
// per the facade's parameter-validation contract.
func applyProfile(o *Options, diag Diagnostic) *Options {
	if o == nil {
		o = DefaultOptions()
	}
	clone := *o

	warn := func(field, reason string) {
		if diag == nil {
			return
		}
		diag(Diag{
			Severity:  SeverityWarn,
			Component: "facade",
			Message:   fmt.Sprintf("profile %v overrides %s: %s", o.Profile, field, reason),
		})
	}

	switch o.Profile {
	case ProfileNone:
		return &clone

	case ProfileCinema2K, ProfileCinema4K, ProfileCinemaS2K, ProfileCinemaS4K, ProfileCinemaSLTE:
		if clone.Lossless {
			warn("Lossless", "digital cinema profiles require the 9/7 irreversible transform")
		}
		clone.Lossless = false

		if clone.ProgressionOrder != CPRL {
			warn("ProgressionOrder", "digital cinema profiles require CPRL")
		}
		clone.ProgressionOrder = CPRL

		if clone.TileSize != (image.Point{}) {
			warn("TileSize", "digital cinema profiles require a single tile covering the whole image")
		}
		clone.TileSize = image.Point{}

		if clone.NumLayers != 2 {
			warn("NumLayers", "digital cinema profiles use exactly two quality layers")
		}
		clone.NumLayers = 2

		// The digital cinema application profile also fixes the
		// per-resolution precinct size to 128x128 at resolution 0 and
		// 256x256 above it (ISO/IEC 15444-1 Annex A.2's cinema
		// amendment). This codec's precinct geometry only implements
		// the single-precinct-per-resolution degenerate case (see
		// internal/tcd's BuildPrecincts), so explicit precinct sizes
		// are not yet wired to the COD marker; recording the intended
		// sizes here is deferred until that geometry gap closes.

	case ProfileBroadcastSingle, ProfileBroadcastMulti:
		if clone.Profile == ProfileBroadcastSingle && clone.TileSize != (image.Point{}) {
			warn("TileSize", "single-tile broadcast profile requires one tile covering the whole image")
			clone.TileSize = image.Point{}
		}

	case ProfileIMF2K, ProfileIMF4K, ProfileIMF8K:
		if clone.TileSize != (image.Point{}) {
			warn("TileSize", "IMF profiles require a single tile covering the whole image")
		}
		clone.TileSize = image.Point{}
	}

	return &clone
}
