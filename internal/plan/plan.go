// Package plan holds the subscription tiers and the capability and point rules attached to them.
package plan

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidPlanKind signals an unrecognised subscription tier name.
	ErrInvalidPlanKind = errors.New("invalid plan kind")
	// ErrNoPermissions indicates the user's tier does not grant the requested capability.
	ErrNoPermissions = errors.New("no permissions")
)

// Kind identifies a subscription tier.
type Kind string

const (
	Free    Kind = "FREE"
	Plus    Kind = "PLUS"
	Premium Kind = "PREMIUM"
)

// UpgradeBonus is credited when a user moves into the premium tier.
const UpgradeBonus = 100

// Capability is a feature gated by subscription tier.
type Capability int

const (
	CreatePlaylist Capability = iota
	SavePlaylist
	SaveAlbum
	GenerateFavourites
	CreateGenreList
	SkipTracks
	ListenCustomPlaylist
	ListenSingleMusic
)

var capabilityNames = map[Capability]string{
	CreatePlaylist:       "create playlist",
	SavePlaylist:         "save playlist",
	SaveAlbum:            "save album",
	GenerateFavourites:   "generate favourites list",
	CreateGenreList:      "create genre list",
	SkipTracks:           "skip tracks",
	ListenCustomPlaylist: "listen to custom playlist",
	ListenSingleMusic:    "listen to single music",
}

func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return fmt.Sprintf("capability(%d)", int(c))
}

type rules struct {
	caps  map[Capability]bool
	award func(balance int, firstListen bool) int
}

var table = map[Kind]rules{
	Free: {
		caps:  map[Capability]bool{},
		award: func(int, bool) int { return 5 },
	},
	Plus: {
		caps: map[Capability]bool{
			CreatePlaylist:       true,
			SavePlaylist:         true,
			SaveAlbum:            true,
			SkipTracks:           true,
			ListenCustomPlaylist: true,
			ListenSingleMusic:    true,
		},
		award: func(int, bool) int { return 10 },
	},
	Premium: {
		caps: map[Capability]bool{
			CreatePlaylist:       true,
			SavePlaylist:         true,
			SaveAlbum:            true,
			GenerateFavourites:   true,
			CreateGenreList:      true,
			SkipTracks:           true,
			ListenCustomPlaylist: true,
			ListenSingleMusic:    true,
		},
		award: func(balance int, firstListen bool) int {
			if !firstListen || balance <= 0 {
				return 0
			}
			// floor(balance * 0.025) without float rounding surprises.
			return balance * 25 / 1000
		},
	},
}

// ParseKind maps a tier name to its Kind, ignoring case and surrounding space.
func ParseKind(raw string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := table[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPlanKind, raw)
	}
	return k, nil
}

// Kinds lists the tiers in ascending order.
func Kinds() []Kind {
	return []Kind{Free, Plus, Premium}
}

func (k Kind) String() string { return string(k) }

// Valid reports whether k is a known tier.
func (k Kind) Valid() bool {
	_, ok := table[k]
	return ok
}

// Can reports whether the tier grants capability c. Unknown tiers grant nothing.
func (k Kind) Can(c Capability) bool {
	return table[k].caps[c]
}

// Require returns ErrNoPermissions when the tier lacks capability c.
func (k Kind) Require(c Capability) error {
	if !k.Can(c) {
		return fmt.Errorf("%w: %s plan cannot %s", ErrNoPermissions, k, c)
	}
	return nil
}

// Award returns the points earned for a single play given the current balance and whether
// the user has never played the track before. It must be computed before the play is
// appended to the listening history.
func (k Kind) Award(balance int, firstListen bool) int {
	r, ok := table[k]
	if !ok {
		return 0
	}
	return r.award(balance, firstListen)
}
