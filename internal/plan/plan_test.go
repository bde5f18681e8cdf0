package plan

import (
	"errors"
	"testing"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		raw     string
		want    Kind
		wantErr bool
	}{
		{raw: "FREE", want: Free},
		{raw: " plus ", want: Plus},
		{raw: "Premium", want: Premium},
		{raw: "GOLD", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.raw, func(t *testing.T) {
			got, err := ParseKind(tc.raw)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidPlanKind) {
					t.Fatalf("expected ErrInvalidPlanKind, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseKind error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestCapabilityTable(t *testing.T) {
	all := []Capability{
		CreatePlaylist, SavePlaylist, SaveAlbum, GenerateFavourites,
		CreateGenreList, SkipTracks, ListenCustomPlaylist, ListenSingleMusic,
	}

	for _, c := range all {
		if Free.Can(c) {
			t.Fatalf("free plan should not grant %s", c)
		}
		if !Premium.Can(c) {
			t.Fatalf("premium plan should grant %s", c)
		}
	}

	plusDenied := map[Capability]bool{GenerateFavourites: true, CreateGenreList: true}
	for _, c := range all {
		if got := Plus.Can(c); got == plusDenied[c] {
			t.Fatalf("plus plan capability %s = %v", c, got)
		}
	}

	if Kind("GOLD").Can(CreatePlaylist) {
		t.Fatalf("unknown tier should grant nothing")
	}
}

func TestRequire(t *testing.T) {
	if err := Free.Require(CreatePlaylist); !errors.Is(err, ErrNoPermissions) {
		t.Fatalf("expected ErrNoPermissions, got %v", err)
	}
	if err := Plus.Require(CreatePlaylist); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestAward(t *testing.T) {
	tests := []struct {
		name        string
		kind        Kind
		balance     int
		firstListen bool
		want        int
	}{
		{name: "free first", kind: Free, balance: 0, firstListen: true, want: 5},
		{name: "free replay", kind: Free, balance: 500, firstListen: false, want: 5},
		{name: "plus first", kind: Plus, balance: 0, firstListen: true, want: 10},
		{name: "plus replay", kind: Plus, balance: 40, firstListen: false, want: 10},
		{name: "premium first", kind: Premium, balance: 400, firstListen: true, want: 10},
		{name: "premium floors", kind: Premium, balance: 100, firstListen: true, want: 2},
		{name: "premium small balance", kind: Premium, balance: 39, firstListen: true, want: 0},
		{name: "premium replay", kind: Premium, balance: 400, firstListen: false, want: 0},
		{name: "unknown tier", kind: Kind("GOLD"), balance: 400, firstListen: true, want: 0},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.kind.Award(tc.balance, tc.firstListen); got != tc.want {
				t.Fatalf("expected %d points, got %d", tc.want, got)
			}
		})
	}
}
