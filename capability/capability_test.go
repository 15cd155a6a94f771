package capability

import (
	"errors"
	"slices"
	"testing"

	"github.com/dmora/enginesup"
)

func TestNegotiate_Thresholds(t *testing.T) {
	tests := []struct {
		version    string
		wantLimits bool
		wantROI    bool
	}{
		{"3.0.9", false, false},
		{"3.1.0", true, false},
		{"3.1.1", true, true},
		{"3.4.2", true, true},
		{"2.9.9", false, false},
		{"4.0.0", true, true},
		{"v3.1.1", true, true},
		{" 3.1.0\n", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			got, err := Negotiate(tt.version)
			if err != nil {
				t.Fatalf("Negotiate(%q): %v", tt.version, err)
			}
			if got.MemoryAndTimeLimits != tt.wantLimits {
				t.Errorf("MemoryAndTimeLimits = %v, want %v", got.MemoryAndTimeLimits, tt.wantLimits)
			}
			if got.RegionOfInterest != tt.wantROI {
				t.Errorf("RegionOfInterest = %v, want %v", got.RegionOfInterest, tt.wantROI)
			}
		})
	}
}

func TestNegotiate_PrereleaseSortsBelowRelease(t *testing.T) {
	got, err := Negotiate("3.1.0-rc1")
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if got.MemoryAndTimeLimits {
		t.Error("3.1.0-rc1 precedes 3.1.0; limits must be disabled")
	}

	got, err = Negotiate("3.1.1-nightly.2")
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if !got.MemoryAndTimeLimits || got.RegionOfInterest {
		t.Errorf("3.1.1-nightly.2: got %s, want limits only", got)
	}
}

func TestNegotiate_BuildMetadataIgnored(t *testing.T) {
	got, err := Negotiate("3.1.1+commit.abc123")
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if !got.RegionOfInterest {
		t.Error("build metadata must not affect precedence")
	}
}

func TestNegotiate_Malformed(t *testing.T) {
	for _, raw := range []string{"", "three", "3.1", "3.1.x", "Lean (version 3.4.2)"} {
		t.Run(raw, func(t *testing.T) {
			_, err := Negotiate(raw)
			if !errors.Is(err, enginesup.ErrMalformedVersion) {
				t.Errorf("Negotiate(%q) error = %v, want ErrMalformedVersion", raw, err)
			}
		})
	}
}

func TestOptions_AppendsLimitsWhenSupported(t *testing.T) {
	base := enginesup.ConnectionOptions{
		Executable: "lean",
		WorkingDir: "/work",
		Args:       []string{"-j", "2"},
	}
	set, err := Negotiate("3.1.0")
	if err != nil {
		t.Fatal(err)
	}
	got := Options(base, Limits{MemoryMB: 4096, Time: 100000}, set)

	want := []string{"-j", "2", "-M", "4096", "-T", "100000"}
	if !slices.Equal(got.Args, want) {
		t.Errorf("Args = %v, want %v", got.Args, want)
	}
	if got.Executable != "lean" || got.WorkingDir != "/work" {
		t.Errorf("base fields not carried: %+v", got)
	}
	if len(base.Args) != 2 {
		t.Errorf("base mutated: %v", base.Args)
	}
}

func TestOptions_OmitsLimitsForOldVersions(t *testing.T) {
	base := enginesup.ConnectionOptions{Executable: "lean", Args: []string{"--json"}}
	set, err := Negotiate("3.0.9")
	if err != nil {
		t.Fatal(err)
	}
	got := Options(base, Limits{MemoryMB: 1, Time: 1}, set)
	if !slices.Equal(got.Args, []string{"--json"}) {
		t.Errorf("Args = %v, want [--json]", got.Args)
	}
}

func TestSet_String(t *testing.T) {
	if got := (Set{}).String(); got != "version=unknown limits=false roi=false" {
		t.Errorf("zero Set String() = %q", got)
	}
	set, _ := Negotiate("3.1.1")
	if got := set.String(); got != "version=3.1.1 limits=true roi=true" {
		t.Errorf("String() = %q", got)
	}
}
