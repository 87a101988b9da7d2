package scan

import (
	"math"
	"testing"
)

// emptyScan returns a snapshot where every sample is the no-return sentinel.
func emptyScan() Snapshot {
	s := make(Snapshot, Samples)
	for i := range s {
		s[i] = math.Inf(1)
	}
	return s
}

func TestAverageDistance_NilScan(t *testing.T) {
	if _, ok := AverageDistance(nil, 0, 7); ok {
		t.Error("expected ok=false for nil scan")
	}
}

func TestAverageDistance_TruncatedScan(t *testing.T) {
	short := make(Snapshot, 180)
	for i := range short {
		short[i] = 1.0
	}

	// A partial rotation cannot be windowed safely; it must read as no data,
	// not index out of range.
	if _, ok := AverageDistance(short, 359, 7); ok {
		t.Error("expected ok=false for truncated scan")
	}
	if _, ok := Directions(short, 7); ok {
		t.Error("expected ok=false for truncated scan")
	}
}

func TestAverageDistance_IgnoresInvalidSamples(t *testing.T) {
	s := emptyScan()
	s[10] = 2.0
	s[11] = 4.0
	// s[9], s[12], s[13] stay +Inf and must be excluded from the mean

	got, ok := AverageDistance(s, 11, 2)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if got != 3.0 {
		t.Errorf("AverageDistance = %v, want 3.0 (mean of valid samples only)", got)
	}
}

func TestAverageDistance_AllInvalidWindow(t *testing.T) {
	s := emptyScan()
	s[200] = 1.5 // valid data far outside the window must not matter

	got, ok := AverageDistance(s, 0, 7)
	if !ok {
		t.Fatal("expected ok=true for a present scan")
	}
	if !math.IsInf(got, 1) {
		t.Errorf("AverageDistance = %v, want +Inf for all-invalid window", got)
	}
}

func TestAverageDistance_WrapsAroundZero(t *testing.T) {
	// Center 359 with half-window 2 must cover indices 357,358,359,0,1.
	s := emptyScan()
	s[357] = 1.0
	s[358] = 2.0
	s[359] = 3.0
	s[0] = 4.0
	s[1] = 5.0

	got, ok := AverageDistance(s, 359, 2)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if got != 3.0 {
		t.Errorf("AverageDistance = %v, want 3.0 (mean over wrapped window)", got)
	}
}

func TestAverageDistance_NegativeCenterWraps(t *testing.T) {
	s := emptyScan()
	s[330] = 1.25

	got, ok := AverageDistance(s, -30, 0)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if got != 1.25 {
		t.Errorf("AverageDistance = %v, want 1.25 at wrapped index 330", got)
	}
}

func TestDirections(t *testing.T) {
	s := emptyScan()
	for i := 85; i <= 95; i++ {
		s[i] = 2.0 // left
	}
	s[270] = 0.5 // right, single valid sample
	// front window stays all +Inf

	d, ok := Directions(s, 7)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if d.Left != 2.0 {
		t.Errorf("Left = %v, want 2.0", d.Left)
	}
	if d.Right != 0.5 {
		t.Errorf("Right = %v, want 0.5", d.Right)
	}
	if !math.IsInf(d.Front, 1) {
		t.Errorf("Front = %v, want +Inf", d.Front)
	}
	if d.Min() != 0.5 {
		t.Errorf("Min = %v, want 0.5", d.Min())
	}
}

func TestDirections_NilScan(t *testing.T) {
	if _, ok := Directions(nil, 7); ok {
		t.Error("expected ok=false for nil scan")
	}
}
