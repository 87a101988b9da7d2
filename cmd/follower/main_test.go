package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenBearingSource_DevModeReplaysFixtures(t *testing.T) {
	fixtures := filepath.Join(t.TempDir(), "fixtures.txt")
	if err := os.WriteFile(fixtures, []byte("B,30\nB,-12.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var got []float64
	src, err := openBearingSource("", true, fixtures, func(deg float64) {
		got = append(got, deg)
	})
	if err != nil {
		t.Fatalf("openBearingSource failed: %v", err)
	}
	defer src.Close()

	if err := src.Monitor(context.Background()); err != nil {
		t.Fatalf("Monitor returned %v", err)
	}

	want := []float64{30, -12.5}
	if len(got) != len(want) {
		t.Fatalf("got %v bearings, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bearing[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestOpenBearingSource_DevModeMissingFixtures(t *testing.T) {
	_, err := openBearingSource("", true, filepath.Join(t.TempDir(), "nope.txt"), nil)
	if err == nil {
		t.Fatal("expected error for missing fixtures file")
	}
}
