package monitoring

import (
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")

	if !called {
		t.Error("Custom logger was not called")
	}

	// Setting nil installs a no-op logger rather than leaving Logf nil.
	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Logf panicked: %v", r)
		}
	}()

	Logf("test message: %s", "value")
}

func TestDebugf_GatedByToggle(t *testing.T) {
	original := Logf
	defer func() {
		Logf = original
		SetDebug(false)
	}()

	var lines int
	SetLogger(func(format string, v ...interface{}) {
		lines++
	})

	SetDebug(false)
	Debugf("suppressed")
	if lines != 0 {
		t.Errorf("expected no output with debug off, got %d lines", lines)
	}

	SetDebug(true)
	if !DebugEnabled() {
		t.Error("DebugEnabled should report true after SetDebug(true)")
	}
	Debugf("emitted %d", 1)
	if lines != 1 {
		t.Errorf("expected 1 line with debug on, got %d", lines)
	}
}
