package transport

import (
	"context"
	"math"
	"net"
	"testing"
	"time"

	"github.com/annagriffin/swarm-cooperative-transport/internal/scan"
)

// startListener binds a Listener on a loopback port and runs it until the
// test ends. Returns the listener and a dialed sender socket.
func startListener(t *testing.T, cfg ListenerConfig) (*Listener, *net.UDPConn) {
	t.Helper()

	cfg.Addr = "127.0.0.1:0"
	l, err := NewListener(cfg)
	if err != nil {
		t.Fatalf("NewListener failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	sender, err := net.DialUDP("udp", nil, l.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("failed to dial listener: %v", err)
	}
	t.Cleanup(func() { sender.Close() })

	return l, sender
}

// waitFor polls until check passes or the deadline expires.
func waitFor(t *testing.T, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestListener_DeliversScanWithSentinelConversion(t *testing.T) {
	scanCh := make(chan []float64, 1)
	_, sender := startListener(t, ListenerConfig{
		Robot:  "robot1",
		OnScan: func(ranges []float64) { scanCh <- ranges },
	})

	ranges := make([]float64, scan.Samples)
	for i := range ranges {
		ranges[i] = 1.5
	}
	ranges[42] = math.Inf(1) // encoded as the wire marker

	payload, err := EncodeScan("robot1", ranges)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sender.Write(payload); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-scanCh:
		if len(got) != scan.Samples {
			t.Fatalf("got %d samples, want %d", len(got), scan.Samples)
		}
		if got[0] != 1.5 {
			t.Errorf("sample 0 = %v, want 1.5", got[0])
		}
		if !math.IsInf(got[42], 1) {
			t.Errorf("sample 42 = %v, want +Inf restored from wire marker", got[42])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scan not delivered")
	}
}

func TestListener_DeliversBearing(t *testing.T) {
	bearingCh := make(chan float64, 1)
	_, sender := startListener(t, ListenerConfig{
		Robot:     "robot1",
		OnBearing: func(deg float64) { bearingCh <- deg },
	})

	payload, err := EncodeBearing("robot1", -42.5)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sender.Write(payload); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-bearingCh:
		if got != -42.5 {
			t.Errorf("bearing = %v, want -42.5", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("bearing not delivered")
	}
}

func TestListener_FiltersOtherRobots(t *testing.T) {
	stats := NewStats()
	scanCh := make(chan []float64, 1)
	_, sender := startListener(t, ListenerConfig{
		Robot:  "robot1",
		Stats:  stats,
		OnScan: func(ranges []float64) { scanCh <- ranges },
	})

	ranges := make([]float64, scan.Samples)
	payload, err := EncodeScan("robot2", ranges)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sender.Write(payload); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		_, _, dropped := stats.Snapshot()
		return dropped == 1
	})
	select {
	case <-scanCh:
		t.Fatal("scan for another robot must not be delivered")
	default:
	}
}

func TestListener_DropsMalformedAndShortScans(t *testing.T) {
	stats := NewStats()
	_, sender := startListener(t, ListenerConfig{
		Robot: "robot1",
		Stats: stats,
		OnScan: func([]float64) {
			t.Error("no scan should be delivered")
		},
	})

	if _, err := sender.Write([]byte("not json")); err != nil {
		t.Fatal(err)
	}
	short, err := EncodeScan("robot1", make([]float64, 10))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sender.Write(short); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		_, _, dropped := stats.Snapshot()
		return dropped == 2
	})
}

func TestNewListener_RequiresRobot(t *testing.T) {
	if _, err := NewListener(ListenerConfig{Addr: "127.0.0.1:0"}); err == nil {
		t.Error("expected error for missing robot namespace")
	}
}
