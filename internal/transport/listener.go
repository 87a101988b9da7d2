package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/annagriffin/swarm-cooperative-transport/internal/monitoring"
)

// ScanHandler receives a validated 360-sample scan with the internal +Inf
// no-return sentinel already applied.
type ScanHandler func(ranges []float64)

// BearingHandler receives a bearing-to-leader angle in signed degrees.
type BearingHandler func(deg float64)

// ListenerConfig configures a sensor Listener.
type ListenerConfig struct {
	// Addr is the UDP bind address, e.g. ":2370".
	Addr string
	// Robot is the namespace to accept; datagrams for other robots are
	// counted as dropped.
	Robot string
	// RcvBuf is the socket receive buffer size in bytes (default 1MB).
	RcvBuf int
	// OnScan and OnBearing deliver decoded readings. Either may be nil.
	OnScan    ScanHandler
	OnBearing BearingHandler
	// Stats is optional counter tracking.
	Stats *Stats
}

// Listener receives scan and bearing datagrams for one robot namespace and
// fans them out to the sensor callbacks.
type Listener struct {
	conn      *net.UDPConn
	robot     string
	onScan    ScanHandler
	onBearing BearingHandler
	stats     *Stats
}

// NewListener binds the UDP socket. Call Run to start receiving.
func NewListener(cfg ListenerConfig) (*Listener, error) {
	if cfg.Robot == "" {
		return nil, fmt.Errorf("robot namespace is required")
	}
	udpAddr, err := net.ResolveUDPAddr("udp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve listen address: %w", err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind UDP socket: %w", err)
	}

	rcvBuf := cfg.RcvBuf
	if rcvBuf == 0 {
		rcvBuf = 1 << 20
	}
	if err := conn.SetReadBuffer(rcvBuf); err != nil {
		monitoring.Logf("listener: could not set receive buffer to %d: %v", rcvBuf, err)
	}

	stats := cfg.Stats
	if stats == nil {
		stats = NewStats()
	}

	return &Listener{
		conn:      conn,
		robot:     cfg.Robot,
		onScan:    cfg.OnScan,
		onBearing: cfg.OnBearing,
		stats:     stats,
	}, nil
}

// LocalAddr returns the bound address (useful with ":0" in tests).
func (l *Listener) LocalAddr() net.Addr {
	return l.conn.LocalAddr()
}

// Run receives datagrams until the context is cancelled. The socket is
// closed on the way out.
func (l *Listener) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		l.conn.Close()
	}()

	buf := make([]byte, 64*1024)
	for {
		n, _, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("UDP read failed: %w", err)
		}
		l.stats.AddPacket(n)
		l.handle(buf[:n])
	}
}

// handle decodes one datagram and dispatches it. Malformed or foreign
// datagrams are dropped; sensor noise must never take the loop down.
func (l *Listener) handle(payload []byte) {
	var msg envelope
	if err := json.Unmarshal(payload, &msg); err != nil {
		l.stats.AddDropped()
		monitoring.Debugf("listener: dropping malformed datagram: %v", err)
		return
	}
	if msg.Robot != l.robot {
		l.stats.AddDropped()
		return
	}

	switch msg.Type {
	case TypeScan:
		ranges, err := decodeRanges(msg.Ranges)
		if err != nil {
			l.stats.AddDropped()
			monitoring.Debugf("listener: dropping scan: %v", err)
			return
		}
		if l.onScan != nil {
			l.onScan(ranges)
		}
	case TypeBearing:
		if msg.Bearing == nil {
			l.stats.AddDropped()
			return
		}
		if l.onBearing != nil {
			l.onBearing(*msg.Bearing)
		}
	default:
		l.stats.AddDropped()
		monitoring.Debugf("listener: dropping unknown message type %q", msg.Type)
	}
}
