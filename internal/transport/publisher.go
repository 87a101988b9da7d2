package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/annagriffin/swarm-cooperative-transport/internal/control"
	"github.com/annagriffin/swarm-cooperative-transport/internal/monitoring"
)

// CommandPublisher sends velocity commands to the robot base over UDP. The
// send path is asynchronous and non-blocking: the control loop must keep
// its cadence even when the network stalls, so a full queue drops the
// command rather than delaying the next cycle. The loop re-issues commands
// every period, which makes an occasional drop harmless.
type CommandPublisher struct {
	conn        *net.UDPConn
	channel     chan []byte
	robot       string
	stats       *Stats
	logInterval time.Duration
	address     string
}

// NewCommandPublisher dials the command endpoint. Call Start before Publish.
func NewCommandPublisher(addr string, robot string, stats *Stats, logInterval time.Duration) (*CommandPublisher, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve command address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial command endpoint: %w", err)
	}

	if stats == nil {
		stats = NewStats()
	}
	if logInterval <= 0 {
		logInterval = 5 * time.Second
	}

	return &CommandPublisher{
		conn:        conn,
		channel:     make(chan []byte, 64),
		robot:       robot,
		stats:       stats,
		logInterval: logInterval,
		address:     addr,
	}, nil
}

// Start begins the send goroutine. Send errors are counted and summarized
// at the log interval instead of being logged per command. On cancellation
// the goroutine drains commands already queued before returning, so a stop
// command enqueued during shutdown still reaches the base.
func (p *CommandPublisher) Start(ctx context.Context) {
	go func() {
		failedCount := 0
		var lastError error
		ticker := time.NewTicker(p.logInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.drain()
				return
			case payload := <-p.channel:
				if _, err := p.conn.Write(payload); err != nil {
					failedCount++
					lastError = err
				} else {
					p.stats.AddPacket(len(payload))
				}
			case <-ticker.C:
				if failedCount > 0 && lastError != nil {
					monitoring.Logf("publisher: %d command sends failed (latest: %v)", failedCount, lastError)
					failedCount = 0
					lastError = nil
				}
			}
		}
	}()

	monitoring.Logf("publishing commands to %s", p.address)
}

// drain sends whatever is left in the queue under a short write deadline.
func (p *CommandPublisher) drain() {
	p.conn.SetWriteDeadline(time.Now().Add(time.Second))
	for {
		select {
		case payload := <-p.channel:
			if _, err := p.conn.Write(payload); err != nil {
				monitoring.Logf("publisher: send during shutdown failed: %v", err)
				return
			}
			p.stats.AddPacket(len(payload))
		default:
			return
		}
	}
}

// Publish enqueues a velocity command. Implements control.Publisher.
func (p *CommandPublisher) Publish(cmd control.Command) error {
	payload, err := json.Marshal(envelope{
		Type:    TypeCommand,
		Robot:   p.robot,
		Linear:  &cmd.Linear,
		Angular: &cmd.Angular,
	})
	if err != nil {
		return fmt.Errorf("failed to encode command: %w", err)
	}

	select {
	case p.channel <- payload:
		return nil
	default:
		p.stats.AddDropped()
		return nil
	}
}

// Close closes the UDP connection.
func (p *CommandPublisher) Close() error {
	return p.conn.Close()
}
