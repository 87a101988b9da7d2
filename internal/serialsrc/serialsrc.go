// Package serialsrc reads bearing-to-leader records from a serial-attached
// AR-tag tracker as an alternative to the UDP bearing feed. The device
// emits one record per line in the form "B,<degrees>".
package serialsrc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.bug.st/serial"

	"github.com/annagriffin/swarm-cooperative-transport/internal/monitoring"
)

// Porter is the minimal interface needed from a serial port.
type Porter interface {
	io.ReadWriter
	io.Closer
}

// BearingSource reads bearing records from a serial port and delivers them
// to a callback.
type BearingSource struct {
	port      Porter
	onBearing func(deg float64)
}

// NewBearingSource wraps an already-open port. Used directly by tests with
// a mock port; production code goes through Open.
func NewBearingSource(port Porter, onBearing func(deg float64)) *BearingSource {
	return &BearingSource{port: port, onBearing: onBearing}
}

// Open opens the serial device at the conventional tracker settings
// (9600 8N1) and wraps it in a BearingSource.
func Open(path string, onBearing func(deg float64)) (*BearingSource, error) {
	mode := &serial.Mode{
		BaudRate: 9600,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: 1,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial device %s: %w", path, err)
	}
	return NewBearingSource(port, onBearing), nil
}

// Monitor reads lines from the port until the context is cancelled or the
// stream ends. Unparseable lines are skipped; a flaky tracker must not stop
// the controller.
func (s *BearingSource) Monitor(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.port.Close()
	}()

	scanner := bufio.NewScanner(s.port)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		deg, err := parseBearing(line)
		if err != nil {
			monitoring.Debugf("serialsrc: skipping line %q: %v", line, err)
			continue
		}
		if s.onBearing != nil {
			s.onBearing(deg)
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil && !errors.Is(err, io.ErrClosedPipe) {
		return fmt.Errorf("serial read failed: %w", err)
	}
	return nil
}

// Close closes the underlying port.
func (s *BearingSource) Close() error {
	return s.port.Close()
}

// parseBearing parses a "B,<degrees>" record.
func parseBearing(line string) (float64, error) {
	rest, ok := strings.CutPrefix(line, "B,")
	if !ok {
		return 0, fmt.Errorf("not a bearing record")
	}
	deg, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
	if err != nil {
		return 0, fmt.Errorf("bad angle: %w", err)
	}
	return deg, nil
}
