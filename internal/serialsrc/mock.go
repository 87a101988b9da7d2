package serialsrc

import (
	"io"
	"sync"
	"time"
)

// MockPort implements Porter for dev mode and tests, replaying canned data.
// Safe for a concurrent Close, which Monitor issues on context cancellation.
type MockPort struct {
	mu          sync.Mutex
	ReadData    []byte
	WrittenData []byte
	ReadError   error
	closed      bool
	ReadDelay   time.Duration
}

func (m *MockPort) Read(p []byte) (n int, err error) {
	if m.ReadDelay > 0 {
		time.Sleep(m.ReadDelay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadError != nil {
		return 0, m.ReadError
	}
	if m.closed || len(m.ReadData) == 0 {
		return 0, io.EOF
	}
	n = copy(p, m.ReadData)
	m.ReadData = m.ReadData[n:]
	return n, nil
}

func (m *MockPort) Write(p []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WrittenData = append(m.WrittenData, p...)
	return len(p), nil
}

func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsClosed reports whether Close has been called.
func (m *MockPort) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
