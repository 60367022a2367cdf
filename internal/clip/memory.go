package clip

import "sync"

// Memory is an in-process clipboard. It backs tests and the "memory"
// clipboard mode, where history is fed only through the IPC copy request.
type Memory struct {
	mu      sync.Mutex
	data    []byte
	readErr error
	reads   int
}

// NewMemory returns a Memory clipboard holding data.
func NewMemory(data []byte) *Memory {
	return &Memory{data: clone(data)}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Read() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.readErr != nil {
		return nil, m.readErr
	}
	return clone(m.data), nil
}

func (m *Memory) Write(data []byte) error {
	m.Set(data)
	return nil
}

func (m *Memory) Close() {}

// Set replaces the clipboard content.
func (m *Memory) Set(data []byte) {
	m.mu.Lock()
	m.data = clone(data)
	m.mu.Unlock()
}

// FailReads makes every subsequent Read return err. Pass nil to recover.
func (m *Memory) FailReads(err error) {
	m.mu.Lock()
	m.readErr = err
	m.mu.Unlock()
}

// Reads returns how many times Read was called.
func (m *Memory) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
