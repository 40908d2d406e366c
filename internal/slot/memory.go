package slot

import (
	"context"
	"fmt"
	"sync"
)

// MemorySlot keeps values in process memory.
type MemorySlot struct {
	mu     sync.RWMutex
	values map[string][]byte
	closed bool
}

// NewMemorySlot creates an empty MemorySlot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{
		values: make(map[string][]byte),
	}
}

// Read returns a copy of the value stored under key.
func (m *MemorySlot) Read(ctx context.Context, key string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("read slot: %w", ctx.Err())
	default:
	}

	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	value, ok := m.values[key]
	if !ok {
		return nil, ErrNotExist
	}

	return append([]byte(nil), value...), nil
}

// Write stores a copy of data under key.
func (m *MemorySlot) Write(ctx context.Context, key string, data []byte) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("write slot: %w", ctx.Err())
	default:
	}

	if err := ValidateKey(key); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	m.values[key] = append([]byte(nil), data...)

	return nil
}

// Close marks the slot closed.
func (m *MemorySlot) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}
