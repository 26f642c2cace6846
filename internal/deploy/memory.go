package deploy

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// Entry is one file recorded by a Memory sink.
type Entry struct {
	Target  string
	Content []byte
}

// Memory is an in-memory sink that records every file it receives, in
// order. Nothing is written to disk and an empty target is accepted, which
// makes it the target of choice for previews and tests.
//
// The sink is safe for concurrent use; the mutex only guards the entry
// list.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemory creates an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

// Save implements Sink.
func (m *Memory) Save(_ context.Context, content []byte, target string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Entry{Target: target, Content: append([]byte(nil), content...)})
	return nil
}

// Copy implements Sink by recording the source file's content.
func (m *Memory) Copy(ctx context.Context, source, target string) error {
	content, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("failed to read '%s': %w", source, err)
	}
	return m.Save(ctx, content, target)
}

// Entries returns a snapshot of the recorded files.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

// Lookup returns the last content recorded for target.
func (m *Memory) Lookup(target string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].Target == target {
			return m.entries[i].Content, true
		}
	}
	return nil, false
}
