package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
	"time"
)

// testParams keeps argon2id cheap so tests stay fast.
var testParams = HashParams{Time: 1, Memory: 1024, Threads: 1}

// memBlob is an in-memory Blob. writeErr, when set, fails every Write and
// leaves data untouched.
type memBlob struct {
	data     []byte
	present  bool
	writes   int
	writeErr error
	readErr  error
}

func (b *memBlob) Read() ([]byte, error) {
	if b.readErr != nil {
		return nil, b.readErr
	}
	if !b.present {
		return nil, fmt.Errorf("mem: %w", fs.ErrNotExist)
	}
	return append([]byte(nil), b.data...), nil
}

func (b *memBlob) Write(data []byte) error {
	if b.writeErr != nil {
		return b.writeErr
	}
	b.data = append([]byte(nil), data...)
	b.present = true
	b.writes++
	return nil
}

var errDiskFull = errors.New("disk full")

// fakeClock returns a fixed instant that only moves when told to.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T) (*Store, *memBlob, *fakeClock) {
	t.Helper()
	blob := &memBlob{}
	clock := newFakeClock()
	s := NewStore(blob)
	s.now = clock.Now
	return s, blob, clock
}

func newTestManager(t *testing.T) (*Manager, *memBlob, *memBlob) {
	t.Helper()
	entries, master := &memBlob{}, &memBlob{}
	return Open(entries, master, testParams, DefaultOptions()), entries, master
}
