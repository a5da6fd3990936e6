// Package cursor tracks how far a growing log file has been consumed.
package cursor

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
)

// ReadNewBytes reads path from offset to its end and returns the bytes read
// together with the offset reached. A missing file is not an error: it
// yields no data and offset unchanged. data is nil when the appended bytes
// are empty or whitespace only. On error offset is returned unchanged.
func ReadNewBytes(path string, offset int64) (data []byte, next int64, err error) {
	raw, next, err := readFrom(path, offset)
	if err != nil {
		return nil, offset, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, next, nil
	}
	return raw, next, nil
}

func readFrom(path string, offset int64) ([]byte, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, offset, nil
	}
	if err != nil {
		return nil, offset, errors.Wrapf(err, "open %s", path)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, errors.Wrapf(err, "seek %s to %d", path, offset)
	}
	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, offset, errors.Wrapf(err, "read %s", path)
	}
	return raw, offset + int64(len(raw)), nil
}

// Chunk is the raw byte range appended to a file since the previous read.
type Chunk struct {
	Data []byte
	From int64
	To   int64
}

// Empty reports whether the chunk carries nothing but whitespace.
func (c Chunk) Empty() bool {
	return len(bytes.TrimSpace(c.Data)) == 0
}

// Tracker owns the read offset of a single file. The offset never decreases
// except through Reset.
type Tracker struct {
	mu     sync.Mutex
	path   string
	offset int64
}

// NewTracker creates a tracker positioned at the start of path.
func NewTracker(path string) *Tracker {
	return &Tracker{path: path}
}

// Path returns the tracked file path.
func (t *Tracker) Path() string {
	return t.path
}

// Offset returns the current read offset.
func (t *Tracker) Offset() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.offset
}

// Read returns everything appended since the previous read and advances the
// offset to the end reached. Whitespace-only data still advances the offset
// and is returned raw; callers check Chunk.Empty. On error the offset keeps
// its last good value.
func (t *Tracker) Read() (Chunk, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	raw, next, err := readFrom(t.path, t.offset)
	if err != nil {
		return Chunk{From: t.offset, To: t.offset}, err
	}
	chunk := Chunk{Data: raw, From: t.offset, To: next}
	t.offset = next
	return chunk, nil
}

// Reset rewinds the offset to the start of the file.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.offset = 0
}
