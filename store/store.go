// Package store implements ByteStore, a mutable byte sequence with per-byte
// modification tracking, change notifications and grouped undo/redo. It
// knows nothing about executables; container parsers in package image build
// an address-space view on top of it.
package store

import (
	"io/ioutil"
	"regexp"

	"github.com/pkg/errors"
)

// Tag is the modification state of a single byte position.
type Tag uint8

// Modification tags. A position transitions Original -> Changed on write,
// and is born Inserted on insert; Inserted positions never revert to
// Original by being overwritten.
const (
	Original Tag = iota
	Changed
	Inserted
)

// CursorLoc is an opaque, caller-supplied cursor descriptor saved alongside
// an undo group so that undo/redo can restore the view's cursor.
type CursorLoc interface{}

// Callback is notified synchronously after each primitive edit.
//
// kind is one of "write", "insert", "remove". For "write" and "insert",
// arg is the affected byte slice; for "remove" it is the number of bytes
// removed.
type Callback func(kind string, offset int64, arg interface{})

// edit is a single reversible primitive, recorded so it can be undone.
type edit struct {
	kind     string // "write", "insert", "remove"
	offset   int64
	oldBytes []byte // write: previous bytes; remove: removed bytes
	newBytes []byte // write: new bytes; insert: inserted bytes
	oldTags  []Tag  // write/remove: previous tags, aligned with oldBytes
}

// group is an undo group: an ordered sequence of reversible primitive edits
// tagged with before/after cursor descriptors.
type group struct {
	edits  []edit
	before CursorLoc
	after  CursorLoc
}

// ByteStore is a mutable sequence of bytes with per-byte modification state,
// callback notifications and grouped undo/redo.
type ByteStore struct {
	bytes []byte
	tags  []Tag

	pending   []edit // edits accumulated since the last commit
	undoStack []group
	redoStack []group
	watermark int // index into undoStack matching the on-disk form; -1 if never saved

	callbacks []Callback
}

// New returns a ByteStore initialized from data. The store owns a copy of
// data; mutations never alias the caller's slice.
func New(data []byte) *ByteStore {
	b := &ByteStore{
		bytes:     append([]byte(nil), data...),
		watermark: 0,
	}
	b.tags = make([]Tag, len(b.bytes))
	return b
}

// Load reads path and returns a ByteStore over its contents.
func Load(path string) (*ByteStore, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return New(data), nil
}

// AddCallback registers cb to be invoked after each primitive edit.
func (b *ByteStore) AddCallback(cb Callback) {
	b.callbacks = append(b.callbacks, cb)
}

func (b *ByteStore) notify(kind string, offset int64, arg interface{}) {
	for _, cb := range b.callbacks {
		cb(kind, offset, arg)
	}
}

// Len returns the number of bytes in the store.
func (b *ByteStore) Len() int64 {
	return int64(len(b.bytes))
}

// Start returns the start offset of the store, always 0.
func (b *ByteStore) Start() int64 { return 0 }

// End returns the end offset of the store (exclusive).
func (b *ByteStore) End() int64 { return b.Len() }

// Read returns up to length bytes starting at offset. A short read occurs
// only at end of store.
func (b *ByteStore) Read(offset int64, length int) []byte {
	if offset < 0 || offset >= int64(len(b.bytes)) || length <= 0 {
		return nil
	}
	end := offset + int64(length)
	if end > int64(len(b.bytes)) {
		end = int64(len(b.bytes))
	}
	out := make([]byte, end-offset)
	copy(out, b.bytes[offset:end])
	return out
}

// GetModification returns the modification tags for the byte range
// [offset, offset+length).
func (b *ByteStore) GetModification(offset int64, length int) []Tag {
	if offset < 0 || offset >= int64(len(b.tags)) || length <= 0 {
		return nil
	}
	end := offset + int64(length)
	if end > int64(len(b.tags)) {
		end = int64(len(b.tags))
	}
	out := make([]Tag, end-offset)
	copy(out, b.tags[offset:end])
	return out
}

// Write overwrites the byte range starting at offset with data, returning
// the number of bytes written. A write that extends past the current
// length is split into a write of the overlapping prefix followed by an
// insert of the suffix. Writing past a read-only boundary is a concept
// owned by image.ImageView, not ByteStore; ByteStore itself is never
// read-only.
func (b *ByteStore) Write(offset int64, data []byte) int {
	if offset < 0 || len(data) == 0 {
		return 0
	}
	if offset > int64(len(b.bytes)) {
		return 0
	}
	overlap := int64(len(b.bytes)) - offset
	if overlap < 0 {
		overlap = 0
	}
	if overlap > int64(len(data)) {
		overlap = int64(len(data))
	}
	written := 0
	if overlap > 0 {
		written += b.rawWrite(offset, data[:overlap])
	}
	if int64(len(data)) > overlap {
		written += b.Insert(offset+overlap, data[overlap:])
	}
	return written
}

// rawWrite overwrites an in-bounds byte range, recording the reversal.
func (b *ByteStore) rawWrite(offset int64, data []byte) int {
	n := len(data)
	oldBytes := append([]byte(nil), b.bytes[offset:offset+int64(n)]...)
	oldTags := append([]Tag(nil), b.tags[offset:offset+int64(n)]...)
	copy(b.bytes[offset:], data)
	for i := 0; i < n; i++ {
		if b.tags[offset+int64(i)] == Original {
			b.tags[offset+int64(i)] = Changed
		}
	}
	b.pending = append(b.pending, edit{
		kind:     "write",
		offset:   offset,
		oldBytes: oldBytes,
		newBytes: append([]byte(nil), data...),
		oldTags:  oldTags,
	})
	b.notify("write", offset, append([]byte(nil), data...))
	return n
}

// Insert inserts data at offset, returning the number of bytes inserted.
// Out-of-range offsets are rejected.
func (b *ByteStore) Insert(offset int64, data []byte) int {
	if offset < 0 || offset > int64(len(b.bytes)) || len(data) == 0 {
		return 0
	}
	n := len(data)
	tail := append([]byte(nil), b.bytes[offset:]...)
	b.bytes = append(b.bytes[:offset:offset], append(append([]byte(nil), data...), tail...)...)
	newTags := make([]Tag, n)
	for i := range newTags {
		newTags[i] = Inserted
	}
	tailTags := append([]Tag(nil), b.tags[offset:]...)
	b.tags = append(b.tags[:offset:offset], append(newTags, tailTags...)...)

	b.pending = append(b.pending, edit{
		kind:     "insert",
		offset:   offset,
		newBytes: append([]byte(nil), data...),
	})
	b.notify("insert", offset, append([]byte(nil), data...))
	return n
}

// Remove deletes up to length bytes starting at offset, returning the
// number of bytes removed. Removing more than available truncates to the
// bytes that exist.
func (b *ByteStore) Remove(offset int64, length int) int {
	if offset < 0 || offset >= int64(len(b.bytes)) || length <= 0 {
		return 0
	}
	end := offset + int64(length)
	if end > int64(len(b.bytes)) {
		end = int64(len(b.bytes))
	}
	n := int(end - offset)
	oldBytes := append([]byte(nil), b.bytes[offset:end]...)
	oldTags := append([]Tag(nil), b.tags[offset:end]...)

	b.bytes = append(b.bytes[:offset:offset], b.bytes[end:]...)
	b.tags = append(b.tags[:offset:offset], b.tags[end:]...)

	b.pending = append(b.pending, edit{
		kind:     "remove",
		offset:   offset,
		oldBytes: oldBytes,
		oldTags:  oldTags,
	})
	b.notify("remove", offset, n)
	return n
}

// BeginUndo starts (or continues) accumulating primitive edits into the
// pending undo group. It is a no-op beyond documentation intent: edits
// already accumulate in b.pending as they happen, so callers only need to
// bracket a user action with BeginUndo/CommitUndo to give it a cursor
// descriptor.
func (b *ByteStore) BeginUndo() {
	// pending is already being accumulated; nothing to reset here so that
	// edits issued before BeginUndo (e.g. by a caller that forgot to open a
	// group) are not silently dropped.
}

// CommitUndo closes the pending group onto the undo stack with the given
// before/after cursor descriptors, and clears the redo stack. A commit
// with no pending edits is a no-op.
func (b *ByteStore) CommitUndo(before, after CursorLoc) {
	if len(b.pending) == 0 {
		return
	}
	g := group{edits: b.pending, before: before, after: after}
	b.pending = nil
	if b.watermark > len(b.undoStack) {
		b.watermark = -1
	}
	b.undoStack = append(b.undoStack, g)
	b.redoStack = nil
}

// IsModified reports whether the store differs from its on-disk form, i.e.
// the undo stack length does not match the saved watermark.
func (b *ByteStore) IsModified() bool {
	return b.watermark != len(b.undoStack)
}

// Undo reverses the most recently committed group and returns its before
// cursor descriptor. It reports ok=false if there is nothing to undo.
func (b *ByteStore) Undo() (loc CursorLoc, ok bool) {
	if len(b.undoStack) == 0 {
		return nil, false
	}
	g := b.undoStack[len(b.undoStack)-1]
	b.undoStack = b.undoStack[:len(b.undoStack)-1]
	for i := len(g.edits) - 1; i >= 0; i-- {
		b.reverse(g.edits[i])
	}
	b.redoStack = append(b.redoStack, g)
	return g.before, true
}

// Redo replays the most recently undone group and returns its after cursor
// descriptor. It reports ok=false if there is nothing to redo.
func (b *ByteStore) Redo() (loc CursorLoc, ok bool) {
	if len(b.redoStack) == 0 {
		return nil, false
	}
	g := b.redoStack[len(b.redoStack)-1]
	b.redoStack = b.redoStack[:len(b.redoStack)-1]
	for _, e := range g.edits {
		b.replay(e)
	}
	b.undoStack = append(b.undoStack, g)
	return g.after, true
}

// reverse undoes a single primitive edit in place, without touching the
// undo/redo stacks or emitting pending-edit bookkeeping.
func (b *ByteStore) reverse(e edit) {
	switch e.kind {
	case "write":
		copy(b.bytes[e.offset:], e.oldBytes)
		copy(b.tags[e.offset:], e.oldTags)
		b.notify("write", e.offset, append([]byte(nil), e.oldBytes...))
	case "insert":
		n := int64(len(e.newBytes))
		b.bytes = append(b.bytes[:e.offset:e.offset], b.bytes[e.offset+n:]...)
		b.tags = append(b.tags[:e.offset:e.offset], b.tags[e.offset+n:]...)
		b.notify("remove", e.offset, int(n))
	case "remove":
		tail := append([]byte(nil), b.bytes[e.offset:]...)
		b.bytes = append(b.bytes[:e.offset:e.offset], append(append([]byte(nil), e.oldBytes...), tail...)...)
		tailTags := append([]Tag(nil), b.tags[e.offset:]...)
		b.tags = append(b.tags[:e.offset:e.offset], append(append([]Tag(nil), e.oldTags...), tailTags...)...)
		b.notify("insert", e.offset, append([]byte(nil), e.oldBytes...))
	}
}

// replay re-applies a single primitive edit forward.
func (b *ByteStore) replay(e edit) {
	switch e.kind {
	case "write":
		copy(b.bytes[e.offset:], e.newBytes)
		for i := range e.newBytes {
			if b.tags[e.offset+int64(i)] == Original {
				b.tags[e.offset+int64(i)] = Changed
			}
		}
		b.notify("write", e.offset, append([]byte(nil), e.newBytes...))
	case "insert":
		tail := append([]byte(nil), b.bytes[e.offset:]...)
		b.bytes = append(b.bytes[:e.offset:e.offset], append(append([]byte(nil), e.newBytes...), tail...)...)
		newTags := make([]Tag, len(e.newBytes))
		for i := range newTags {
			newTags[i] = Inserted
		}
		tailTags := append([]Tag(nil), b.tags[e.offset:]...)
		b.tags = append(b.tags[:e.offset:e.offset], append(newTags, tailTags...)...)
		b.notify("insert", e.offset, append([]byte(nil), e.newBytes...))
	case "remove":
		n := int64(len(e.oldBytes))
		b.bytes = append(b.bytes[:e.offset:e.offset], b.bytes[e.offset+n:]...)
		b.tags = append(b.tags[:e.offset:e.offset], b.tags[e.offset+n:]...)
		b.notify("remove", e.offset, int(n))
	}
}

// Find returns the offset of the first match of pattern at or after start,
// or -1 if there is no match.
func (b *ByteStore) Find(pattern string, start int64) (int64, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return -1, errors.WithStack(err)
	}
	if start < 0 {
		start = 0
	}
	if start >= int64(len(b.bytes)) {
		return -1, nil
	}
	loc := re.FindIndex(b.bytes[start:])
	if loc == nil {
		return -1, nil
	}
	return start + int64(loc[0]), nil
}

// Save writes the store's current contents to path and resets the
// unmodified watermark.
func (b *ByteStore) Save(path string) error {
	if err := ioutil.WriteFile(path, b.bytes, 0644); err != nil {
		return errors.WithStack(err)
	}
	b.watermark = len(b.undoStack)
	return nil
}
