package store

import "bytes"

import "testing"

func TestWriteReadRoundTrip(t *testing.T) {
	b := New([]byte{0x90, 0x90, 0x90, 0x90})
	n := b.Write(1, []byte{0xCC})
	if n != 1 {
		t.Fatalf("Write() = %d, want 1", n)
	}
	got := b.Read(0, 4)
	want := []byte{0x90, 0xCC, 0x90, 0x90}
	if !bytes.Equal(got, want) {
		t.Errorf("Read() = % X, want % X", got, want)
	}
	tags := b.GetModification(0, 4)
	wantTags := []Tag{Original, Changed, Original, Original}
	for i := range wantTags {
		if tags[i] != wantTags[i] {
			t.Errorf("tag[%d] = %v, want %v", i, tags[i], wantTags[i])
		}
	}
}

func TestWriteSplitsIntoInsertPastEnd(t *testing.T) {
	b := New([]byte{0x01, 0x02})
	n := b.Write(1, []byte{0xAA, 0xBB, 0xCC})
	if n != 3 {
		t.Fatalf("Write() = %d, want 3", n)
	}
	if b.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", b.Len())
	}
	got := b.Read(0, 4)
	want := []byte{0x01, 0xAA, 0xBB, 0xCC}
	if !bytes.Equal(got, want) {
		t.Errorf("Read() = % X, want % X", got, want)
	}
	tags := b.GetModification(0, 4)
	if tags[1] != Changed {
		t.Errorf("tag[1] = %v, want Changed", tags[1])
	}
	if tags[2] != Inserted || tags[3] != Inserted {
		t.Errorf("tag[2:4] = %v, want [Inserted Inserted]", tags[2:4])
	}
}

func TestInsertedNeverRevertsToOriginal(t *testing.T) {
	b := New([]byte{0x01})
	b.Insert(1, []byte{0x02})
	b.CommitUndo(nil, nil)
	b.Write(1, []byte{0x03})
	tags := b.GetModification(0, 2)
	if tags[1] != Inserted {
		t.Errorf("tag[1] = %v, want Inserted (overwriting an inserted byte must not revert it)", tags[1])
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	orig := []byte{0x01, 0x02, 0x03, 0x04}
	b := New(append([]byte(nil), orig...))

	b.Write(0, []byte{0xFF})
	b.CommitUndo("before-write", "after-write")

	b.Insert(2, []byte{0xEE, 0xDD})
	b.CommitUndo("before-insert", "after-insert")

	b.Remove(1, 1)
	b.CommitUndo("before-remove", "after-remove")

	// undo_all
	for {
		if _, ok := b.Undo(); !ok {
			break
		}
	}
	if !bytes.Equal(b.Read(0, int(b.Len())), orig) {
		t.Fatalf("after undo_all, bytes = % X, want % X", b.Read(0, int(b.Len())), orig)
	}
	tags := b.GetModification(0, int(b.Len()))
	for i, tag := range tags {
		if tag != Original {
			t.Errorf("after undo_all, tag[%d] = %v, want Original", i, tag)
		}
	}

	// redo_all
	for {
		if _, ok := b.Redo(); !ok {
			break
		}
	}
	finalBytes := b.Read(0, int(b.Len()))
	finalTags := b.GetModification(0, int(b.Len()))

	// Reapply the same edit sequence fresh and compare.
	fresh := New(append([]byte(nil), orig...))
	fresh.Write(0, []byte{0xFF})
	fresh.CommitUndo(nil, nil)
	fresh.Insert(2, []byte{0xEE, 0xDD})
	fresh.CommitUndo(nil, nil)
	fresh.Remove(1, 1)
	fresh.CommitUndo(nil, nil)

	if !bytes.Equal(finalBytes, fresh.Read(0, int(fresh.Len()))) {
		t.Errorf("redo_all bytes = % X, want % X", finalBytes, fresh.Read(0, int(fresh.Len())))
	}
	freshTags := fresh.GetModification(0, int(fresh.Len()))
	for i := range freshTags {
		if finalTags[i] != freshTags[i] {
			t.Errorf("redo_all tag[%d] = %v, want %v", i, finalTags[i], freshTags[i])
		}
	}
}

func TestRemoveTruncatesAtEnd(t *testing.T) {
	b := New([]byte{0x01, 0x02, 0x03})
	n := b.Remove(1, 10)
	if n != 2 {
		t.Fatalf("Remove() = %d, want 2", n)
	}
	if b.Len() != 1 {
		t.Errorf("Len() = %d, want 1", b.Len())
	}
}

func TestIsModifiedWatermark(t *testing.T) {
	b := New([]byte{0x01, 0x02})
	if b.IsModified() {
		t.Fatalf("fresh store reports modified")
	}
	b.Write(0, []byte{0x02})
	b.CommitUndo(nil, nil)
	if !b.IsModified() {
		t.Errorf("after edit, IsModified() = false, want true")
	}
	b.Undo()
	if b.IsModified() {
		t.Errorf("after undoing the only edit, IsModified() = true, want false")
	}
}

func TestCallbackFiresOnEdits(t *testing.T) {
	b := New([]byte{0x01, 0x02, 0x03})
	var kinds []string
	b.AddCallback(func(kind string, offset int64, arg interface{}) {
		kinds = append(kinds, kind)
	})
	b.Write(0, []byte{0x02})
	b.Insert(1, []byte{0x09})
	b.Remove(0, 1)
	want := []string{"write", "insert", "remove"}
	if len(kinds) != len(want) {
		t.Fatalf("got %d callbacks, want %d", len(kinds), len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("callback[%d] = %q, want %q", i, kinds[i], want[i])
		}
	}
}

func TestFind(t *testing.T) {
	b := New([]byte("the quick brown fox"))
	ofs, err := b.Find("quick", 0)
	if err != nil {
		t.Fatalf("Find() error: %v", err)
	}
	if ofs != 4 {
		t.Errorf("Find() = %d, want 4", ofs)
	}
	ofs, err = b.Find("nonexistent", 0)
	if err != nil {
		t.Fatalf("Find() error: %v", err)
	}
	if ofs != -1 {
		t.Errorf("Find() = %d, want -1", ofs)
	}
}
