package transcript

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/horesheladil/drlamiaiassistent/pkg/archive"
)

func fixedClock() func() time.Time {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
}

func TestRecorderJoinsFragments(t *testing.T) {
	var seen []Entry
	r := NewRecorder(WithClock(fixedClock()), WithOnEntry(func(e Entry) { seen = append(seen, e) }))

	r.Add(RoleUser, "How should I ", false)
	r.Add(RoleUser, "discuss inheritance?", false)
	r.Add(RoleAssistant, " Begin with ", false)
	r.Add(RoleAssistant, "values, not figures.", true)
	r.Add(RoleUser, "   ", false)
	r.Flush()

	got := r.Entries()
	if len(got) != 2 {
		t.Fatalf("entries = %+v", got)
	}
	if got[0].Role != RoleUser || got[0].Text != "How should I discuss inheritance?" {
		t.Errorf("entry 0 = %+v", got[0])
	}
	if got[1].Role != RoleAssistant || got[1].Text != "Begin with values, not figures." {
		t.Errorf("entry 1 = %+v", got[1])
	}
	if !got[0].Timestamp.Before(got[1].Timestamp) {
		t.Error("timestamps not increasing")
	}
	if len(seen) != 2 {
		t.Errorf("OnEntry called %d times", len(seen))
	}
}

func sampleRecord(id string) *Record {
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &Record{
		Session: Session{ID: id, StartedAt: ts, EndedAt: ts.Add(time.Minute), Reason: "stopped"},
		Entries: []Entry{
			{Role: RoleUser, Text: "hello", Timestamp: ts},
			{Role: RoleAssistant, Text: "good morning", Timestamp: ts.Add(time.Second)},
		},
	}
}

func testStore(t *testing.T, st Store) {
	ctx := context.Background()
	if _, err := st.Load(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load missing err = %v", err)
	}
	for _, id := range []string{"b", "a"} {
		if err := st.Save(ctx, sampleRecord(id)); err != nil {
			t.Fatal(err)
		}
	}
	short := sampleRecord("a")
	short.Entries = short.Entries[:1]
	if err := st.Save(ctx, short); err != nil {
		t.Fatal(err)
	}

	rec, err := st.Load(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.Entries) != 1 || rec.Session.Entries != 1 {
		t.Fatalf("overwritten record = %+v", rec)
	}
	if !rec.Entries[0].Timestamp.Equal(short.Entries[0].Timestamp) {
		t.Fatalf("timestamp = %v", rec.Entries[0].Timestamp)
	}

	var ids []string
	for s, err := range st.Sessions(ctx) {
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, s.ID)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("sessions = %v", ids)
	}

	if err := st.Delete(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Load(ctx, "b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load deleted err = %v", err)
	}
	if err := st.Delete(ctx, "b"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemory())
}

func TestBadgerStore(t *testing.T) {
	st, err := NewBadger(BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	testStore(t, st)
}

func TestBadgerStoreOnDisk(t *testing.T) {
	dir := t.TempDir()
	st, err := NewBadger(BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Save(context.Background(), sampleRecord("persist")); err != nil {
		t.Fatal(err)
	}
	st.Close()

	st, err = NewBadger(BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	rec, err := st.Load(context.Background(), "persist")
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.Entries) != 2 || rec.Entries[1].Text != "good morning" {
		t.Fatalf("record = %+v", rec)
	}
}

func TestBadgerRequiresDir(t *testing.T) {
	if _, err := NewBadger(BadgerOptions{}); err == nil {
		t.Fatal("expected error without dir")
	}
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	st, err := archive.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := Export(ctx, st, sampleRecord("s1")); err != nil {
		t.Fatal(err)
	}
	rc, err := st.Get(ctx, ArchiveName("s1"))
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()

	var entries []Entry
	sc := bufio.NewScanner(rc)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatal(err)
		}
		entries = append(entries, e)
	}
	if len(entries) != 2 || entries[0].Role != RoleUser {
		t.Fatalf("entries = %+v", entries)
	}
}
