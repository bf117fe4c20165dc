package record

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSnapshot(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "00000.snmprec")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatalf("writing snapshot: %v", err)
	}
	return path
}

const sampleSnapshot = `1.3.6.1.2.1.1.1.0|4|test agent
1.3.6.1.2.1.1.3.0|67|123
1.3.6.1.2.1.2.2.1.1.1|2|1
1.3.6.1.2.1.2.2.1.1.2|2|2
1.3.6.1.2.1.2.2.1.10.1|65|1000
`

func TestOpenIndex(t *testing.T) {
	ix, err := OpenIndex(writeSnapshot(t, sampleSnapshot), SnmprecCodec{})
	if err != nil {
		t.Fatalf("OpenIndex() error = %v", err)
	}
	defer ix.Close()

	if ix.Len() != 5 {
		t.Errorf("Len() = %d, want 5", ix.Len())
	}
}

func TestIndex_LookupExact(t *testing.T) {
	ix, err := OpenIndex(writeSnapshot(t, sampleSnapshot), SnmprecCodec{})
	if err != nil {
		t.Fatalf("OpenIndex() error = %v", err)
	}
	defer ix.Close()

	pos, ok := ix.Lookup("1.3.6.1.2.1.2.2.1.1.1")
	if !ok {
		t.Fatal("Lookup() should find an exact entry")
	}
	rec, err := ix.Record(pos)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if rec.OID != "1.3.6.1.2.1.2.2.1.1.1" || rec.Value != "1" {
		t.Errorf("Record() = %+v", rec)
	}

	if _, ok := ix.Lookup("1.3.6.1.2.1.9.9.9"); ok {
		t.Error("Lookup() should miss an absent identifier")
	}
}

func TestIndex_SearchNext(t *testing.T) {
	ix, err := OpenIndex(writeSnapshot(t, sampleSnapshot), SnmprecCodec{})
	if err != nil {
		t.Fatalf("OpenIndex() error = %v", err)
	}
	defer ix.Close()

	// Between 1.1.0 and 1.3.0 — next is 1.3.0.
	pos, ok := ix.SearchNext("1.3.6.1.2.1.1.2")
	if !ok {
		t.Fatal("SearchNext() should find a successor")
	}
	rec, err := ix.Record(pos)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if rec.OID != "1.3.6.1.2.1.1.3.0" {
		t.Errorf("SearchNext resolved %s, want 1.3.6.1.2.1.1.3.0", rec.OID)
	}

	// An exact identifier is its own successor position.
	pos, ok = ix.SearchNext("1.3.6.1.2.1.1.1.0")
	if !ok || pos != 0 {
		t.Errorf("SearchNext(first) = (%d, %v), want (0, true)", pos, ok)
	}

	// Past the last stored identifier.
	if _, ok := ix.SearchNext("1.3.6.1.9"); ok {
		t.Error("SearchNext() past the end should report no successor")
	}
}

func TestIndex_RecordOutOfRange(t *testing.T) {
	ix, err := OpenIndex(writeSnapshot(t, sampleSnapshot), SnmprecCodec{})
	if err != nil {
		t.Fatalf("OpenIndex() error = %v", err)
	}
	defer ix.Close()

	if _, err := ix.Record(-1); err == nil {
		t.Error("Record(-1) should fail")
	}
	if _, err := ix.Record(ix.Len()); err == nil {
		t.Error("Record(Len()) should fail")
	}
}

func TestIndex_UnsortedFile(t *testing.T) {
	unsorted := `1.3.6.1.2.1.2.2.1.1.2|2|2
1.3.6.1.2.1.1.1.0|4|out of order
1.3.6.1.2.1.2.2.1.1.1|2|1
`
	ix, err := OpenIndex(writeSnapshot(t, unsorted), SnmprecCodec{})
	if err != nil {
		t.Fatalf("OpenIndex() error = %v", err)
	}
	defer ix.Close()

	pos, ok := ix.SearchNext("1.3.6.1.2.1.0")
	if !ok {
		t.Fatal("SearchNext() should find a successor")
	}
	rec, err := ix.Record(pos)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if rec.OID != "1.3.6.1.2.1.1.1.0" {
		t.Errorf("first record = %s, want the sorted first", rec.OID)
	}
}

func TestIndex_MalformedLineFailsBuild(t *testing.T) {
	bad := "1.3.6.1.2.1.1.1.0|4|ok\nthis is not a record\n"
	if _, err := OpenIndex(writeSnapshot(t, bad), SnmprecCodec{}); err == nil {
		t.Fatal("OpenIndex() should fail on an undecodable line")
	}
}

func TestIndex_CloseIdempotent(t *testing.T) {
	ix, err := OpenIndex(writeSnapshot(t, sampleSnapshot), SnmprecCodec{})
	if err != nil {
		t.Fatalf("OpenIndex() error = %v", err)
	}
	if err := ix.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := ix.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}
