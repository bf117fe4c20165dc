package record

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Index is an in-memory ordered index over one snapshot file. It maps
// each stored identifier to the byte offset of its line and supports
// exact lookup plus a search for the next identifier at or after a
// requested one, which is what ordered traversal needs.
//
// The index keeps the file handle open for positional reads; callers
// must Close it when switching snapshots or tearing a session down.
// Not safe for concurrent use: the owning session serializes access.
type Index struct {
	f       *os.File
	path    string
	codec   Codec
	entries []indexEntry
}

type indexEntry struct {
	oid    string
	offset int64
}

// OpenIndex scans the snapshot at path with the given codec and builds
// its index. Lines that fail to decode abort the build: a snapshot with
// undecodable records cannot be searched reliably.
func OpenIndex(path string, codec Codec) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}

	ix := &Index{f: f, path: path, codec: codec}

	var offset int64
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		length := int64(len(sc.Bytes())) + 1 // line plus newline
		if strings.TrimSpace(line) != "" {
			rec, err := codec.Decode(line)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("indexing %s: %w", path, err)
			}
			ix.entries = append(ix.entries, indexEntry{oid: rec.OID, offset: offset})
		}
		offset += length
	}
	if err := sc.Err(); err != nil {
		f.Close()
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}

	// Snapshots are normally stored sorted; tolerate ones that are not.
	sort.SliceStable(ix.entries, func(i, j int) bool {
		return CompareOID(ix.entries[i].oid, ix.entries[j].oid) < 0
	})

	return ix, nil
}

// Path returns the snapshot file the index was built from.
func (ix *Index) Path() string { return ix.path }

// Len returns the number of indexed records.
func (ix *Index) Len() int { return len(ix.entries) }

// Lookup returns the position of the record whose identifier matches
// oid exactly, or false if no such record is stored.
func (ix *Index) Lookup(oid string) (int, bool) {
	i := sort.Search(len(ix.entries), func(i int) bool {
		return CompareOID(ix.entries[i].oid, oid) >= 0
	})
	if i < len(ix.entries) && ix.entries[i].oid == oid {
		return i, true
	}
	return 0, false
}

// SearchNext returns the position of the first record whose identifier
// is at or after oid, or false when every stored identifier sorts
// before it.
func (ix *Index) SearchNext(oid string) (int, bool) {
	i := sort.Search(len(ix.entries), func(i int) bool {
		return CompareOID(ix.entries[i].oid, oid) >= 0
	})
	if i >= len(ix.entries) {
		return 0, false
	}
	return i, true
}

// Record reads and decodes the stored record at position i.
func (ix *Index) Record(i int) (Record, error) {
	if i < 0 || i >= len(ix.entries) {
		return Record{}, fmt.Errorf("index: position %d out of range", i)
	}
	if _, err := ix.f.Seek(ix.entries[i].offset, 0); err != nil {
		return Record{}, fmt.Errorf("seeking %s: %w", ix.path, err)
	}
	line, err := bufio.NewReader(ix.f).ReadString('\n')
	if err != nil && line == "" {
		return Record{}, fmt.Errorf("reading %s: %w", ix.path, err)
	}
	return ix.codec.Decode(line)
}

// Close releases the underlying file handle. Safe to call more than once.
func (ix *Index) Close() error {
	if ix.f == nil {
		return nil
	}
	err := ix.f.Close()
	ix.f = nil
	return err
}
