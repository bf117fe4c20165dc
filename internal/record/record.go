// Package record reads and writes snapshot files: static sets of
// identifier→value pairs captured from a live agent, one record per
// line, flavor selected by file extension.
package record

import (
	"fmt"
	"strconv"
	"strings"
)

// Record is one identifier→value pair from a snapshot file.
type Record struct {
	OID   string // dotted numeric identifier
	Tag   string // type tag, flavor specific, may be empty
	Value string
}

// Codec reads and writes one snapshot file flavor. Implementations are
// stateless; a single instance serves every file of its flavor.
type Codec interface {
	// Ext is the file extension the flavor is registered under.
	Ext() string
	// Decode parses one line into a Record.
	Decode(line string) (Record, error)
	// Encode formats a Record into one storable line, without the
	// trailing newline.
	Encode(r Record) string
}

// codecs maps file extension to codec. Consulted once, at directory
// scan time; each discovered file carries its codec from then on.
var codecs = map[string]Codec{
	SnmprecCodec{}.Ext(): SnmprecCodec{},
	DumpCodec{}.Ext():    DumpCodec{},
}

// CodecFor returns the codec registered for the given file extension
// (without the leading dot).
func CodecFor(ext string) (Codec, bool) {
	c, ok := codecs[ext]
	return c, ok
}

// CompareOID compares two dotted numeric identifiers arc by arc.
// It returns -1 if a sorts before b, 0 if equal, 1 otherwise.
// A shorter identifier that is a prefix of a longer one sorts first.
func CompareOID(a, b string) int {
	if a == b {
		return 0
	}
	as := strings.Split(strings.TrimPrefix(a, "."), ".")
	bs := strings.Split(strings.TrimPrefix(b, "."), ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] == bs[i] {
			continue
		}
		an, aerr := strconv.ParseUint(as[i], 10, 64)
		bn, berr := strconv.ParseUint(bs[i], 10, 64)
		if aerr != nil || berr != nil {
			// Malformed arc: fall back to lexical order.
			if as[i] < bs[i] {
				return -1
			}
			return 1
		}
		if an < bn {
			return -1
		}
		return 1
	}
	if len(as) < len(bs) {
		return -1
	}
	if len(as) > len(bs) {
		return 1
	}
	return 0
}

// ValidOID reports whether s is a well-formed dotted numeric identifier.
func ValidOID(s string) error {
	trimmed := strings.TrimPrefix(s, ".")
	if trimmed == "" {
		return fmt.Errorf("empty identifier")
	}
	for _, arc := range strings.Split(trimmed, ".") {
		if _, err := strconv.ParseUint(arc, 10, 64); err != nil {
			return fmt.Errorf("bad identifier %q: arc %q is not numeric", s, arc)
		}
	}
	return nil
}
