package record

import (
	"fmt"
	"strings"
)

// DumpCodec handles the legacy two-field flavor:
//
//	<oid>|<value>
//
// Dump files carry no type information; decoded records have an empty
// tag and encoding drops whatever tag the record holds.
type DumpCodec struct{}

func (DumpCodec) Ext() string { return "dump" }

func (DumpCodec) Decode(line string) (Record, error) {
	parts := strings.SplitN(strings.TrimRight(line, "\r\n"), "|", 2)
	if len(parts) != 2 {
		return Record{}, fmt.Errorf("dump: malformed line %q", line)
	}
	if err := ValidOID(parts[0]); err != nil {
		return Record{}, fmt.Errorf("dump: %w", err)
	}
	return Record{OID: parts[0], Value: parts[1]}, nil
}

func (DumpCodec) Encode(r Record) string {
	return r.OID + "|" + r.Value
}
