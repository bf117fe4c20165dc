package record

import (
	"fmt"
	"strings"
)

// SnmprecCodec handles the pipe-delimited three-field flavor:
//
//	<oid>|<tag>|<value>
//
// The tag may carry a variation-module suffix (e.g. "2:delay"); the
// codec passes it through untouched.
type SnmprecCodec struct{}

func (SnmprecCodec) Ext() string { return "snmprec" }

func (SnmprecCodec) Decode(line string) (Record, error) {
	parts := strings.SplitN(strings.TrimRight(line, "\r\n"), "|", 3)
	if len(parts) != 3 {
		return Record{}, fmt.Errorf("snmprec: malformed line %q", line)
	}
	if err := ValidOID(parts[0]); err != nil {
		return Record{}, fmt.Errorf("snmprec: %w", err)
	}
	return Record{OID: parts[0], Tag: parts[1], Value: parts[2]}, nil
}

func (SnmprecCodec) Encode(r Record) string {
	return r.OID + "|" + r.Tag + "|" + r.Value
}
