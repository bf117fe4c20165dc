package record

import (
	"testing"
)

func TestCompareOID(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"equal", "1.3.6.1.2.1", "1.3.6.1.2.1", 0},
		{"less in last arc", "1.3.6.1.2.1", "1.3.6.1.2.2", -1},
		{"greater in last arc", "1.3.6.1.2.3", "1.3.6.1.2.2", 1},
		{"numeric not lexical", "1.3.6.1.9", "1.3.6.1.10", -1},
		{"prefix sorts first", "1.3.6.1", "1.3.6.1.2", -1},
		{"longer sorts after", "1.3.6.1.2", "1.3.6.1", 1},
		{"leading dot ignored", ".1.3.6", "1.3.6", 0},
		{"diverge early", "1.4", "1.3.6.1.2.1", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompareOID(tt.a, tt.b); got != tt.want {
				t.Errorf("CompareOID(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestValidOID(t *testing.T) {
	valid := []string{"1.3.6.1.2.1", ".1.3.6", "0.0", "1"}
	for _, oid := range valid {
		if err := ValidOID(oid); err != nil {
			t.Errorf("ValidOID(%q) = %v, want nil", oid, err)
		}
	}

	invalid := []string{"", ".", "1.3.x.6", "1..3", "abc"}
	for _, oid := range invalid {
		if err := ValidOID(oid); err == nil {
			t.Errorf("ValidOID(%q) = nil, want error", oid)
		}
	}
}

func TestCodecFor(t *testing.T) {
	if _, ok := CodecFor("snmprec"); !ok {
		t.Error("snmprec codec should be registered")
	}
	if _, ok := CodecFor("dump"); !ok {
		t.Error("dump codec should be registered")
	}
	if _, ok := CodecFor("walk"); ok {
		t.Error("walk codec should not be registered")
	}
}

func TestSnmprecCodec_RoundTrip(t *testing.T) {
	c := SnmprecCodec{}

	rec, err := c.Decode("1.3.6.1.2.1.1.1.0|4|Linux host 4.9")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := Record{OID: "1.3.6.1.2.1.1.1.0", Tag: "4", Value: "Linux host 4.9"}
	if rec != want {
		t.Errorf("Decode() = %+v, want %+v", rec, want)
	}

	if got := c.Encode(rec); got != "1.3.6.1.2.1.1.1.0|4|Linux host 4.9" {
		t.Errorf("Encode() = %q", got)
	}
}

func TestSnmprecCodec_VariationTag(t *testing.T) {
	c := SnmprecCodec{}
	rec, err := c.Decode("1.3.6.1.2.1.2.2|2:multiplex|dir=snapshots/ifmib,period=30")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if rec.Tag != "2:multiplex" {
		t.Errorf("Tag = %q, want 2:multiplex", rec.Tag)
	}
	if rec.Value != "dir=snapshots/ifmib,period=30" {
		t.Errorf("Value = %q", rec.Value)
	}
}

func TestSnmprecCodec_ValueMayContainPipes(t *testing.T) {
	c := SnmprecCodec{}
	rec, err := c.Decode("1.3.6.1.2.1.1.1.0|4|a|b|c")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if rec.Value != "a|b|c" {
		t.Errorf("Value = %q, want a|b|c", rec.Value)
	}
}

func TestSnmprecCodec_Malformed(t *testing.T) {
	c := SnmprecCodec{}
	for _, line := range []string{"", "1.3.6", "1.3.6|4", "not-an-oid|4|x"} {
		if _, err := c.Decode(line); err == nil {
			t.Errorf("Decode(%q) = nil error, want error", line)
		}
	}
}

func TestDumpCodec_RoundTrip(t *testing.T) {
	c := DumpCodec{}

	rec, err := c.Decode("1.3.6.1.2.1.1.3.0|12345")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if rec.OID != "1.3.6.1.2.1.1.3.0" || rec.Value != "12345" || rec.Tag != "" {
		t.Errorf("Decode() = %+v", rec)
	}

	if got := c.Encode(rec); got != "1.3.6.1.2.1.1.3.0|12345" {
		t.Errorf("Encode() = %q", got)
	}
}

func TestDumpCodec_Malformed(t *testing.T) {
	c := DumpCodec{}
	for _, line := range []string{"", "1.3.6", "bad|x"} {
		if _, err := c.Decode(line); err == nil {
			t.Errorf("Decode(%q) = nil error, want error", line)
		}
	}
}
