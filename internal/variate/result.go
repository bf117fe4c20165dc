// Package variate makes a static corpus of recorded snapshots behave
// like a live, time-evolving agent: it injects response latency with
// jitter and conditional drop, rotates the snapshot that represents
// "now" per monitored subtree, and captures live traffic back into
// time-rotated snapshot files.
package variate

import "time"

// Kind classifies the outcome of one variation call. Outcomes the
// original design signaled by raising exceptions are explicit values
// here; the caller switches on Kind.
type Kind int

const (
	// KindValue carries a concrete identifier/tag/value to respond with.
	KindValue Kind = iota
	// KindPassthrough instructs the caller to answer with the original
	// identifier and its error status, unchanged. Soft failures land here.
	KindPassthrough
	// KindDrop instructs the caller to send no response at all.
	KindDrop
	// KindMoreData schedules another capture pass after Wait.
	KindMoreData
	// KindNoMoreData ends the current capture pass or session.
	KindNoMoreData
	// KindContinue acknowledges a stored pair mid-pass; nothing for the
	// caller to persist.
	KindContinue
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindPassthrough:
		return "passthrough"
	case KindDrop:
		return "drop"
	case KindMoreData:
		return "more-data"
	case KindNoMoreData:
		return "no-more-data"
	case KindContinue:
		return "continue"
	default:
		return "unknown"
	}
}

// Result is the outcome of one variation call.
type Result struct {
	Kind  Kind
	OID   string
	Tag   string
	Value string
	// Wait is how long the caller should wait before scheduling the
	// next capture pass. Meaningful only for KindMoreData.
	Wait time.Duration
}

// Request carries one protocol request through a variation module.
// The host responder fills it from the incoming PDU and from its own
// lookup of the request against the main data file.
type Request struct {
	OID         string // identifier resolved by the host's own search
	Tag         string // type tag of the matched data file record
	Value       string // value field of the matched record (module settings)
	OrigOID     string // identifier the client actually asked for
	OrigValue   string // value held for that identifier (write payload on Set)
	ErrorStatus string // error status to echo on Passthrough
	Set         bool   // write request
	Next        bool   // ordered traversal request
	Exact       bool   // host lookup matched the identifier exactly
}

// passthrough echoes the original identifier and error status.
func passthrough(req Request) Result {
	return Result{
		Kind:  KindPassthrough,
		OID:   req.OrigOID,
		Tag:   req.Tag,
		Value: req.ErrorStatus,
	}
}
