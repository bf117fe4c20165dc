package variate

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/murrant/snmpsim/internal/clock"
	"github.com/murrant/snmpsim/internal/record"
)

// CaptureOptions configures a recording session, parsed from the comma
// separated key:value options string handed to the module at startup.
type CaptureOptions struct {
	// Dir receives the rotated snapshot files. Required.
	Dir string
	// Period is the capture pass period in seconds.
	Period float64
	// Iterations is how many additional passes to run after the first.
	Iterations int
	// RecordType selects the output codec by extension name.
	RecordType string
	// Addons are raw key=value pairs passed through into the descriptor
	// record unmodified.
	Addons []string
}

const defaultCapturePeriodSeconds = 10

// ParseCaptureOptions parses the module options string for recording
// mode. Numeric failures are fatal here, at session setup.
func ParseCaptureOptions(options string) (*CaptureOptions, error) {
	opts := &CaptureOptions{
		Period:     defaultCapturePeriodSeconds,
		RecordType: record.SnmprecCodec{}.Ext(),
	}

	for _, item := range strings.Split(options, ",") {
		if item == "" {
			continue
		}
		k, v, ok := strings.Cut(item, ":")
		if !ok || k == "" {
			return nil, fmt.Errorf("multiplex: malformed option %q", item)
		}
		switch k {
		case "dir":
			opts.Dir = v
		case "period":
			p, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("multiplex: bad period %q: %w", v, err)
			}
			opts.Period = p
		case "iterations":
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("multiplex: bad iterations %q: %w", v, err)
			}
			// The first pass is implicit; iterations counts the rest.
			if n > 0 {
				opts.Iterations = n - 1
			}
		case "recordtype":
			opts.RecordType = v
		case "addon":
			opts.Addons = append(opts.Addons, v)
		default:
			log.Printf("multiplex: ignoring unknown option %q", k)
		}
	}

	return opts, nil
}

// RecordingSession captures live request/response traffic into a new,
// time-rotated snapshot set: one file per capture pass, named by a
// zero-padded sequence number and the output codec's extension.
type RecordingSession struct {
	mu    sync.Mutex
	opts  *CaptureOptions
	codec record.Codec
	clock clock.Clock

	fileNum   int
	remaining int
	passStart time.Time
	inPass    bool
	firstPass bool
	firstOID  string
	f         *os.File
}

// NewRecordingSession validates the options and prepares the output
// directory. Capture mode with no directory configured is an
// unrecoverable setup failure.
func NewRecordingSession(opts *CaptureOptions, c clock.Clock) (*RecordingSession, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("multiplex: snapshot directory not specified")
	}
	codec, ok := record.CodecFor(opts.RecordType)
	if !ok {
		return nil, fmt.Errorf("multiplex: unknown record type %q", opts.RecordType)
	}
	if _, err := os.Stat(opts.Dir); os.IsNotExist(err) {
		log.Printf("multiplex: creating %s...", opts.Dir)
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("multiplex: creating %s: %w", opts.Dir, err)
		}
	}

	return &RecordingSession{
		opts:      opts,
		codec:     codec,
		clock:     c,
		remaining: opts.Iterations,
		firstPass: true,
	}, nil
}

// Capture encodes and appends one observed pair to the open output
// file, opening the next file in sequence on the first call of a pass.
// last marks the final pair of the current pass: on the very first pass
// that yields the synthetic multiplex descriptor record for the caller
// to persist; later passes yield NoMoreData.
func (rs *RecordingSession) Capture(oid, tag, value string, last bool) (Result, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.inPass {
		rs.passStart = rs.clock.Now()
		rs.inPass = true
	}
	if rs.firstOID == "" {
		rs.firstOID = oid
	}

	if rs.f == nil {
		path := filepath.Join(rs.opts.Dir, fmt.Sprintf("%05d.%s", rs.fileNum, rs.codec.Ext()))
		f, err := os.Create(path)
		if err != nil {
			return Result{}, fmt.Errorf("multiplex: opening %s: %w", path, err)
		}
		rs.f = f
		log.Printf("multiplex: writing into %s file...", path)
	}

	line := rs.codec.Encode(record.Record{OID: oid, Tag: tag, Value: value})
	if _, err := rs.f.WriteString(line + "\n"); err != nil {
		return Result{}, fmt.Errorf("multiplex: writing record: %w", err)
	}

	if !last {
		return Result{Kind: KindContinue}, nil
	}
	if !rs.firstPass {
		return Result{Kind: KindNoMoreData}, nil
	}
	rs.firstPass = false
	return Result{
		Kind:  KindValue,
		OID:   rs.firstOID,
		Tag:   ":multiplex",
		Value: rs.descriptor(),
	}, nil
}

// descriptor builds the synthetic configuration record value that lets
// a later run replay this capture: the directory, the pass period, and
// any passthrough addon pairs.
func (rs *RecordingSession) descriptor() string {
	dir := strings.ReplaceAll(rs.opts.Dir, string(os.PathSeparator), "/")
	value := "dir=" + dir
	value += fmt.Sprintf(",period=%.2f", rs.opts.Period)
	for _, addon := range rs.opts.Addons {
		value += "," + addon
	}
	return value
}

// Stop handles the external stop signal: the current output file is
// closed, and if iterations remain the caller is told to schedule
// another pass after the remainder of the period.
func (rs *RecordingSession) Stop() Result {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.f != nil {
		rs.f.Close()
		rs.f = nil
	} else {
		rs.fileNum = 0
	}

	if rs.remaining > 0 {
		log.Printf("multiplex: %d iterations remaining", rs.remaining)
		rs.remaining--
		rs.fileNum++

		wait := time.Duration(rs.opts.Period * float64(time.Second))
		if rs.inPass {
			wait -= rs.clock.Since(rs.passStart)
			if wait < 0 {
				wait = 0
			}
		}
		rs.inPass = false

		return Result{Kind: KindMoreData, Wait: wait}
	}

	return Result{Kind: KindNoMoreData}
}
