package variate

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/murrant/snmpsim/internal/clock"
	"github.com/murrant/snmpsim/internal/record"
	"github.com/murrant/snmpsim/internal/state"
)

// MultiplexConfig is the parsed multiplex settings for one subtree.
// Immutable after parsing.
type MultiplexConfig struct {
	// Dir is the snapshot directory, resolved to an absolute or
	// root-relative path that exists.
	Dir string
	// Period is the rotation period in seconds.
	Period float64
	// Wrap allows the selection to move backward when the rotation
	// cycle wraps around. Without it the selected file only advances.
	Wrap bool
	// Control, when set, designates a writable identifier that pins the
	// active snapshot explicitly and disables time-based rotation.
	Control string
}

const defaultPeriodSeconds = 60

// ParseMultiplexConfig parses the settings string of a multiplex entry.
// Relative directories are resolved against the given search roots; the
// first root containing the directory wins. All validation happens
// here, at session setup, never per request.
func ParseMultiplexConfig(settings string, roots []string) (*MultiplexConfig, error) {
	kv, err := splitSettings(settings)
	if err != nil {
		return nil, fmt.Errorf("multiplex: %w", err)
	}

	dir, ok := kv["dir"]
	if !ok || dir == "" {
		return nil, fmt.Errorf("multiplex: snapshot directory not specified")
	}
	dir = strings.ReplaceAll(dir, "/", string(os.PathSeparator))

	if !filepath.IsAbs(dir) {
		resolved := ""
		for _, root := range roots {
			d := filepath.Join(root, dir)
			if _, err := os.Stat(d); err == nil {
				resolved = d
				break
			}
		}
		if resolved == "" {
			return nil, fmt.Errorf("multiplex: directory %s not found under any data root", dir)
		}
		dir = resolved
	} else if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("multiplex: directory %s not found", dir)
	}

	cfg := &MultiplexConfig{Dir: dir, Period: defaultPeriodSeconds}

	if raw, ok := kv["period"]; ok {
		cfg.Period, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("multiplex: bad period %q: %w", raw, err)
		}
		if cfg.Period <= 0 {
			return nil, fmt.Errorf("multiplex: period must be positive, got %v", cfg.Period)
		}
	}
	if raw, ok := kv["wrap"]; ok {
		cfg.Wrap, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("multiplex: bad wrap %q: %w", raw, err)
		}
	}
	if raw, ok := kv["control"]; ok {
		if err := record.ValidOID(raw); err != nil {
			return nil, fmt.Errorf("multiplex: bad control identifier: %w", err)
		}
		cfg.Control = raw
	}

	return cfg, nil
}

// snapshotFile is one discovered snapshot: numeric filename prefix,
// full path, and the codec its extension selected.
type snapshotFile struct {
	id    int
	path  string
	codec record.Codec
}

// scanSnapshots registers every file in dir whose extension matches a
// known codec, keyed by its numeric filename prefix. The set is
// immutable after discovery.
func scanSnapshots(dir string) ([]snapshotFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("multiplex: scanning %s: %w", dir, err)
	}

	var files []snapshotFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.TrimPrefix(filepath.Ext(name), ".")
		codec, ok := record.CodecFor(ext)
		if !ok {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSuffix(name, "."+ext))
		if err != nil {
			log.Printf("multiplex: ignoring %s: filename prefix is not numeric", name)
			continue
		}
		files = append(files, snapshotFile{
			id:    id,
			path:  filepath.Join(dir, name),
			codec: codec,
		})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("multiplex: no snapshot files in %s", dir)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].id < files[j].id })
	return files, nil
}

// SubtreeSession holds the simulation state of one monitored subtree:
// its parsed settings, the discovered snapshot set, which snapshot
// currently represents "now", and the open index over it.
//
// Exactly one session is live per subtree. Mutations (rotation, control
// pinning, index switching) are serialized by the session mutex;
// different subtrees never contend.
type SubtreeSession struct {
	mu      sync.Mutex
	subtree string
	cfg     *MultiplexConfig
	files   []snapshotFile
	clock   clock.Clock
	store   state.Store
	sink    Sink
	booted  time.Time

	fileIdx int // index into files, -1 until first selection
	index   *record.Index
}

// NewSubtreeSession scans the configured directory and builds the
// session. In control mode a previously pinned selection is restored
// from the state store when one is configured.
func NewSubtreeSession(subtree string, cfg *MultiplexConfig, c clock.Clock, booted time.Time, store state.Store, sink Sink) (*SubtreeSession, error) {
	files, err := scanSnapshots(cfg.Dir)
	if err != nil {
		return nil, err
	}

	s := &SubtreeSession{
		subtree: subtree,
		cfg:     cfg,
		files:   files,
		clock:   c,
		store:   store,
		sink:    sink,
		booted:  booted,
		fileIdx: -1,
	}

	if cfg.Control != "" {
		log.Printf("multiplex: using control OID %s for subtree %s, time-based multiplexing disabled",
			cfg.Control, subtree)
		s.restorePinned()
	}

	return s, nil
}

// restorePinned loads a persisted control-mode selection, ignoring
// anything stale or out of range.
func (s *SubtreeSession) restorePinned() {
	if s.store == nil {
		return
	}
	val, err := s.store.Get(context.Background(), s.stateKey())
	if err != nil {
		log.Printf("multiplex: reading pinned selection for %s: %v", s.subtree, err)
		return
	}
	if val == nil {
		return
	}
	idx, err := strconv.Atoi(string(val))
	if err != nil || idx < 0 || idx >= len(s.files) {
		return
	}
	s.fileIdx = idx
}

func (s *SubtreeSession) stateKey() string {
	return "mux:" + s.subtree
}

// Resolve maps one incoming request onto the snapshot that currently
// represents "now" and resolves the requested identifier within it.
func (s *SubtreeSession) Resolve(req Request) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Set {
		return s.handleWrite(req)
	}

	if s.cfg.Control != "" {
		if s.fileIdx < 0 {
			s.fileIdx = 0
		}
		if !req.Next && req.OrigOID == s.cfg.Control {
			return Result{
				Kind:  KindValue,
				OID:   req.OrigOID,
				Tag:   req.Tag,
				Value: strconv.Itoa(s.fileIdx),
			}
		}
	} else {
		s.rotate()
	}

	return s.lookup(req)
}

// handleWrite accepts only writes to the control identifier; the value
// is a zero-based index into the sorted snapshot set.
func (s *SubtreeSession) handleWrite(req Request) Result {
	if s.cfg.Control == "" || req.OrigOID != s.cfg.Control {
		return passthrough(req)
	}

	idx, err := strconv.Atoi(req.OrigValue)
	if err != nil || idx < 0 || idx >= len(s.files) {
		log.Printf("multiplex: snapshot index %q over limit of %d", req.OrigValue, len(s.files))
		return passthrough(req)
	}

	s.fileIdx = idx
	s.persistPinned(idx)

	f := s.files[idx]
	log.Printf("multiplex: switched to file #%d (%s)", f.id, f.path)
	emit(s.sink, Event{
		Time:    s.clock.Now(),
		Module:  "multiplex",
		Subtree: s.subtree,
		OID:     req.OrigOID,
		Kind:    "pin",
		Detail:  f.path,
	})

	return Result{Kind: KindValue, OID: req.OrigOID, Tag: req.Tag, Value: req.OrigValue}
}

func (s *SubtreeSession) persistPinned(idx int) {
	if s.store == nil {
		return
	}
	err := s.store.Set(context.Background(), s.stateKey(), []byte(strconv.Itoa(idx)), 0)
	if err != nil {
		log.Printf("multiplex: persisting pinned selection for %s: %v", s.subtree, err)
	}
}

// rotate computes which snapshot represents "now" under periodic mode
// and updates the selection. The selection only moves backward when
// wraparound is enabled; otherwise it is monotonically non-decreasing.
// Must be called with s.mu held.
func (s *SubtreeSession) rotate() {
	period := s.cfg.Period
	uptime := s.clock.Since(s.booted).Seconds()
	cycle := period * float64(len(s.files))

	timeslot := math.Mod(uptime, cycle)
	fileslot := int(timeslot/period) + s.files[0].id

	// Greatest registered id at or below the slot.
	idx := sort.Search(len(s.files), func(i int) bool {
		return s.files[i].id > fileslot
	}) - 1
	if idx < 0 {
		idx = 0
	}

	if s.fileIdx < 0 || idx > s.fileIdx || s.cfg.Wrap {
		s.fileIdx = idx
	}
}

// lookup opens the selected snapshot's index if it is not the current
// one and resolves the requested identifier with exact- or next-match
// semantics. Must be called with s.mu held.
func (s *SubtreeSession) lookup(req Request) Result {
	f := s.files[s.fileIdx]

	if s.index == nil || s.index.Path() != f.path {
		if s.index != nil {
			s.index.Close()
			s.index = nil
		}
		ix, err := record.OpenIndex(f.path, f.codec)
		if err != nil {
			log.Printf("multiplex: %v", err)
			return passthrough(req)
		}
		s.index = ix
		log.Printf("multiplex: switching to data file %s for %s", f.path, req.OrigOID)
		emit(s.sink, Event{
			Time:    s.clock.Now(),
			Module:  "multiplex",
			Subtree: s.subtree,
			OID:     req.OrigOID,
			Kind:    "switch",
			Detail:  f.path,
		})
	}

	pos, exact := s.index.Lookup(req.OrigOID)
	if !exact {
		next, ok := s.index.SearchNext(req.OrigOID)
		if !ok {
			return passthrough(req)
		}
		pos = next
	}

	if req.Next {
		// An exact hit on a traversal request advances to the record
		// that follows it.
		if exact {
			pos++
		}
	} else if !exact {
		return passthrough(req)
	}

	if pos >= s.index.Len() {
		return passthrough(req)
	}

	rec, err := s.index.Record(pos)
	if err != nil {
		log.Printf("multiplex: %v", err)
		return passthrough(req)
	}

	return Result{Kind: KindValue, OID: rec.OID, Tag: req.Tag, Value: rec.Value}
}

// Info reports the session's configuration and current selection.
func (s *SubtreeSession) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := SessionInfo{
		Subtree: s.subtree,
		Dir:     s.cfg.Dir,
		Period:  s.cfg.Period,
		Wrap:    s.cfg.Wrap,
		Control: s.cfg.Control,
		Files:   len(s.files),
		FileID:  -1,
	}
	if s.fileIdx >= 0 {
		info.FileID = s.files[s.fileIdx].id
		info.Path = s.files[s.fileIdx].path
	}
	return info
}

// Close releases the open snapshot index, if any.
func (s *SubtreeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index == nil {
		return nil
	}
	err := s.index.Close()
	s.index = nil
	return err
}

// SessionInfo is a point-in-time snapshot of one subtree session,
// served by the debug API.
type SessionInfo struct {
	Subtree string  `json:"subtree"`
	Dir     string  `json:"dir"`
	Period  float64 `json:"period"`
	Wrap    bool    `json:"wrap"`
	Control string  `json:"control,omitempty"`
	Files   int     `json:"files"`
	FileID  int     `json:"file_id"` // -1 until first selection
	Path    string  `json:"path,omitempty"`
}

// Selector owns one SubtreeSession per monitored subtree, creating each
// lazily from the settings string of the first request that touches it.
type Selector struct {
	roots  []string
	clock  clock.Clock
	store  state.Store
	sink   Sink
	booted time.Time

	mu       sync.Mutex
	sessions map[string]*SubtreeSession
	broken   map[string]bool
}

// SelectorOption customizes a Selector.
type SelectorOption func(*Selector)

// WithStore persists control-mode selections in st.
func WithStore(st state.Store) SelectorOption {
	return func(s *Selector) { s.store = st }
}

// WithSink streams simulation events to sink.
func WithSink(sink Sink) SelectorOption {
	return func(s *Selector) { s.sink = sink }
}

// NewSelector creates a Selector resolving relative snapshot
// directories against roots. Uptime is measured from this call.
func NewSelector(roots []string, c clock.Clock, opts ...SelectorOption) *Selector {
	s := &Selector{
		roots:    roots,
		clock:    c,
		booted:   c.Now(),
		sessions: make(map[string]*SubtreeSession),
		broken:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve routes one request to the subtree's session, creating it from
// req.Value (the multiplex settings string) on first use. Any setup
// failure is logged once and every request for that subtree passes
// through from then on.
func (s *Selector) Resolve(subtree string, req Request) Result {
	sess, ok := s.session(subtree, req.Value)
	if !ok {
		return passthrough(req)
	}
	return sess.Resolve(req)
}

// Register eagerly creates the session for subtree from its settings
// string, surfacing setup failures that Resolve would swallow into a
// passthrough.
func (s *Selector) Register(subtree, settings string) error {
	cfg, err := ParseMultiplexConfig(settings, s.roots)
	if err != nil {
		return err
	}
	sess, err := NewSubtreeSession(subtree, cfg, s.clock, s.booted, s.store, s.sink)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.sessions[subtree]; ok {
		old.Close()
	}
	s.sessions[subtree] = sess
	delete(s.broken, subtree)
	return nil
}

func (s *Selector) session(subtree, settings string) (*SubtreeSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[subtree]; ok {
		return sess, true
	}
	if s.broken[subtree] {
		return nil, false
	}

	cfg, err := ParseMultiplexConfig(settings, s.roots)
	if err != nil {
		log.Printf("%v", err)
		s.broken[subtree] = true
		return nil, false
	}
	sess, err := NewSubtreeSession(subtree, cfg, s.clock, s.booted, s.store, s.sink)
	if err != nil {
		log.Printf("%v", err)
		s.broken[subtree] = true
		return nil, false
	}

	s.sessions[subtree] = sess
	return sess, true
}

// Sessions lists the live subtree sessions.
func (s *Selector) Sessions() []SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		infos = append(infos, sess.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return record.CompareOID(infos[i].Subtree, infos[j].Subtree) < 0
	})
	return infos
}

// Close tears down every session, releasing snapshot handles.
func (s *Selector) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var first error
	for _, sess := range s.sessions {
		if err := sess.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.sessions = make(map[string]*SubtreeSession)
	return first
}
