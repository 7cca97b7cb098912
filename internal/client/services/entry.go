package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/asyncx"
	"github.com/dmitrijs2005/notekeeper/internal/client/backend"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

const (
	DefaultFetchTimeout  = 10 * time.Second
	DefaultSaveTimeout   = 15 * time.Second
	DefaultDeleteTimeout = 10 * time.Second

	MsgFetchTimeout  = "request timeout"
	MsgSaveTimeout   = "save timed out"
	MsgDeleteTimeout = "delete timed out"
)

// EntryState is a snapshot of the cached entries.
type EntryState struct {
	// Entries are ordered newest first.
	Entries []models.Entry
	Loading bool
	// Err is the last failure message, "" when none.
	Err string
	// Deleting is the id of the in-flight delete, "" when none.
	Deleting string
}

// Notifier interrupts the user with a message that must not go unnoticed.
type Notifier interface {
	Alert(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

func (f NotifierFunc) Alert(msg string) { f(msg) }

// EntryService owns the local list of text entries.
//
// Fetch and Refetch never return errors; failures land in State().Err.
// Save and Delete also return theirs. Every backend call is raced against a
// deadline; a call that loses keeps running and its result is dropped.
type EntryService interface {
	// Start runs the first Fetch; later calls are no-ops.
	Start(ctx context.Context)
	Fetch(ctx context.Context)
	Refetch(ctx context.Context)
	Save(ctx context.Context, content string) (models.Entry, error)
	Delete(ctx context.Context, id string) error
	State() EntryState
}

// EntryOptions configures NewEntryService. Zero values select defaults.
type EntryOptions struct {
	FetchTimeout  time.Duration
	SaveTimeout   time.Duration
	DeleteTimeout time.Duration
	Notifier      Notifier
	Logger        logging.Logger
}

type entryService struct {
	tables backend.Tables

	fetchTimeout  time.Duration
	saveTimeout   time.Duration
	deleteTimeout time.Duration
	notifier      Notifier
	log           logging.Logger

	start sync.Once

	mu    sync.Mutex
	state EntryState

	// fetchSeq numbers issued fetches; inflight holds those not yet settled.
	// saved maps ids confirmed by Save to the fetchSeq current at the time,
	// so a fetch that read the table before the insert can merge them back.
	fetchSeq uint64
	inflight map[uint64]struct{}
	saved    map[string]savedEntry
}

type savedEntry struct {
	entry models.Entry
	seq   uint64
}

func NewEntryService(tables backend.Tables, opts EntryOptions) EntryService {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = DefaultSaveTimeout
	}
	if opts.DeleteTimeout <= 0 {
		opts.DeleteTimeout = DefaultDeleteTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Notifier == nil {
		opts.Notifier = NotifierFunc(func(string) {})
	}

	return &entryService{
		tables:        tables,
		fetchTimeout:  opts.FetchTimeout,
		saveTimeout:   opts.SaveTimeout,
		deleteTimeout: opts.DeleteTimeout,
		notifier:      opts.Notifier,
		log:           opts.Logger.With("service", "entries"),
		state:         EntryState{Entries: []models.Entry{}, Loading: true},
		inflight:      make(map[uint64]struct{}),
		saved:         make(map[string]savedEntry),
	}
}

func (s *entryService) Start(ctx context.Context) {
	s.start.Do(func() { s.Fetch(ctx) })
}

func (s *entryService) State() EntryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Entries = append([]models.Entry(nil), s.state.Entries...)
	if st.Entries == nil {
		st.Entries = []models.Entry{}
	}
	return st
}

func (s *entryService) Fetch(ctx context.Context) {
	s.mu.Lock()
	s.state.Loading = true
	s.state.Err = ""
	s.fetchSeq++
	seq := s.fetchSeq
	s.inflight[seq] = struct{}{}
	s.mu.Unlock()

	rows, err := asyncx.Race(ctx, s.fetchTimeout, asyncx.NewTimeoutError(MsgFetchTimeout),
		func(ctx context.Context) ([]models.Entry, error) {
			var rows []models.Entry
			q := backend.Query{}.OrderBy("created_at", false)
			if err := s.tables.Select(ctx, models.EntriesTable, q, &rows); err != nil {
				return nil, err
			}
			return rows, nil
		})

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, seq)
	defer s.pruneSaved()
	s.state.Loading = false
	if err != nil {
		s.log.Error(ctx, "fetch entries failed", "error", err)
		s.state.Err = err.Error()
		s.state.Entries = []models.Entry{}
		return
	}
	if rows == nil {
		rows = []models.Entry{}
	}
	s.log.Debug(ctx, "entries fetched", "count", len(rows))
	s.state.Entries = s.mergeSaved(rows, seq)
}

// mergeSaved adds entries saved since fetch seq was issued that rows lacks.
// Callers hold mu.
func (s *entryService) mergeSaved(rows []models.Entry, seq uint64) []models.Entry {
	have := make(map[string]struct{}, len(rows))
	for _, e := range rows {
		have[e.ID] = struct{}{}
	}
	merged := false
	for id, se := range s.saved {
		if se.seq < seq {
			continue
		}
		if _, ok := have[id]; ok {
			continue
		}
		rows = append(rows, se.entry)
		merged = true
	}
	if merged {
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		})
	}
	return rows
}

// pruneSaved forgets saves no in-flight fetch can have missed. Callers hold mu.
func (s *entryService) pruneSaved() {
	oldest := s.fetchSeq + 1
	for seq := range s.inflight {
		if seq < oldest {
			oldest = seq
		}
	}
	for id, se := range s.saved {
		if se.seq < oldest {
			delete(s.saved, id)
		}
	}
}

func (s *entryService) Refetch(ctx context.Context) {
	s.Fetch(ctx)
}

func (s *entryService) Save(ctx context.Context, content string) (models.Entry, error) {
	s.mu.Lock()
	s.state.Err = ""
	s.mu.Unlock()

	e, err := asyncx.Race(ctx, s.saveTimeout, asyncx.NewTimeoutError(MsgSaveTimeout),
		func(ctx context.Context) (models.Entry, error) {
			var e models.Entry
			err := s.tables.Insert(ctx, models.EntriesTable, models.NewEntry{Content: content}, &e)
			return e, err
		})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.log.Error(ctx, "save entry failed", "error", err)
		s.state.Err = err.Error()
		return models.Entry{}, fmt.Errorf("save entry: %w", err)
	}

	s.log.Info(ctx, "entry saved", "id", e.ID)
	s.state.Entries = append([]models.Entry{e}, s.state.Entries...)
	if len(s.inflight) > 0 {
		s.saved[e.ID] = savedEntry{entry: e, seq: s.fetchSeq}
	}
	return e, nil
}

func (s *entryService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	s.state.Deleting = id
	s.state.Err = ""
	s.mu.Unlock()

	_, err := asyncx.Race(ctx, s.deleteTimeout, asyncx.NewTimeoutError(MsgDeleteTimeout),
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.tables.Delete(ctx, models.EntriesTable, backend.Query{}.Eq("id", id))
		})

	s.mu.Lock()
	s.state.Deleting = ""
	if err != nil {
		s.state.Err = err.Error()
	} else {
		delete(s.saved, id)
		kept := make([]models.Entry, 0, len(s.state.Entries))
		for _, e := range s.state.Entries {
			if e.ID != id {
				kept = append(kept, e)
			}
		}
		s.state.Entries = kept
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error(ctx, "delete entry failed", "id", id, "error", err)
		s.notifier.Alert("delete failed: " + err.Error())
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	s.log.Info(ctx, "entry deleted", "id", id)
	return nil
}
