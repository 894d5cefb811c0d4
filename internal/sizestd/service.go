package sizestd

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"gonogo/pkg/domain"
	dErrors "gonogo/pkg/domain-errors"
)

// Store persists the mutable size standard table.
type Store interface {
	// UpsertAll writes every row, replacing existing rows with the same NAICS code.
	UpsertAll(ctx context.Context, rows []Standard) error
	List(ctx context.Context) ([]Standard, error)
}

// Service resolves size standards and determines size verdicts.
//
// Determinations read an in-memory snapshot of the table so they never block
// on storage. Load fills the snapshot at startup and Import refreshes it after a
// successful write.
type Service struct {
	store  Store
	logger *slog.Logger

	mu       sync.RWMutex
	table    map[domain.NAICSCode]Standard
	defaults map[domain.NAICSCode]Standard
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithDefaults replaces the built-in fallback table.
func WithDefaults(rows []Standard) Option {
	return func(s *Service) {
		s.defaults = index(rows)
	}
}

// New constructs a Service with an empty table snapshot.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		table:    map[domain.NAICSCode]Standard{},
		defaults: index(defaultStandards),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the snapshot with the stored table.
func (s *Service) Load(ctx context.Context) error {
	rows, err := s.store.List(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeStorage, "failed to load size standards")
	}
	s.mu.Lock()
	s.table = index(rows)
	s.mu.Unlock()
	if s.logger != nil {
		s.logger.InfoContext(ctx, "size standards loaded", "rows", len(rows))
	}
	return nil
}

// Lookup resolves the standard for code: the table first, then the defaults.
func (s *Service) Lookup(code domain.NAICSCode) (Standard, Source, bool) {
	s.mu.RLock()
	row, ok := s.table[code]
	s.mu.RUnlock()
	if ok {
		return row, SourceTable, true
	}
	if row, ok := s.defaults[code]; ok {
		return row, SourceDefault, true
	}
	return Standard{}, "", false
}

// Determine resolves the standard for code and compares basis against it.
func (s *Service) Determine(code domain.NAICSCode, basis *SizeBasis) Determination {
	row, source, ok := s.Lookup(code)
	if !ok {
		return Determine(code, basis, nil, "")
	}
	return Determine(code, basis, &row, source)
}

// Import validates and upserts rows keyed by NAICS code. Re-importing a code
// overwrites its row. Nothing is written when any row is invalid.
func (s *Service) Import(ctx context.Context, rows []Standard) (int, error) {
	if len(rows) == 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "no size standard rows to import")
	}
	// Last row wins for duplicate codes within one import.
	byCode := make(map[domain.NAICSCode]Standard, len(rows))
	for i, row := range rows {
		if err := row.Validate(); err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeValidation, rowError(i, err))
		}
		byCode[row.NAICS] = row
	}
	deduped := sortedRows(byCode)

	if err := s.store.UpsertAll(ctx, deduped); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeStorage, "failed to store size standards")
	}

	s.mu.Lock()
	next := make(map[domain.NAICSCode]Standard, len(s.table)+len(deduped))
	for k, v := range s.table {
		next[k] = v
	}
	for _, row := range deduped {
		next[row.NAICS] = row
	}
	s.table = next
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.InfoContext(ctx, "size standards imported", "rows", len(deduped))
	}
	return len(deduped), nil
}

// List returns the effective table: stored rows merged over the defaults, sorted by code.
func (s *Service) List() []Standard {
	merged := make(map[domain.NAICSCode]Standard, len(s.defaults))
	for k, v := range s.defaults {
		merged[k] = v
	}
	s.mu.RLock()
	for k, v := range s.table {
		merged[k] = v
	}
	s.mu.RUnlock()
	return sortedRows(merged)
}

func index(rows []Standard) map[domain.NAICSCode]Standard {
	m := make(map[domain.NAICSCode]Standard, len(rows))
	for _, r := range rows {
		m[r.NAICS] = r
	}
	return m
}

func sortedRows(m map[domain.NAICSCode]Standard) []Standard {
	out := make([]Standard, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NAICS < out[j].NAICS })
	return out
}

func rowError(i int, err error) string {
	msg := dErrors.Message(err)
	if msg == "" {
		msg = err.Error()
	}
	return fmt.Sprintf("row %d: %s", i+1, msg)
}
