// Package ingest accepts envelopes, verifies their checksum and appends
// them to a block store.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/dataserver/internal/block"
	"github.com/roach88/dataserver/internal/checksum"
)

// Store is the part of a block store the ingestion service writes to.
// store.BlockStore satisfies it.
type Store interface {
	Insert(ctx context.Context, rec block.Record) error
	FindByName(ctx context.Context, name string) (block.Record, bool, error)
}

// Service validates and persists envelopes.
//
// Thread-safety: Service holds no mutable state of its own and is safe for
// concurrent use as long as its Store is.
type Service struct {
	store    Store
	checksum *checksum.Engine
	ids      IDGenerator
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithClock sets the function used to stamp headers that arrive without a
// created timestamp, and retyped headers. Default: time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator sets the record ID generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Service) {
		s.ids = g
	}
}

// WithChecksum sets the checksum engine. Default: checksum.New() (MD5).
func WithChecksum(e *checksum.Engine) Option {
	return func(s *Service) {
		s.checksum = e
	}
}

// New creates a Service writing to st.
func New(st Store, opts ...Option) *Service {
	s := &Service{
		store:    st,
		checksum: checksum.New(),
		ids:      UUIDv7Generator{},
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates env, checks its checksum against the body and, on a
// match, appends a new record.
//
// The boolean reports whether a record was stored. A refused envelope
// returns false with a *block.Error (malformed, integrity mismatch or
// hashing unavailable) and has no side effects. A storage failure returns
// false with a wrapped store error.
func (s *Service) Submit(ctx context.Context, env *block.Envelope) (bool, error) {
	if err := env.Validate(); err != nil {
		s.logger.Debug("envelope rejected", "reason", err)
		return false, err
	}

	name := block.NormalizeName(env.Header.Name)

	computed, err := s.checksum.Digest(env.Body.Bytes())
	if err != nil {
		s.logger.Error("checksum unavailable", "name", name, "error", err)
		return false, block.NewHashingError(name, err)
	}
	if !s.checksum.Compare(computed, env.Checksum) {
		s.logger.Warn("checksum mismatch", "name", name, "supplied", env.Checksum, "computed", computed)
		return false, block.NewIntegrityError(name, env.Checksum, computed)
	}

	created := env.Header.CreatedTimestamp
	if created.IsZero() {
		created = s.now()
	}

	rec := block.Record{
		ID: s.ids.Generate(),
		Header: block.Header{
			Name:             name,
			BlockType:        env.Header.BlockType,
			CreatedTimestamp: created.UTC(),
		},
		Body: env.Body,
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		return false, fmt.Errorf("submit %q: %w", name, err)
	}

	s.logger.Info("block stored", "id", rec.ID, "name", name, "block_type", rec.Header.BlockType)
	return true, nil
}

// Retype stores a copy of the most recent record named name under
// newType. The original record is left in place; later lookups by name
// see the copy.
//
// An unknown newType or empty name is malformed. A name with no record
// returns false with a NOT_FOUND *block.Error.
func (s *Service) Retype(ctx context.Context, name string, newType block.BlockType) (bool, error) {
	name = block.NormalizeName(name)
	if name == "" {
		return false, block.NewMalformedError("", "name is empty")
	}
	if !newType.Valid() {
		return false, block.NewMalformedError(name, "unknown block type %q", string(newType))
	}

	existing, ok, err := s.store.FindByName(ctx, name)
	if err != nil {
		return false, fmt.Errorf("retype %q: %w", name, err)
	}
	if !ok {
		s.logger.Debug("retype target missing", "name", name)
		return false, block.NewNotFoundError(name)
	}

	sum, err := s.checksum.Digest(existing.Body.Bytes())
	if err != nil {
		s.logger.Error("checksum unavailable", "name", name, "error", err)
		return false, block.NewHashingError(name, err)
	}

	env := &block.Envelope{
		Header: &block.Header{
			Name:             name,
			BlockType:        newType,
			CreatedTimestamp: s.now(),
		},
		Body:     existing.Body,
		Checksum: sum,
	}

	s.logger.Debug("retyping block", "name", name, "from", existing.Header.BlockType, "to", newType)
	return s.Submit(ctx, env)
}
