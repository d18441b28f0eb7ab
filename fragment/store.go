package fragment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/hupe1980/tilestore/blobstore"
	"github.com/hupe1980/tilestore/codec"
	"github.com/hupe1980/tilestore/tileio"
)

// IDPrefix starts every generated fragment id.
const IDPrefix = "frag-"

type options struct {
	codec  codec.Codec
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*options)

// WithCodec sets the metadata codec. Defaults to codec.Default.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Store creates, commits and opens fragments in a blob store.
type Store struct {
	store blobstore.BlobStore
	tio   *tileio.IO
	opts  options

	mu sync.Mutex // serializes commits
}

// NewStore returns a fragment store writing tiles through tio.
// tio must be bound to the same blob store.
func NewStore(store blobstore.BlobStore, tio *tileio.IO, optFns ...Option) *Store {
	opts := options{
		codec:  codec.Default,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{store: store, tio: tio, opts: opts}
}

// newID returns IDPrefix followed by a version 7 UUID. Version 7 UUIDs lead
// with a millisecond timestamp and increase monotonically within a process,
// so ids sort in creation order.
func newID() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("fragment: new id: %w", err)
	}
	return IDPrefix + u.String(), nil
}

// NewWriter starts a new fragment.
func (s *Store) NewWriter(ctx context.Context) (*Writer, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}
	blob, err := s.store.Create(ctx, TilesBlob(id))
	if err != nil {
		return nil, fmt.Errorf("fragment %s: create tiles blob: %w", id, err)
	}
	return newWriter(s, id, blob), nil
}

// Current returns the id of the committed fragment.
func (s *Store) Current(ctx context.Context) (string, error) {
	data, err := blobstore.ReadAll(ctx, s.store, CurrentName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	id := string(bytes.TrimSpace(data))
	if id == "" {
		return "", fmt.Errorf("%w: empty %s", ErrCorrupt, CurrentName)
	}
	return id, nil
}

// Open opens the committed fragment.
func (s *Store) Open(ctx context.Context) (*Reader, error) {
	id, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.OpenFragment(ctx, id)
}

// OpenFragment opens fragment id whether or not it is current.
func (s *Store) OpenFragment(ctx context.Context, id string) (*Reader, error) {
	m, err := s.loadMetadata(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Reader{s: s, meta: m}, nil
}

func (s *Store) loadMetadata(ctx context.Context, id string) (*Metadata, error) {
	data, err := blobstore.ReadAll(ctx, s.store, MetaBlob(id))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	m, err := decodeMetadata(data)
	if err != nil {
		return nil, fmt.Errorf("fragment %s: %w", id, err)
	}
	if m.ID != id {
		return nil, fmt.Errorf("fragment %s: %w: metadata names %q", id, ErrCorrupt, m.ID)
	}
	return m, nil
}

// List returns the ids of all fragments with metadata, oldest first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	names, err := s.store.List(ctx, IDPrefix)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, name := range names {
		if id, ok := strings.CutSuffix(name, metaSuffix); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Delete removes fragment id. The current fragment cannot be deleted, and
// deleting a missing fragment returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.Current(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if cur == id {
		return fmt.Errorf("%w: %s", ErrInUse, id)
	}

	b, err := s.store.Open(ctx, MetaBlob(id))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	_ = b.Close()

	// Metadata goes first so a half-deleted fragment is never listed.
	if err := s.store.Delete(ctx, MetaBlob(id)); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, TilesBlob(id)); err != nil {
		return err
	}
	s.opts.logger.Info("deleted fragment", "fragment", id)
	return nil
}

func (s *Store) commit(ctx context.Context, m *Metadata) error {
	data, err := encodeMetadata(s.opts.codec, m)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Put(ctx, MetaBlob(m.ID), data); err != nil {
		return fmt.Errorf("fragment %s: write metadata: %w", m.ID, err)
	}
	if err := s.store.Put(ctx, CurrentName, []byte(m.ID)); err != nil {
		return fmt.Errorf("fragment %s: update %s: %w", m.ID, CurrentName, err)
	}
	s.opts.logger.Info("committed fragment",
		"fragment", m.ID,
		"tiles", len(m.Tiles),
		"bytes", m.TotalSize,
		"codec", s.opts.codec.Name(),
	)
	return nil
}
