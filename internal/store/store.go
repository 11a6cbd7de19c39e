package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/apperr"
	"storefront/pkg/logger"

	"go.uber.org/zap"
)

const DefaultLockTimeout = 5 * time.Second

var emptyCollection = []byte("[]")

// Observer receives timing information from the store
type Observer interface {
	ObserveCommit(collections []string, d time.Duration, err error)
	ObserveLockWait(collection string, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveCommit([]string, time.Duration, error) {}
func (nopObserver) ObserveLockWait(string, time.Duration)        {}

// Store is the only component that touches backing storage
type Store struct {
	backend Backend
	locks   *Locker
	obs     Observer
}

type Option func(*Store)

func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.locks.timeout = d }
}

func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.obs = o
		}
	}
}

func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		locks:   NewLocker(DefaultLockTimeout),
		obs:     nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.locks.onWait = func(name string, d time.Duration) { s.obs.ObserveLockWait(name, d) }
	return s
}

// Init creates every named collection that does not exist yet as an empty array
func (s *Store) Init(ctx context.Context, names ...string) error {
	return s.Update(ctx, names, func(tx *Tx) error {
		for _, name := range names {
			if _, err := tx.Raw(name); err != nil {
				return err
			}
		}
		return nil
	})
}

// View runs fn with shared locks on names. fn may only read.
func (s *Store) View(ctx context.Context, names []string, fn func(tx *Tx) error) error {
	release, err := s.locks.Acquire(ctx, names, false)
	if err != nil {
		return err
	}
	defer release()

	return fn(newTx(ctx, s.backend, names, false))
}

// Update runs fn with exclusive locks on names held across load, mutate and
// commit. Collections staged by fn are committed together when fn returns
// nil; nothing is written when it returns an error.
func (s *Store) Update(ctx context.Context, names []string, fn func(tx *Tx) error) error {
	release, err := s.locks.Acquire(ctx, names, true)
	if err != nil {
		return err
	}
	defer release()

	tx := newTx(ctx, s.backend, names, true)
	if err := fn(tx); err != nil {
		return err
	}
	if len(tx.staged) == 0 {
		return nil
	}

	staged := sortedNames(tx.staged)
	start := time.Now()
	err = s.backend.Commit(ctx, tx.staged)
	s.obs.ObserveCommit(staged, time.Since(start), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to commit collections",
			zap.Strings("collections", staged),
			zap.Error(err))
		return apperr.Storage(err, "commit %v", staged)
	}
	logger.FromContext(ctx).Debug("Collections committed",
		zap.Strings("collections", staged),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (s *Store) Close() error {
	return s.backend.Close()
}

// Tx is the view of the locked collections inside View or Update
type Tx struct {
	ctx      context.Context
	backend  Backend
	scope    map[string]struct{}
	writable bool
	staged   map[string][]byte
	read     map[string][]byte
}

func newTx(ctx context.Context, backend Backend, names []string, writable bool) *Tx {
	scope := make(map[string]struct{}, len(names))
	for _, name := range names {
		scope[name] = struct{}{}
	}
	return &Tx{
		ctx:      ctx,
		backend:  backend,
		scope:    scope,
		writable: writable,
		staged:   make(map[string][]byte),
		read:     make(map[string][]byte),
	}
}

func (tx *Tx) Context() context.Context { return tx.ctx }

// Raw returns the current body of a collection, including writes staged in
// this transaction. A missing collection reads as an empty array and, in a
// writable transaction, is staged for creation.
func (tx *Tx) Raw(name string) ([]byte, error) {
	if _, ok := tx.scope[name]; !ok {
		return nil, fmt.Errorf("store: collection %q is not locked by this transaction", name)
	}
	if data, ok := tx.staged[name]; ok {
		return data, nil
	}
	if data, ok := tx.read[name]; ok {
		return data, nil
	}

	data, err := tx.backend.Read(tx.ctx, name)
	switch {
	case errors.Is(err, ErrMissing):
		if tx.writable {
			tx.staged[name] = emptyCollection
		}
		return emptyCollection, nil
	case err != nil:
		return nil, apperr.Storage(err, "read %s", name)
	}
	tx.read[name] = data
	return data, nil
}

func (tx *Tx) stage(name string, data []byte) error {
	if _, ok := tx.scope[name]; !ok {
		return fmt.Errorf("store: collection %q is not locked by this transaction", name)
	}
	if !tx.writable {
		return fmt.Errorf("store: collection %q staged in a read-only transaction", name)
	}
	tx.staged[name] = data
	return nil
}

// Get decodes a collection inside tx. A body that is not a JSON array is a
// storage error and is left as is.
func Get[T any](tx *Tx, name string) ([]T, error) {
	data, err := tx.Raw(name)
	if err != nil {
		return nil, err
	}
	var records []T
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&records); err != nil {
		return nil, apperr.Storage(err, "collection %s is corrupt", name)
	}
	if dec.More() {
		return nil, apperr.Storage(errors.New("trailing data"), "collection %s is corrupt", name)
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

// Put stages records as the full new contents of a collection
func Put[T any](tx *Tx, name string, records []T) error {
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return apperr.Storage(err, "encode %s", name)
	}
	return tx.stage(name, data)
}

// Collection is a typed handle on one named collection
type Collection[T any] struct {
	store *Store
	name  string
}

func NewCollection[T any](s *Store, name string) Collection[T] {
	return Collection[T]{store: s, name: name}
}

func (c Collection[T]) Name() string { return c.name }

// Load returns the whole collection under a shared lock
func (c Collection[T]) Load(ctx context.Context) ([]T, error) {
	var records []T
	err := c.store.View(ctx, []string{c.name}, func(tx *Tx) error {
		var err error
		records, err = Get[T](tx, c.name)
		return err
	})
	return records, err
}

// Replace atomically overwrites the whole collection
func (c Collection[T]) Replace(ctx context.Context, records []T) error {
	return c.store.Update(ctx, []string{c.name}, func(tx *Tx) error {
		return Put(tx, c.name, records)
	})
}

func (c Collection[T]) Get(tx *Tx) ([]T, error) { return Get[T](tx, c.name) }

func (c Collection[T]) Put(tx *Tx, records []T) error { return Put(tx, c.name, records) }
