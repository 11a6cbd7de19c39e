package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"storefront/internal/apperr"

	"golang.org/x/sync/semaphore"
)

// ErrLockTimeout is wrapped by the unavailable error returned when a
// collection lock could not be acquired in time. Callers may retry.
var ErrLockTimeout = errors.New("store: timed out waiting for collection lock")

// readerWeight bounds concurrent readers of one collection; a writer takes
// the full weight.
const readerWeight = 64

// Locker hands out one reader/writer lock per collection name
type Locker struct {
	timeout time.Duration
	onWait  func(name string, waited time.Duration)

	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

func NewLocker(timeout time.Duration) *Locker {
	return &Locker{timeout: timeout, sems: make(map[string]*semaphore.Weighted)}
}

func (l *Locker) sem(name string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sems[name]
	if !ok {
		s = semaphore.NewWeighted(readerWeight)
		l.sems[name] = s
	}
	return s
}

// Acquire locks every name in sorted order, exclusively or shared. The
// returned release func must be called exactly once.
func (l *Locker) Acquire(ctx context.Context, names []string, exclusive bool) (func(), error) {
	ordered := dedupe(names)
	weight := int64(1)
	if exclusive {
		weight = readerWeight
	}

	waitCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	held := make([]*semaphore.Weighted, 0, len(ordered))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Release(weight)
		}
	}

	for _, name := range ordered {
		s := l.sem(name)
		start := time.Now()
		err := s.Acquire(waitCtx, weight)
		if l.onWait != nil {
			l.onWait(name, time.Since(start))
		}
		if err != nil {
			release()
			if ctx.Err() != nil {
				return nil, apperr.Unavailable(ctx.Err(), "waiting for %s lock", name)
			}
			return nil, apperr.Unavailable(ErrLockTimeout, "waiting for %s lock", name)
		}
		held = append(held, s)
	}
	return release, nil
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
