package lock

import (
	"context"
	"errors"
	"fmt"
	"payment-reconciliation/internal/logger"
	"time"

	"github.com/go-redsync/redsync/v4"
)

var ErrLockBusy = errors.New("record is being processed")

const (
	defaultExpiry = 30 * time.Second
	defaultTries  = 16
)

// Locker serializes work on a single business record across processes.
// The returned unlock func is always non-nil when err is nil.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type RedsyncLocker struct {
	rs     *redsync.Redsync
	prefix string
	expiry time.Duration
	tries  int
	l      logger.LoggerV1
}

func NewRedsyncLocker(rs *redsync.Redsync, l logger.LoggerV1) *RedsyncLocker {
	return &RedsyncLocker{
		rs:     rs,
		prefix: "reconcile_lock:",
		expiry: defaultExpiry,
		tries:  defaultTries,
		l:      l,
	}
}

func (r *RedsyncLocker) Lock(ctx context.Context, key string) (func(), error) {
	mutex := r.rs.NewMutex(
		r.prefix+key,
		redsync.WithExpiry(r.expiry),
		redsync.WithTries(r.tries),
	)
	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.As(err, &taken) || errors.Is(err, redsync.ErrFailed) {
			return nil, fmt.Errorf("%w: %s", ErrLockBusy, key)
		}
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	return func() {
		// the caller's ctx may already be done, unlock must still go out
		if _, err := mutex.UnlockContext(context.WithoutCancel(ctx)); err != nil {
			r.l.Warn("release lock failed", logger.String("key", key), logger.Error(err))
		}
	}, nil
}

// NopLocker relies entirely on database row locks.
type NopLocker struct{}

func (NopLocker) Lock(ctx context.Context, key string) (func(), error) {
	return func() {}, nil
}
