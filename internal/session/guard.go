package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"

	"github.com/makstark/studio-web/internal/apperr"
)

const msgBusy = "A request is already in progress. Please wait."

// Guard allows one in-flight action per session and scope. A second caller
// is rejected with an apperr busy error, never queued.
type Guard struct {
	locker *redislock.Client
	scope  string
	ttl    time.Duration
	log    logrus.FieldLogger
}

// NewGuard creates a guard whose locks expire after ttl if never released.
// A nil locker yields a guard that never blocks.
func NewGuard(locker *redislock.Client, scope string, ttl time.Duration, log logrus.FieldLogger) *Guard {
	return &Guard{locker: locker, scope: scope, ttl: ttl, log: log}
}

// Key is the Redis key guarding sessionID.
func (g *Guard) Key(sessionID string) string {
	return fmt.Sprintf("lock:%s:%s", g.scope, sessionID)
}

// Acquire takes the lock for sessionID. The returned func releases it.
func (g *Guard) Acquire(ctx context.Context, sessionID string) (func(), error) {
	if g == nil || g.locker == nil {
		return func() {}, nil
	}

	l, err := g.locker.Obtain(ctx, g.Key(sessionID), g.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, apperr.Wrap(apperr.KindBusy, msgBusy, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain %s lock: %w", g.scope, err)
	}
	return func() {
		// a cancelled request must still free the lock
		if err := l.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			g.log.WithError(err).WithField("scope", g.scope).Warn("failed to release session lock")
		}
	}, nil
}
