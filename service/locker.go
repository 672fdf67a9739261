package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"bitwise74/fileshare-api/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ActorSystem marks lock transitions triggered by the suspicious activity
// detector rather than an admin
const ActorSystem = "system"

// Locker is the single writer of the per-user lock state. The auth layer
// consults it on every request, so reads go straight to the row and are
// never served from a cache
type Locker struct {
	db    *gorm.DB
	audit *Audit

	// Serializes transitions so exactly one audit entry is written per
	// actual state change
	mu sync.Mutex
}

func NewLocker(db *gorm.DB, audit *Audit) *Locker {
	return &Locker{
		db:    db,
		audit: audit,
	}
}

// Lock sets the user to locked. Locking an already locked user is a no-op
// success and writes no duplicate audit entry
func (l *Locker) Lock(ctx context.Context, email, actor string) error {
	return l.transition(ctx, email, actor, true)
}

// Unlock sets the user back to active. Only reachable through the
// admin-gated endpoint, there is no automatic unlock
func (l *Locker) Unlock(ctx context.Context, email, actor string) error {
	return l.transition(ctx, email, actor, false)
}

func (l *Locker) transition(ctx context.Context, email, actor string, locked bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	email = strings.ToLower(email)

	res := l.db.WithContext(ctx).
		Model(model.User{}).
		Where("email = ? AND locked = ?", email, !locked).
		Update("locked", locked)
	if res.Error != nil {
		return fmt.Errorf("%w: %s", ErrUnavailable, res.Error)
	}

	if res.RowsAffected == 0 {
		// Either the user doesn't exist or is already in the requested
		// state. The latter is idempotent success
		var n int64

		err := l.db.WithContext(ctx).
			Model(model.User{}).
			Where("email = ?", email).
			Count(&n).
			Error
		if err != nil {
			return fmt.Errorf("%w: %s", ErrUnavailable, err)
		}

		if n == 0 {
			return fmt.Errorf("%w: unknown user %s", ErrNotFound, email)
		}

		return nil
	}

	action := model.ActionLock
	if !locked {
		action = model.ActionUnlock
	}

	if _, err := l.audit.Record(ctx, email, action, "by "+actor); err != nil {
		// The state change stands. For a lock that's the safe direction,
		// and reverting an admin unlock over a log hiccup would be worse
		// than the missing entry
		zap.L().Error("Failed to audit lock transition",
			zap.String("email", email),
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}

	return nil
}

// AutoLock handles a detector signal. Unknown users are ignored, the
// detector aggregates by email and a failed login may reference an email
// that was never registered
func (l *Locker) AutoLock(email string, action model.Action, count int) {
	err := l.Lock(context.Background(), email, ActorSystem)
	if err != nil && !errors.Is(err, ErrNotFound) {
		zap.L().Error("Auto-lock failed", zap.String("email", email), zap.Error(err))
		return
	}

	zap.L().Warn("Account auto-locked",
		zap.String("email", email),
		zap.String("action", string(action)),
		zap.Int("count", count),
	)
}

// IsLocked reads the current lock state. Strongly consistent, a lock that
// committed is visible to the very next call
func (l *Locker) IsLocked(ctx context.Context, email string) (bool, error) {
	var user model.User

	err := l.db.WithContext(ctx).
		Select("locked").
		Where("email = ?", strings.ToLower(email)).
		First(&user).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("%w: unknown user", ErrNotFound)
		}
		return false, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	return user.Locked, nil
}
