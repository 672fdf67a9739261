package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"bitwise74/fileshare-api/model"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Observer is notified once per committed activity log entry, in commit
// order. Observers are best-effort and must never fail the action that
// produced the entry
type Observer interface {
	Observe(e model.ActivityLogEntry)
}

// Audit is the append-only log of security-relevant events. Entries are
// never updated or deleted
type Audit struct {
	db *gorm.DB

	// Serializes appends so CreatedAt/ID stay non-decreasing in insertion
	// order and observers see entries exactly as committed
	mu        sync.Mutex
	observers []Observer
}

func NewAudit(db *gorm.DB) *Audit {
	return &Audit{db: db}
}

// Subscribe must be called before the first Record
func (a *Audit) Subscribe(o Observer) {
	a.observers = append(a.observers, o)
}

// Record appends one entry. Transient storage failures are retried with
// exponential backoff a bounded number of times, after that the write
// surfaces as ErrUnavailable so the caller can roll its mutation back
// instead of leaving it unaudited
func (a *Audit) Record(ctx context.Context, email string, action model.Action, metadata string) (uint, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry := model.ActivityLogEntry{
		UserEmail: strings.ToLower(email),
		Action:    action,
		Metadata:  metadata,
		CreatedAt: time.Now().UnixMilli(),
	}

	backoff := retry.WithMaxRetries(3, retry.NewExponential(100*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := a.db.WithContext(ctx).Create(&entry).Error; err != nil {
			zap.L().Warn("Audit log write failed, retrying", zap.Error(err))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: audit log write failed, %s", ErrUnavailable, err)
	}

	a.dispatch(entry)
	return entry.ID, nil
}

// Append writes an entry through the caller's transaction so the audit row
// commits or rolls back atomically with the business mutation. The caller
// must pass the returned entry to Dispatch after a successful commit
func (a *Audit) Append(tx *gorm.DB, email string, action model.Action, metadata string) (model.ActivityLogEntry, error) {
	entry := model.ActivityLogEntry{
		UserEmail: strings.ToLower(email),
		Action:    action,
		Metadata:  metadata,
		CreatedAt: time.Now().UnixMilli(),
	}

	if err := tx.Create(&entry).Error; err != nil {
		return entry, fmt.Errorf("%w: audit log write failed, %s", ErrUnavailable, err)
	}

	return entry, nil
}

// Dispatch notifies observers of an entry written through Append
func (a *Audit) Dispatch(entry model.ActivityLogEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dispatch(entry)
}

func (a *Audit) dispatch(entry model.ActivityLogEntry) {
	for _, o := range a.observers {
		o.Observe(entry)
	}
}

// Filter narrows a Query. Zero-valued fields are ignored, set fields
// combine with AND
type Filter struct {
	Action model.Action
	Email  string
	Day    string // "2006-01-02", matches the whole UTC day
}

// Query returns entries newest-first. Ordering is (created_at DESC, id
// DESC) with the ID as tie breaker, so pages stay stable while new rows
// are appended concurrently
func (a *Audit) Query(ctx context.Context, f Filter, page, limit int) ([]model.ActivityLogEntry, error) {
	if page < 0 || limit <= 0 {
		return nil, fmt.Errorf("%w: page must be >= 0 and limit > 0", ErrInvalidInput)
	}

	q := a.db.WithContext(ctx).Model(model.ActivityLogEntry{})

	if f.Action != "" {
		if !f.Action.Valid() {
			return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, f.Action)
		}
		q = q.Where("action = ?", f.Action)
	}

	if f.Email != "" {
		q = q.Where("user_email = ?", strings.ToLower(f.Email))
	}

	if f.Day != "" {
		day, err := time.Parse("2006-01-02", f.Day)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid date format, use YYYY-MM-DD", ErrInvalidInput)
		}

		start := day.UnixMilli()
		end := day.Add(24 * time.Hour).UnixMilli()
		q = q.Where("created_at >= ? AND created_at < ?", start, end)
	}

	var entries []model.ActivityLogEntry

	err := q.
		Order("created_at DESC, id DESC").
		Offset(page * limit).
		Limit(limit).
		Find(&entries).
		Error
	if err != nil {
		return nil, fmt.Errorf("%w: audit log query failed, %s", ErrUnavailable, err)
	}

	return entries, nil
}
