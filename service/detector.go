package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"bitwise74/fileshare-api/model"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Threshold flags a (user, action) pair once Count events land within
// Window. Values come from configuration, nothing here is hard-coded
type Threshold struct {
	Count  int
	Window time.Duration
}

// Aggregate is a derived per-(user, action) summary. Recomputed from the
// audit log, never stored as source of truth
type Aggregate struct {
	UserEmail string       `json:"email"`
	Action    model.Action `json:"action"`
	Count     int64        `json:"count"`
	FirstSeen int64        `json:"first_seen"`
	LastSeen  int64        `json:"last_seen"`
}

type aggKey struct {
	email  string
	action model.Action
}

// Detector keeps sliding-window counters over the audit log and flags
// anomalies. It observes each committed entry exactly once and signals
// threshold crossings through a callback, the lock mutation itself stays
// with the lock manager
type Detector struct {
	db         *gorm.DB
	thresholds map[model.Action]Threshold

	mu      sync.Mutex
	events  map[aggKey][]int64 // Unix ms, ascending, pruned to the window
	flagged map[aggKey]bool    // Edge trigger so one crossing fires one signal

	// Exactly-once guard. Commit order and dispatch order can differ when
	// mutations run concurrently, so a plain high-water mark would drop
	// entries that arrive after a later ID. floor covers the contiguous
	// applied prefix, seen holds applied IDs above it until the gap fills
	floor uint
	seen  map[uint]bool

	onFlag func(email string, action model.Action, count int)
}

// NewDetector reads suspicious.<action>.threshold and
// suspicious.<action>.window for every action type. Actions with a zero
// threshold are not tracked
func NewDetector(db *gorm.DB) *Detector {
	thresholds := make(map[model.Action]Threshold)

	for _, action := range []model.Action{
		model.ActionUpload,
		model.ActionDownload,
		model.ActionShare,
		model.ActionDelete,
		model.ActionFailedLogin,
	} {
		count := viper.GetInt(fmt.Sprintf("suspicious.%s.threshold", action))
		if count <= 0 {
			continue
		}

		window := viper.GetDuration(fmt.Sprintf("suspicious.%s.window", action))
		if window <= 0 {
			window = time.Hour
		}

		thresholds[action] = Threshold{Count: count, Window: window}
	}

	return &Detector{
		db:         db,
		thresholds: thresholds,
		events:     make(map[aggKey][]int64),
		flagged:    make(map[aggKey]bool),
		seen:       make(map[uint]bool),
	}
}

// OnFlag registers the threshold-crossing callback. Must be set before the
// detector is subscribed to the audit log. The callback runs on its own
// goroutine, detection may land a moment late but never blocks or fails
// the action that produced the entry
func (d *Detector) OnFlag(fn func(email string, action model.Action, count int)) {
	d.onFlag = fn
}

// Observe implements Observer. Each entry ID is counted exactly once,
// replays are dropped and late arrivals with lower IDs still count
func (d *Detector) Observe(e model.ActivityLogEntry) {
	d.mu.Lock()

	if e.ID <= d.floor || d.seen[e.ID] {
		d.mu.Unlock()
		return
	}
	d.seen[e.ID] = true

	for d.seen[d.floor+1] {
		d.floor++
		delete(d.seen, d.floor)
	}

	th, tracked := d.thresholds[e.Action]
	if !tracked {
		d.mu.Unlock()
		return
	}

	key := aggKey{email: e.UserEmail, action: e.Action}
	times := append(d.events[key], e.CreatedAt)
	times = prune(times, e.CreatedAt-th.Window.Milliseconds())
	d.events[key] = times

	var (
		fire  bool
		count = len(times)
	)

	if count >= th.Count {
		if !d.flagged[key] {
			d.flagged[key] = true
			fire = true
		}
	} else {
		d.flagged[key] = false
	}

	fn := d.onFlag
	d.mu.Unlock()

	if fire && fn != nil {
		// Off the recording path. Calling back inline would also deadlock
		// through audit.Record when the lock manager writes its own entry
		go fn(key.email, key.action, count)
	}
}

// IsSuspicious reports whether any tracked action currently exceeds its
// threshold for the user, evaluated against the live windows
func (d *Detector) IsSuspicious(email string) bool {
	now := time.Now().UnixMilli()

	d.mu.Lock()
	defer d.mu.Unlock()

	for key, times := range d.events {
		if key.email != email {
			continue
		}

		th := d.thresholds[key.action]
		times = prune(times, now-th.Window.Milliseconds())
		d.events[key] = times

		if len(times) >= th.Count {
			return true
		}
	}

	return false
}

// Rebuild replays the whole audit log into fresh counters. Called on
// startup so restarts don't forget recent activity
func (d *Detector) Rebuild(ctx context.Context) error {
	var entries []model.ActivityLogEntry

	err := d.db.WithContext(ctx).
		Order("id ASC").
		Find(&entries).
		Error
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	d.mu.Lock()
	d.events = make(map[aggKey][]int64)
	d.flagged = make(map[aggKey]bool)
	d.floor = 0
	d.seen = make(map[uint]bool)
	d.mu.Unlock()

	for _, e := range entries {
		d.Observe(e)
	}

	return nil
}

// StartSweeper prunes decayed windows in the background so idle users
// don't pin memory. Same shape as the other background tickers
func (d *Detector) StartSweeper(interval time.Duration) {
	ticker := time.NewTicker(interval)

	zap.L().Debug("Detector sweeper attached", zap.Duration("tick_every", interval))

	go func() {
		for range ticker.C {
			now := time.Now().UnixMilli()

			d.mu.Lock()

			// IDs still missing below a seen entry after a full tick
			// belong to rolled-back transactions and will never arrive,
			// collapse the gap so the set doesn't grow forever
			for id := range d.seen {
				if id > d.floor {
					d.floor = id
				}
			}
			clear(d.seen)

			for key, times := range d.events {
				th := d.thresholds[key.action]
				times = prune(times, now-th.Window.Milliseconds())

				if len(times) == 0 {
					delete(d.events, key)
					delete(d.flagged, key)
					continue
				}

				d.events[key] = times
				if len(times) < th.Count {
					d.flagged[key] = false
				}
			}
			d.mu.Unlock()
		}
	}()
}

// Summarize recomputes aggregates from the audit log for the given range
// (Unix ms, zero means unbounded) and returns only those at or above their
// action's threshold, ordered by count descending with last_seen
// descending as tie breaker
func (d *Detector) Summarize(ctx context.Context, page, limit int, from, to int64) ([]Aggregate, error) {
	if page < 0 || limit <= 0 {
		return nil, fmt.Errorf("%w: page must be >= 0 and limit > 0", ErrInvalidInput)
	}

	q := d.db.WithContext(ctx).
		Model(model.ActivityLogEntry{}).
		Select("user_email, action, COUNT(*) AS count, MIN(created_at) AS first_seen, MAX(created_at) AS last_seen").
		Group("user_email, action")

	if from > 0 {
		q = q.Where("created_at >= ?", from)
	}
	if to > 0 {
		q = q.Where("created_at <= ?", to)
	}

	var all []Aggregate

	if err := q.Scan(&all).Error; err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	// Per-action thresholds can't go in a single HAVING clause, filter
	// here
	suspicious := all[:0]
	for _, agg := range all {
		th, tracked := d.thresholds[agg.Action]
		if tracked && agg.Count >= int64(th.Count) {
			suspicious = append(suspicious, agg)
		}
	}

	sort.Slice(suspicious, func(i, j int) bool {
		if suspicious[i].Count != suspicious[j].Count {
			return suspicious[i].Count > suspicious[j].Count
		}
		return suspicious[i].LastSeen > suspicious[j].LastSeen
	})

	start := page * limit
	if start >= len(suspicious) {
		return []Aggregate{}, nil
	}

	end := min(start+limit, len(suspicious))
	return suspicious[start:end], nil
}

// prune drops timestamps at or before cutoff. Slices are ascending so the
// first kept index is a binary search away
func prune(times []int64, cutoff int64) []int64 {
	i := sort.Search(len(times), func(i int) bool { return times[i] > cutoff })
	if i == 0 {
		return times
	}

	return append(times[:0], times[i:]...)
}
