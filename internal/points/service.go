// Package points implements the student points ledger and the product redemption engine.
//
// Every balance change goes through the transaction recorder, which appends an immutable
// ledger entry and updates the account balance in one database transaction. Work on the same
// account or product is serialized; work on different entities runs in parallel.
package points

import (
	"context"
	"errors"
	"time"

	"github.com/school-portal/portal-backend/internal/metrics"
	"github.com/school-portal/portal-backend/internal/settings"
	"gorm.io/gorm"
)

// maxTxAttempts bounds retries of a unit of work whose guarded balance write lost a race.
const maxTxAttempts = 3

// errStaleBalance marks a compare-and-swap miss on the account row; inTx retries it.
var errStaleBalance = errors.New("points: stale balance")

// Defaults are the file-configured reward and validity values. DB settings override them.
type Defaults struct {
	AttendReward      int64
	MealPhotoReward   int64
	ExchangeValidDays int // 0 means one calendar year.
}

// Service owns the points ledger, the catalog inventory and exchange records.
type Service struct {
	db       *gorm.DB
	locks    *keyedLocker
	metrics  *metrics.Metrics
	now      func() time.Time
	loc      *time.Location
	defaults Defaults
}

// Option customizes a Service.
type Option func(*Service)

// WithMetrics records ledger and exchange activity on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the time zone that defines a calendar day for attendance.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithDefaults sets the reward and validity values used when no DB setting overrides them.
func WithDefaults(d Defaults) Option {
	return func(s *Service) { s.defaults = d }
}

// NewService builds a Service on db.
func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{
		db:    db,
		locks: newKeyedLocker(),
		now:   time.Now,
		loc:   time.UTC,
		defaults: Defaults{
			AttendReward:      settings.DefaultAttendRewardPoints,
			MealPhotoReward:   settings.DefaultMealPhotoRewardPoints,
			ExchangeValidDays: settings.DefaultExchangeValidDays,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// DB returns the underlying connection.
func (s *Service) DB() *gorm.DB {
	return s.db
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

func (s *Service) attendReward() int64 {
	return settings.Int64(settings.AttendRewardPointsKey, s.defaults.AttendReward)
}

func (s *Service) mealPhotoReward() int64 {
	return settings.Int64(settings.MealPhotoRewardPointsKey, s.defaults.MealPhotoReward)
}

// exchangeExpiry returns the coupon expiry for an exchange made at from.
func (s *Service) exchangeExpiry(from time.Time) time.Time {
	days := settings.Int64(settings.ExchangeValidDaysKey, int64(s.defaults.ExchangeValidDays))
	if days <= 0 {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 0, int(days))
}

// lock acquires the in-process serialization tokens for keys, in the given order.
func (s *Service) lock(ctx context.Context, keys ...string) (func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	releases := make([]func(), 0, len(keys))
	unlock := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, key := range keys {
		release, errLock := s.locks.Lock(ctx, key)
		if errLock != nil {
			unlock()
			return nil, errLock
		}
		releases = append(releases, release)
	}
	return unlock, nil
}

// inTx runs fn in a transaction, retrying when a guarded balance write went stale.
func (s *Service) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	defer func() { s.metrics.ObserveDuration(time.Since(start)) }()

	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		errTx := s.db.WithContext(ctx).Transaction(fn)
		if !errors.Is(errTx, errStaleBalance) {
			return errTx
		}
		if errCtx := ctx.Err(); errCtx != nil {
			return errCtx
		}
	}
	return ErrConcurrentUpdate
}
