package settings

// DB config keys and defaults for runtime settings.
const (
	// AttendRewardPointsKey overrides the points credited per daily attendance.
	AttendRewardPointsKey = "ATTEND_REWARD_POINTS"
	// MealPhotoRewardPointsKey overrides the points credited per qualifying meal photo.
	MealPhotoRewardPointsKey = "MEAL_PHOTO_REWARD_POINTS"
	// ExchangeValidDaysKey overrides how long an exchanged coupon stays valid.
	ExchangeValidDaysKey = "EXCHANGE_VALID_DAYS"
	// LedgerAuditIntervalSecondsKey controls the background reconciliation interval.
	LedgerAuditIntervalSecondsKey = "LEDGER_AUDIT_INTERVAL_SECONDS"
	// ExchangeRateLimitPerMinuteKey caps exchange attempts per student per minute.
	ExchangeRateLimitPerMinuteKey = "EXCHANGE_RATE_LIMIT_PER_MINUTE"

	// DefaultAttendRewardPoints is the fallback attendance reward.
	DefaultAttendRewardPoints = 10
	// DefaultMealPhotoRewardPoints is the fallback meal photo reward.
	DefaultMealPhotoRewardPoints = 20
	// DefaultExchangeValidDays is the fallback coupon validity; 0 means one calendar year.
	DefaultExchangeValidDays = 0
	// DefaultLedgerAuditIntervalSeconds is the fallback audit interval.
	DefaultLedgerAuditIntervalSeconds = 3600
	// DefaultExchangeRateLimitPerMinute is the fallback exchange rate limit.
	DefaultExchangeRateLimitPerMinute = 10
)
