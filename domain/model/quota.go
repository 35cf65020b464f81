package model

import (
	"fmt"
	"time"
)

type Tier string

const (
	TierGuest Tier = "guest"
	TierFree  Tier = "free"
	TierPaid  Tier = "paid"
)

func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierGuest, TierFree, TierPaid:
		return Tier(s), nil
	case "":
		return TierFree, nil
	}
	return "", fmt.Errorf("%w: unknown tier %q", ErrInvalidInput, s)
}

// QuotaRecord is the per-owner daily counter. ResetDate is a UTC calendar date.
type QuotaRecord struct {
	OwnerID   string    `json:"owner_id"`
	Tier      Tier      `json:"tier"`
	DailyUsed int       `json:"daily_used"`
	ResetDate time.Time `json:"reset_date"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UsedOn returns the count that applies on day, treating a stale record as reset.
func (q *QuotaRecord) UsedOn(day time.Time) int {
	if q.ResetDate.Before(UTCDate(day)) {
		return 0
	}
	return q.DailyUsed
}

// UTCDate truncates t to midnight UTC.
func UTCDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type QuotaDecision struct {
	Allowed   bool      `json:"allowed"`
	Tier      Tier      `json:"tier"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	ResetDate time.Time `json:"reset_date"`
}
