package bill

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Review flags carried on a record. Flags mark anomalies that are surfaced,
// never rejected.
const (
	FlagAmountDueBelowNewCharges = "amount_due_below_new_charges"
	FlagMissingBillingPeriod     = "missing_billing_period"
)

// RateTier is one consumption tier printed on the bill.
type RateTier struct {
	Name           string          `json:"name"`
	ConsumptionKWh float64         `json:"consumption_kwh"`
	Rate           decimal.Decimal `json:"rate"`
}

// UsageEntry is one month of the usage series, tagged by origin.
type UsageEntry struct {
	Month   string  `json:"month"` // YYYY-MM
	KWh     float64 `json:"kwh"`
	Imputed bool    `json:"imputed"`
}

// UsageSeries is an ordered-by-month series with unique month keys, at most
// twelve entries. Completion only ever adds entries for absent months;
// observed entries are never overwritten.
type UsageSeries struct {
	Entries []UsageEntry `json:"entries"`
}

// Add appends an entry, keeping month order. Duplicate keys are rejected.
func (s *UsageSeries) Add(month string, kwh float64, imputed bool) error {
	if s.Has(month) {
		return fmt.Errorf("duplicate month key %q", month)
	}
	s.Entries = append(s.Entries, UsageEntry{Month: month, KWh: kwh, Imputed: imputed})
	sort.Slice(s.Entries, func(i, j int) bool { return s.Entries[i].Month < s.Entries[j].Month })
	return nil
}

func (s *UsageSeries) Has(month string) bool {
	for _, e := range s.Entries {
		if e.Month == month {
			return true
		}
	}
	return false
}

func (s *UsageSeries) Len() int { return len(s.Entries) }

// ObservedCount counts entries extracted from the bill itself.
func (s *UsageSeries) ObservedCount() int {
	n := 0
	for _, e := range s.Entries {
		if !e.Imputed {
			n++
		}
	}
	return n
}

// ImputedCount counts entries added by completion.
func (s *UsageSeries) ImputedCount() int {
	return len(s.Entries) - s.ObservedCount()
}

// ObservedMean is the arithmetic mean of observed kWh values.
func (s *UsageSeries) ObservedMean() float64 {
	n, sum := 0, 0.0
	for _, e := range s.Entries {
		if !e.Imputed {
			sum += e.KWh
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// LatestMonth returns the greatest observed month key, parsed.
func (s *UsageSeries) LatestMonth() (time.Time, bool) {
	latest := ""
	for _, e := range s.Entries {
		if !e.Imputed && e.Month > latest {
			latest = e.Month
		}
	}
	if latest == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01", latest)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// TotalKWh sums the whole series, imputed entries included.
func (s *UsageSeries) TotalKWh() float64 {
	sum := 0.0
	for _, e := range s.Entries {
		sum += e.KWh
	}
	return sum
}

// Mean is the arithmetic mean over the whole series.
func (s *UsageSeries) Mean() float64 {
	if len(s.Entries) == 0 {
		return 0
	}
	return s.TotalKWh() / float64(len(s.Entries))
}

// StdDev is the population standard deviation over the whole series.
func (s *UsageSeries) StdDev() float64 {
	n := len(s.Entries)
	if n == 0 {
		return 0
	}
	mean := s.Mean()
	sum := 0.0
	for _, e := range s.Entries {
		d := e.KWh - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

// BillRecord is the canonical extracted entity. It is built once per parsed
// document and immutable afterwards, except for usage-series completion.
type BillRecord struct {
	ID             uuid.UUID       `json:"id"`
	AccountNumber  string          `json:"account_number"`
	CustomerName   string          `json:"customer_name"`
	ServiceAddress string          `json:"service_address"`
	PeriodStart    string          `json:"billing_period_start"` // YYYY-MM-DD or empty
	PeriodEnd      string          `json:"billing_period_end"`
	NewCharges     decimal.Decimal `json:"new_charges"`
	AmountDue      decimal.Decimal `json:"amount_due"`
	RateStructure  string          `json:"rate_structure"`
	Tiers          []RateTier      `json:"tiers"`
	Usage          UsageSeries     `json:"usage"`
	Flags          []string        `json:"flags,omitempty"`
}

// Flagged reports whether the record carries the given review flag.
func (r *BillRecord) Flagged(flag string) bool {
	for _, f := range r.Flags {
		if f == flag {
			return true
		}
	}
	return false
}
