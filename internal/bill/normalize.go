package bill

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oladayo-ade/solarbill/internal/common"
)

// UnprocessableError means both primary monetary fields were unusable after
// coercion. Everything else on a bill is individually defaultable; without any
// charge amount there is nothing to model.
type UnprocessableError struct {
	Reason string
}

func (e *UnprocessableError) Error() string {
	return fmt.Sprintf("unprocessable record: %s", e.Reason)
}

func (e *UnprocessableError) Unwrap() error { return common.ErrUnprocessableRecord }

// Normalizer validates and coerces a candidate mapping into a BillRecord.
type Normalizer struct {
	logger *slog.Logger
}

func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// Normalize builds the canonical record. Monetary fields become fixed-precision
// decimals, dates become ISO dates, missing optional fields default to empty,
// unknown extra fields are dropped silently. It fails only when both
// new_charges and amount_due are absent or non-numeric.
func (n *Normalizer) Normalize(fields map[string]any) (*BillRecord, error) {
	newCharges, newOK := coerceDecimal(fields["new_charges"])
	amountDue, dueOK := coerceDecimal(fields["amount_due"])

	if !newOK && !dueOK {
		n.logger.Warn("normalize.unprocessable", "reason", "no numeric charge amount")
		return nil, &UnprocessableError{Reason: "both new_charges and amount_due absent or non-numeric"}
	}
	// One usable amount stands in for the other.
	if !newOK {
		newCharges = amountDue
	}
	if !dueOK {
		amountDue = newCharges
	}

	// The caller owns identity; the record is built with a zero ID.
	rec := &BillRecord{
		AccountNumber:  coerceString(fields["account_number"]),
		CustomerName:   coerceString(fields["customer_name"]),
		ServiceAddress: coerceString(fields["service_address"]),
		PeriodStart:    coerceDate(fields["billing_period_start"]),
		PeriodEnd:      coerceDate(fields["billing_period_end"]),
		NewCharges:     newCharges,
		AmountDue:      amountDue,
		RateStructure:  coerceString(fields["rate_structure"]),
		Tiers:          coerceTiers(fields["tiers"]),
	}

	// The series covers at most one calendar year ending at the latest
	// reported month; anything older is dropped.
	keys := usageMonthKeys(fields["monthly_usage"])
	windowStart := ""
	if len(keys) > 0 {
		if latest, err := time.Parse("2006-01", keys[len(keys)-1].month); err == nil {
			windowStart = latest.AddDate(0, -11, 0).Format("2006-01")
		}
	}
	for _, key := range keys {
		if rec.Usage.Len() == 12 {
			break
		}
		if key.month < windowStart {
			n.logger.Warn("normalize.usage_outside_window", "month", key.month)
			continue
		}
		if err := rec.Usage.Add(key.month, key.kwh, false); err != nil {
			// canonicalization collapsed two source keys onto one month
			n.logger.Warn("normalize.duplicate_month", "month", key.month)
		}
	}

	// Expected but not enforced: amount_due covers new_charges plus arrears.
	// A violation is flagged for review, never rejected.
	if rec.AmountDue.LessThan(rec.NewCharges) {
		rec.Flags = append(rec.Flags, FlagAmountDueBelowNewCharges)
	}
	if rec.PeriodStart == "" || rec.PeriodEnd == "" {
		rec.Flags = append(rec.Flags, FlagMissingBillingPeriod)
	}

	n.logger.Info("normalize.ok",
		"account", rec.AccountNumber != "",
		"tiers", len(rec.Tiers),
		"usage_months", rec.Usage.Len(),
		"flags", len(rec.Flags),
	)
	return rec, nil
}

func coerceString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func coerceDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t).Round(2), true
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimPrefix(s, "$")
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		return d.Round(2), true
	default:
		return decimal.Zero, false
	}
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

func coerceDate(v any) string {
	s := coerceString(v)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

func coerceTiers(v any) []RateTier {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]RateTier, 0, len(arr))
	for _, item := range arr {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := coerceString(m["name"])
		rate, rateOK := coerceDecimal(m["rate"])
		kwh, kwhOK := coerceFloat(m["consumption_kwh"])
		if name == "" || !rateOK || !kwhOK || kwh < 0 {
			continue
		}
		out = append(out, RateTier{Name: name, ConsumptionKWh: kwh, Rate: rate})
	}
	return out
}

func coerceFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

type usageKey struct {
	month string
	kwh   float64
}

var monthLayouts = []string{
	"2006-01",
	"2006-1",
	"Jan 2006",
	"January 2006",
	"01/2006",
	"2006-01-02",
}

// usageMonthKeys canonicalizes usage map keys to YYYY-MM and returns them in
// deterministic month order.
func usageMonthKeys(v any) []usageKey {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make([]usageKey, 0, len(m))
	for k, raw := range m {
		month, ok := canonicalMonth(k)
		if !ok {
			continue
		}
		kwh, ok := coerceFloat(raw)
		if !ok || kwh < 0 {
			continue
		}
		out = append(out, usageKey{month: month, kwh: kwh})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].month < out[j].month })
	return out
}

func canonicalMonth(k string) (string, bool) {
	s := strings.TrimSpace(k)
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01"), true
		}
	}
	return "", false
}
