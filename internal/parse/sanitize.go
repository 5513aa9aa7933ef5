package parse

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	reDecimal = regexp.MustCompile(`^-?\d+(\.\d{1,2})?$`)
	reISODate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	moneyFields = []string{"new_charges", "amount_due"}
	dateFields  = []string{"billing_period_start", "billing_period_end"}
)

var knownFields = map[string]struct{}{
	"account_number":       {},
	"customer_name":        {},
	"service_address":      {},
	"billing_period_start": {},
	"billing_period_end":   {},
	"new_charges":          {},
	"amount_due":           {},
	"rate_structure":       {},
	"tiers":                {},
	"monthly_usage":        {},
}

// SanitizeCandidate normalizes a decoded candidate mapping so that as much of
// it as possible survives schema validation: unknown top-level keys are dropped
// silently, money values are coerced to two-decimal strings, malformed tier and
// usage entries are removed. It never fails; callers get back the cleaned
// mapping and the list of keys that were dropped or rewritten.
func SanitizeCandidate(m map[string]any) (map[string]any, []string) {
	out := make(map[string]any, len(m))
	var touched []string

	for k, v := range m {
		if _, ok := knownFields[k]; !ok {
			touched = append(touched, k)
			continue
		}
		out[k] = v
	}

	for _, k := range moneyFields {
		v, ok := out[k]
		if !ok {
			continue
		}
		s, ok := coerceDecimalString(v)
		if !ok {
			delete(out, k)
			touched = append(touched, k)
			continue
		}
		out[k] = s
	}

	for _, k := range dateFields {
		v, ok := out[k]
		if !ok {
			continue
		}
		s, _ := v.(string)
		s = strings.TrimSpace(s)
		if !reISODate.MatchString(s) {
			delete(out, k)
			touched = append(touched, k)
			continue
		}
		out[k] = s
	}

	if v, ok := out["tiers"]; ok {
		tiers, changed := sanitizeTiers(v)
		if tiers == nil {
			delete(out, "tiers")
			touched = append(touched, "tiers")
		} else {
			out["tiers"] = tiers
			if changed {
				touched = append(touched, "tiers")
			}
		}
	}

	if v, ok := out["monthly_usage"]; ok {
		usage, changed := sanitizeUsage(v)
		if usage == nil {
			delete(out, "monthly_usage")
			touched = append(touched, "monthly_usage")
		} else {
			out["monthly_usage"] = usage
			if changed {
				touched = append(touched, "monthly_usage")
			}
		}
	}

	sort.Strings(touched)
	return out, touched
}

func coerceDecimalString(v any) (string, bool) {
	switch t := v.(type) {
	case float64:
		return fmt.Sprintf("%.2f", t), true
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimPrefix(s, "$")
		s = strings.ReplaceAll(s, ",", "")
		if s == "" || strings.EqualFold(s, "null") {
			return "", false
		}
		if reDecimal.MatchString(s) {
			return s, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fmt.Sprintf("%.2f", f), true
		}
		return "", false
	default:
		return "", false
	}
}

func sanitizeTiers(v any) ([]any, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]any, 0, len(arr))
	changed := false
	for _, item := range arr {
		tier, ok := item.(map[string]any)
		if !ok {
			changed = true
			continue
		}
		name, _ := tier["name"].(string)
		kwh, kwhOK := coerceNumber(tier["consumption_kwh"])
		rate, rateOK := coerceDecimalString(tier["rate"])
		if strings.TrimSpace(name) == "" || !kwhOK || !rateOK || kwh < 0 {
			changed = true
			continue
		}
		out = append(out, map[string]any{
			"name":            strings.TrimSpace(name),
			"consumption_kwh": kwh,
			"rate":            rate,
		})
	}
	return out, changed
}

func sanitizeUsage(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(m))
	changed := false
	for k, raw := range m {
		n, ok := coerceNumber(raw)
		if !ok || n < 0 {
			changed = true
			continue
		}
		out[k] = n
		if len(out) == 12 {
			break
		}
	}
	return out, changed
}

func coerceNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", ""))
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
