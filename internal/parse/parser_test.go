package parse

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	return NewParser(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestParseStrictLayer(t *testing.T) {
	p := newTestParser(t)

	res := p.Parse(`{"account_number":"ACCT-1","new_charges":"187.42","amount_due":"210.44"}`)

	assert.Equal(t, LayerStrict, res.Layer)
	assert.True(t, res.SchemaValid)
	assert.Equal(t, "ACCT-1", res.Fields["account_number"])
	assert.Equal(t, "187.42", res.Fields["new_charges"])
}

func TestParseTolerantLayerRecoversFencedJSON(t *testing.T) {
	p := newTestParser(t)

	tests := []struct {
		name string
		raw  string
	}{
		{
			"markdown fence",
			"```json\n{\"amount_due\":\"99.50\"}\n```",
		},
		{
			"preamble and trailing commentary",
			"Here is the extracted bill:\n{\"amount_due\":\"99.50\"}\nLet me know if you need anything else.",
		},
		{
			"braces inside string values",
			"noise {\"amount_due\":\"99.50\",\"customer_name\":\"Acme {Holdings}\"} noise",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := p.Parse(tt.raw)
			assert.Equal(t, LayerTolerant, res.Layer)
			assert.Equal(t, "99.50", res.Fields["amount_due"])
		})
	}
}

func TestParseDefaultLayerNeverErrors(t *testing.T) {
	p := newTestParser(t)

	for _, raw := range []string{
		"",
		"I could not read this document.",
		"{\"unterminated\": ",
		"[1, 2, 3",
	} {
		res := p.Parse(raw)
		require.NotNil(t, res.Fields, "raw=%q", raw)
		assert.Equal(t, LayerDefault, res.Layer, "raw=%q", raw)
		assert.False(t, res.SchemaValid)
	}
}

func TestDefaultFieldsAreCompleteAndNeutral(t *testing.T) {
	fields := DefaultFields()

	for _, key := range []string{
		"account_number", "customer_name", "service_address",
		"billing_period_start", "billing_period_end",
		"new_charges", "amount_due", "rate_structure",
		"tiers", "monthly_usage",
	} {
		assert.Contains(t, fields, key)
	}
	assert.Equal(t, "0", fields["new_charges"])
	assert.Equal(t, "0", fields["amount_due"])
	assert.Empty(t, fields["tiers"])
	assert.Empty(t, fields["monthly_usage"])
}

func TestSanitizeDropsUnknownKeysAndCoercesMoney(t *testing.T) {
	cleaned, touched := SanitizeCandidate(map[string]any{
		"account_number": "ACCT-2",
		"new_charges":    "$1,234.5",
		"amount_due":     float64(210),
		"confidence":     "high", // model invention, not a bill field
	})

	assert.NotContains(t, cleaned, "confidence")
	assert.Contains(t, touched, "confidence")
	assert.Equal(t, "1234.5", cleaned["new_charges"])
	assert.Equal(t, "210.00", cleaned["amount_due"])
}

func TestSanitizeRemovesMalformedEntries(t *testing.T) {
	cleaned, touched := SanitizeCandidate(map[string]any{
		"billing_period_start": "March 2024",
		"amount_due":           "twenty",
		"tiers": []any{
			map[string]any{"name": "Tier 1", "consumption_kwh": float64(300), "rate": "0.26"},
			map[string]any{"name": "", "consumption_kwh": float64(100), "rate": "0.30"},
			"not a tier",
		},
		"monthly_usage": map[string]any{
			"2024-01": float64(480),
			"2024-02": "n/a",
		},
	})

	assert.NotContains(t, cleaned, "billing_period_start")
	assert.NotContains(t, cleaned, "amount_due")
	assert.Contains(t, touched, "billing_period_start")
	assert.Contains(t, touched, "amount_due")

	tiers, ok := cleaned["tiers"].([]any)
	require.True(t, ok)
	require.Len(t, tiers, 1)

	usage, ok := cleaned["monthly_usage"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"2024-01": float64(480)}, usage)
}

func TestFirstBalancedObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"plain", `{"a":1}`, `{"a":1}`, true},
		{"nested", `x {"a":{"b":2}} y`, `{"a":{"b":2}}`, true},
		{"brace in string", `{"a":"}"}`, `{"a":"}"}`, true},
		{"escaped quote", `{"a":"\"}"}`, `{"a":"\"}"}`, true},
		{"unbalanced", `{"a":1`, "", false},
		{"no object", "plain text", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := firstBalancedObject(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
