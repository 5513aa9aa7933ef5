package parse

// BuildBillJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic
// map. It is embedded in the provider prompt as an output constraint and used
// locally to validate recovered mappings. No field is required: every field is
// individually defaultable downstream, and requiring any here would push
// salvageable output down to the null-safe layer.
func BuildBillJSONSchema() map[string]any {
	tierProps := map[string]any{
		"name":            map[string]any{"type": "string", "minLength": 1},
		"consumption_kwh": map[string]any{"type": "number", "minimum": 0},
		"rate":            decimalProp(),
	}
	props := map[string]any{
		"account_number":       map[string]any{"type": "string"},
		"customer_name":        map[string]any{"type": "string"},
		"service_address":      map[string]any{"type": "string"},
		"billing_period_start": map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
		"billing_period_end":   map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
		"new_charges":          decimalProp(),
		"amount_due":           decimalProp(),
		"rate_structure":       map[string]any{"type": "string"},
		"tiers": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties":           tierProps,
				"required":             []string{"name", "consumption_kwh", "rate"},
			},
		},
		"monthly_usage": map[string]any{
			"type":          "object",
			"maxProperties": 12,
			"additionalProperties": map[string]any{
				"type":    "number",
				"minimum": 0,
			},
		},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             []string{},
	}
}

func decimalProp() map[string]any {
	return map[string]any{
		"type":    "string",
		"pattern": `^-?\d+(\.\d{1,2})?$`,
	}
}

// DefaultFields returns the null-safe layer-3 mapping: every expected field
// present with a neutral value.
func DefaultFields() map[string]any {
	return map[string]any{
		"account_number":       "",
		"customer_name":        "",
		"service_address":      "",
		"billing_period_start": "",
		"billing_period_end":   "",
		"new_charges":          "0",
		"amount_due":           "0",
		"rate_structure":       "",
		"tiers":                []any{},
		"monthly_usage":        map[string]any{},
	}
}
