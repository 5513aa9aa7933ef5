package parse

import (
	"encoding/json"
	"strings"
)

// BuildPrompt returns the system instruction sent with every extraction call.
// The schema is embedded verbatim so the provider and the local validator
// agree on the target shape.
func BuildPrompt() string {
	parts := []string{
		"You are a utility bill parser. Return ONLY JSON that matches the JSON Schema provided.",
		"Use ISO-8601 dates (YYYY-MM-DD).",
		"Monetary amounts are strings with at most two decimals and no currency symbol.",
		"'new_charges' is the current-period amount; 'amount_due' includes any arrears. Keep them distinct.",
		"'monthly_usage' maps YYYY-MM month keys to kWh numbers; include only months printed on the bill.",
		"List every rate tier with its name, consumption in kWh, and $/kWh rate.",
		"Never output null. If a field is not present on the bill, omit it.",
	}
	schema, _ := json.MarshalIndent(BuildBillJSONSchema(), "", "  ")
	return strings.Join(parts, " ") + "\n\nJSON Schema:\n" + string(schema)
}

// BuildUserText frames the bill text for a text_json extraction call.
func BuildUserText(billText string) string {
	const maxChars = 6000
	var b strings.Builder
	b.WriteString("Utility bill text:\n")
	if len(billText) > maxChars {
		b.WriteString(billText[:maxChars])
	} else {
		b.WriteString(billText)
	}
	b.WriteString("\n\nReturn ONLY JSON that matches the provided schema.")
	return b.String()
}
