package parse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/oladayo-ade/solarbill/internal/observability/metrics"
)

// Layer identifies which decoding layer produced the mapping.
type Layer int

const (
	// LayerStrict decoded the entire text as one JSON object.
	LayerStrict Layer = 1
	// LayerTolerant decoded the first balanced top-level object found inside
	// the text (markdown fences, preambles and trailing commentary stripped).
	LayerTolerant Layer = 2
	// LayerDefault produced the null-safe mapping with every field neutral.
	// Its use is a strong negative confidence signal.
	LayerDefault Layer = 3
)

// Result is a complete candidate mapping plus provenance signals. Fields is
// never nil and always contains a decodable mapping.
type Result struct {
	Fields      map[string]any
	Layer       Layer
	SchemaValid bool
	Touched     []string // keys the sanitizer dropped or rewrote
}

// Parser turns untrusted raw provider text into a best-effort mapping. It
// never returns an error: if nothing can be decoded it falls through to the
// null-safe default mapping.
type Parser struct {
	logger *slog.Logger
	schema *jsonschema.Schema
}

// NewParser compiles the bill schema once; compilation of the static schema
// cannot fail, so a failure here is a programming error.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	b, err := json.Marshal(BuildBillJSONSchema())
	if err != nil {
		panic(fmt.Sprintf("marshal bill schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("bill.json", bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("add bill schema: %v", err))
	}
	schema, err := compiler.Compile("bill.json")
	if err != nil {
		panic(fmt.Sprintf("compile bill schema: %v", err))
	}
	return &Parser{logger: logger, schema: schema}
}

// Parse runs the three strictly ordered layers. Each layer is attempted only
// if the previous one failed to decode an object.
func (p *Parser) Parse(raw string) Result {
	trimmed := strings.TrimSpace(raw)

	if m, ok := decodeObject(trimmed); ok {
		return p.finish(m, LayerStrict)
	}

	if sub, ok := firstBalancedObject(trimmed); ok {
		if m, ok := decodeObject(sub); ok {
			return p.finish(m, LayerTolerant)
		}
	}

	p.logger.Warn("parse.layer_default", "raw_len", len(raw))
	metrics.RecordParseLayer(strconv.Itoa(int(LayerDefault)))
	return Result{
		Fields:      DefaultFields(),
		Layer:       LayerDefault,
		SchemaValid: false,
	}
}

func (p *Parser) finish(m map[string]any, layer Layer) Result {
	cleaned, touched := SanitizeCandidate(m)
	valid := p.validate(cleaned)

	p.logger.Info("parse.ok",
		"layer", int(layer),
		"schema_valid", valid,
		"touched", len(touched),
	)
	metrics.RecordParseLayer(strconv.Itoa(int(layer)))
	return Result{
		Fields:      cleaned,
		Layer:       layer,
		SchemaValid: valid,
		Touched:     touched,
	}
}

func (p *Parser) validate(m map[string]any) bool {
	// The compiled schema validates the generic form, so round-trip through
	// json to drop Go-specific value types.
	b, err := json.Marshal(m)
	if err != nil {
		return false
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return false
	}
	return p.schema.Validate(v) == nil
}

func decodeObject(s string) (map[string]any, bool) {
	if s == "" {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

// firstBalancedObject locates the first balanced top-level {...} inside s,
// honoring strings and escapes so braces in values do not miscount.
func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
