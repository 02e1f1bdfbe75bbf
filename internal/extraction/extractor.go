// Package extraction proposes field schemas for a document and extracts
// structured values with a text generator.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"docintel/internal/domain"
)

// DefaultMaxTextChars bounds the document text sent for extraction.
const DefaultMaxTextChars = 30000

type Config struct {
	MaxTextChars int
	Logger       *slog.Logger
}

// Extractor turns document text into a schema and field values.
type Extractor struct {
	gen      domain.Generator
	maxChars int
	logger   *slog.Logger
}

func NewExtractor(gen domain.Generator, cfg Config) *Extractor {
	if cfg.MaxTextChars <= 0 {
		cfg.MaxTextChars = DefaultMaxTextChars
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{gen: gen, maxChars: cfg.MaxTextChars, logger: logger}
}

// ProposeSchema asks the generator which fields the text carries.
// Fields come back sorted by name.
func (e *Extractor) ProposeSchema(ctx context.Context, text string) ([]domain.SchemaField, error) {
	text = truncate(text, e.maxChars)
	if strings.TrimSpace(text) == "" {
		return []domain.SchemaField{}, nil
	}
	reply, err := e.gen.Generate(ctx, domain.GenerateRequest{
		System: schemaSystemPrompt,
		User:   fmt.Sprintf(schemaUserPrompt, text),
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("propose schema: %w", err)
	}
	obj, err := parseObject(reply)
	if err != nil {
		return nil, fmt.Errorf("propose schema: %w", err)
	}

	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	seen := make(map[string]struct{}, len(obj))
	fields := make([]domain.SchemaField, 0, len(obj))
	for _, key := range keys {
		v := obj[key]
		name := SnakeCase(key)
		if name == "" || name == "note" || name == "notes" || name == "error" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		fields = append(fields, domain.SchemaField{Name: name, Type: fieldType(v)})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	e.logger.Debug("schema proposed", "fields", len(fields))
	return fields, nil
}

// Extract asks the generator for values of fields and validates the reply.
// Keys outside fields are dropped; fields the text does not state are nil.
// A value that does not fit its field's type is set to nil on its own, so
// one bad value never discards the others.
func (e *Extractor) Extract(ctx context.Context, text string, fields []domain.SchemaField) (map[string]any, error) {
	if len(fields) == 0 {
		return map[string]any{}, nil
	}
	text = truncate(text, e.maxChars)
	if strings.TrimSpace(text) == "" {
		return map[string]any{}, nil
	}
	schemaDoc := Schema(fields)
	target, err := json.MarshalIndent(schemaDoc["properties"], "", "  ")
	if err != nil {
		return nil, err
	}
	reply, err := e.gen.Generate(ctx, domain.GenerateRequest{
		System: extractSystemPrompt,
		User:   fmt.Sprintf(extractUserPrompt, target, text),
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	obj, err := parseObject(reply)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	out := make(map[string]any, len(fields))
	for _, f := range fields {
		v, ok := obj[f.Name]
		if !ok {
			out[f.Name] = nil
			continue
		}
		fv, ok := fieldValue(f.Type, v)
		if !ok {
			e.logger.Warn("dropping field value", "field", f.Name, "type", f.Type, "value", v)
		}
		out[f.Name] = fv
	}
	if err := validate(schemaDoc, out); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	e.logger.Debug("fields extracted", "fields", len(out))
	return out, nil
}

// Schema returns the JSON Schema document for fields. Every field may be null.
func Schema(fields []domain.SchemaField) map[string]any {
	props := make(map[string]any, len(fields))
	for _, f := range fields {
		t := "string"
		if f.Type == domain.FieldNumber {
			t = "number"
		}
		props[f.Name] = map[string]any{"type": []string{t, "null"}}
	}
	return map[string]any{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"type":       "object",
		"properties": props,
	}
}

func validate(schemaDoc map[string]any, value map[string]any) error {
	raw, err := json.Marshal(schemaDoc)
	if err != nil {
		return err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("fields.json", bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("load field schema: %w", err)
	}
	schema, err := compiler.Compile("fields.json")
	if err != nil {
		return fmt.Errorf("compile field schema: %w", err)
	}
	// round-trip so the validator sees plain JSON values
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidResponse, err)
	}
	return nil
}

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)
var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// SnakeCase normalizes a field name: "Carrier Name" and "carrierName"
// both become "carrier_name".
func SnakeCase(s string) string {
	s = camelBoundary.ReplaceAllString(strings.TrimSpace(s), "${1}_${2}")
	s = nonWord.ReplaceAllString(strings.ToLower(s), "_")
	return strings.Trim(s, "_")
}

func fieldType(v any) domain.FieldType {
	switch t := v.(type) {
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "number", "integer", "float", "double", "decimal", "int":
			return domain.FieldNumber
		}
	case map[string]any:
		// {"type": "number"} style answers
		if inner, ok := t["type"]; ok {
			return fieldType(inner)
		}
	case float64:
		return domain.FieldNumber
	}
	return domain.FieldString
}

// fieldValue converts v to the JSON type of t. ok is false when v had to be
// dropped; the returned value is then nil.
func fieldValue(t domain.FieldType, v any) (any, bool) {
	if v == nil {
		return nil, true
	}
	if t == domain.FieldNumber {
		return coerceNumber(v)
	}
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	}
	return nil, false
}

// coerceNumber turns "$1,200.50" into 1200.5. Blank strings are nil.
func coerceNumber(v any) (any, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		clean := strings.Map(func(r rune) rune {
			switch r {
			case ',', '$', ' ':
				return -1
			}
			return r
		}, x)
		if clean == "" {
			return nil, true
		}
		f, err := strconv.ParseFloat(clean, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		return f, true
	}
	return nil, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// parseObject decodes a JSON object reply, tolerating code fences and
// surrounding prose.
func parseObject(content string) (map[string]any, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty reply", domain.ErrInvalidResponse)
	}
	candidates := []string{content}
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) > 1 {
			lines = lines[1:]
			if strings.TrimSpace(lines[len(lines)-1]) == "```" {
				lines = lines[:len(lines)-1]
			}
			candidates = append(candidates, strings.Join(lines, "\n"))
		}
	}
	if start, end := strings.Index(content, "{"), strings.LastIndex(content, "}"); start >= 0 && end > start {
		candidates = append(candidates, content[start:end+1])
	}
	for _, c := range candidates {
		var obj map[string]any
		if err := json.Unmarshal([]byte(c), &obj); err == nil && obj != nil {
			return obj, nil
		}
	}
	return nil, fmt.Errorf("%w: reply is not a JSON object", domain.ErrInvalidResponse)
}
