// Package fusion combines retrieval scores with structured-field matches
// into a single confidence value and decides whether to answer.
package fusion

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"docintel/internal/domain"
	"docintel/internal/embedding"
)

// Config holds the gating constants.
type Config struct {
	MappingThreshold float64 // field similarity must be strictly above this
	MaxFields        int
	RefusalThreshold float64 // final confidence strictly below this is refused
	SchemaWeight     float64
	SemanticWeight   float64
	MaxPassages      int
	Logger           *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		MappingThreshold: 0.4,
		MaxFields:        3,
		RefusalThreshold: 0.45,
		SchemaWeight:     0.5,
		SemanticWeight:   0.5,
		MaxPassages:      5,
	}
}

// Decision is the outcome of gating one question.
// Passages and Fields are empty unless the result is accepted.
type Decision struct {
	Metrics  domain.ConfidenceResult `yaml:"confidence_metrics" json:"confidence_metrics"`
	Passages []domain.SearchResult   `yaml:"passages" json:"passages"`
	Fields   []domain.FieldMatch     `yaml:"mappings" json:"mappings"`
}

// Accepted reports whether the answer should be synthesized.
func (d Decision) Accepted() bool { return d.Metrics.Status == domain.StatusAccepted }

// Refusal returns a refused decision with zero metrics.
func Refusal() Decision {
	return Decision{
		Metrics:  domain.ConfidenceResult{Status: domain.StatusRefused},
		Passages: []domain.SearchResult{},
		Fields:   []domain.FieldMatch{},
	}
}

type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// NewEngine builds an engine from cfg. Zero values take the defaults.
func NewEngine(cfg Config) *Engine {
	d := DefaultConfig()
	if cfg.MappingThreshold <= 0 {
		cfg.MappingThreshold = d.MappingThreshold
	}
	if cfg.RefusalThreshold <= 0 {
		cfg.RefusalThreshold = d.RefusalThreshold
	}
	if cfg.MaxFields <= 0 {
		cfg.MaxFields = d.MaxFields
	}
	if cfg.MaxPassages <= 0 {
		cfg.MaxPassages = d.MaxPassages
	}
	if cfg.SchemaWeight == 0 && cfg.SemanticWeight == 0 {
		cfg.SchemaWeight, cfg.SemanticWeight = d.SchemaWeight, d.SemanticWeight
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Config returns the engine's effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Evaluate gates a question. retrieved must already be restricted to the
// document and ranked by descending score. fields are the document's known
// structured values; nil values are not considered known.
func (e *Engine) Evaluate(ctx context.Context, question string, retrieved []domain.SearchResult, fields map[string]any, sim embedding.SimilarityFunc) (Decision, error) {
	if len(retrieved) == 0 {
		e.logger.Info("refusing: nothing retrieved")
		return Refusal(), nil
	}
	semantic := retrieved[0].Score

	matches, err := e.matchFields(ctx, question, fields, sim)
	if err != nil {
		return Decision{}, fmt.Errorf("score fields: %w", err)
	}
	schema := 0.0
	if len(matches) > 0 {
		schema = matches[0].Confidence
	}

	final := e.cfg.SchemaWeight*schema + e.cfg.SemanticWeight*semantic
	metrics := domain.ConfidenceResult{
		SchemaScore:     schema,
		SemanticScore:   semantic,
		FinalConfidence: final,
		Status:          domain.StatusAccepted,
	}
	if final < e.cfg.RefusalThreshold {
		metrics.Status = domain.StatusRefused
		e.logger.Info("refusing: low confidence",
			"schema_score", schema, "semantic_score", semantic, "final_confidence", final)
		return Decision{Metrics: metrics, Passages: []domain.SearchResult{}, Fields: []domain.FieldMatch{}}, nil
	}

	passages := retrieved
	if len(passages) > e.cfg.MaxPassages {
		passages = passages[:e.cfg.MaxPassages]
	}
	e.logger.Debug("accepted",
		"schema_score", schema, "semantic_score", semantic, "final_confidence", final, "fields", len(matches))
	return Decision{
		Metrics:  metrics,
		Passages: append([]domain.SearchResult(nil), passages...),
		Fields:   matches,
	}, nil
}

// matchFields scores the question against the known field names and keeps
// the best matches above the mapping threshold.
func (e *Engine) matchFields(ctx context.Context, question string, fields map[string]any, sim embedding.SimilarityFunc) ([]domain.FieldMatch, error) {
	names := make([]string, 0, len(fields))
	for name, v := range fields {
		if v == nil {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return []domain.FieldMatch{}, nil
	}
	sort.Strings(names)

	scores, err := sim(ctx, question, names)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(names) {
		return nil, fmt.Errorf("%w: got %d similarity scores for %d fields", domain.ErrInvalidResponse, len(scores), len(names))
	}

	matches := make([]domain.FieldMatch, 0, len(names))
	for i, name := range names {
		if scores[i] > e.cfg.MappingThreshold {
			matches = append(matches, domain.FieldMatch{Field: name, Value: fields[name], Confidence: scores[i]})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Confidence > matches[j].Confidence })
	if len(matches) > e.cfg.MaxFields {
		matches = matches[:e.cfg.MaxFields]
	}
	return matches, nil
}
