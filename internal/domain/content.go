package domain

// ItemKind is the closed set of content item variants a parser can emit.
type ItemKind int

const (
	KindText ItemKind = iota
	KindHeading
	KindTable
)

func (k ItemKind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindTable:
		return "table"
	default:
		return "text"
	}
}

// TablePayload carries the structured rows of a table item.
type TablePayload struct {
	Header []string   `yaml:"header" json:"header"`
	Rows   [][]string `yaml:"rows" json:"rows"`
}

// Records returns the table rows keyed by header cell.
// Rows shorter than the header leave the missing columns empty.
func (t *TablePayload) Records() []map[string]string {
	if t == nil {
		return nil
	}
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Header))
		for i, col := range t.Header {
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		out = append(out, rec)
	}
	return out
}

// ContentItem is one atomic unit from a parsed document.
type ContentItem struct {
	Kind       ItemKind
	Text       string
	PageNumber int
	Table      *TablePayload
}

// Page returns the item's page number, defaulting to 1 when unknown.
func (c ContentItem) Page() int {
	if c.PageNumber < 1 {
		return 1
	}
	return c.PageNumber
}

// SectionType is the coarse category assigned to a chunk.
type SectionType string

const (
	SectionHeader    SectionType = "header"
	SectionParties   SectionType = "parties"
	SectionSchedule  SectionType = "schedule"
	SectionRate      SectionType = "rate"
	SectionEquipment SectionType = "equipment"
	SectionTerms     SectionType = "terms"
	SectionMisc      SectionType = "misc"
)

// Chunk is a merged, heading-qualified unit of document text.
type Chunk struct {
	Text        string      `yaml:"text" json:"text"`
	SectionType SectionType `yaml:"section_type" json:"section_type"`
	PageNumber  int         `yaml:"page_number" json:"page_number"`
	DocumentID  string      `yaml:"document_id,omitempty" json:"document_id,omitempty"`
}

// VectorRecord pairs a chunk with its normalized embedding.
type VectorRecord struct {
	Embedding []float64
	Chunk     Chunk
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk   `yaml:"chunk" json:"chunk"`
	Score float64 `yaml:"score" json:"score"`
}

// Filter narrows a vector search. Zero values match everything.
type Filter struct {
	Section    SectionType
	DocumentID string
}

// IsZero reports whether the filter matches every record.
func (f Filter) IsZero() bool {
	return f.Section == "" && f.DocumentID == ""
}

// Match reports whether c passes the filter.
func (f Filter) Match(c Chunk) bool {
	if f.Section != "" && c.SectionType != f.Section {
		return false
	}
	if f.DocumentID != "" && c.DocumentID != f.DocumentID {
		return false
	}
	return true
}

// FieldType is the value type of a proposed schema field.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
)

// SchemaField is one structured field proposed for a document.
type SchemaField struct {
	Name string    `yaml:"name" json:"name"`
	Type FieldType `yaml:"type" json:"type"`
}

// Status is the outcome of confidence gating.
type Status string

const (
	StatusAccepted Status = "accepted"
	StatusRefused  Status = "refused"
)

// ConfidenceResult holds the fused confidence metrics for one question.
type ConfidenceResult struct {
	SchemaScore     float64 `yaml:"schema_score" json:"schema_score"`
	SemanticScore   float64 `yaml:"semantic_score" json:"semantic_score"`
	FinalConfidence float64 `yaml:"final_confidence" json:"final_confidence"`
	Status          Status  `yaml:"status" json:"status"`
}

// FieldMatch is a structured field judged relevant to a question.
type FieldMatch struct {
	Field      string  `yaml:"field" json:"field"`
	Value      any     `yaml:"value" json:"value"`
	Confidence float64 `yaml:"confidence" json:"confidence"`
}
