package chunker

import (
	"strings"

	"docintel/internal/domain"
)

// SectionKeywords lists the keywords that identify one section type.
type SectionKeywords struct {
	Section  domain.SectionType
	Keywords []string
}

// Classifier assigns a section type by case-insensitive substring match.
// Sections are tried in order; the first with a matching keyword wins.
type Classifier struct {
	table []SectionKeywords
}

// DefaultSections is the keyword table for shipping and logistics paperwork.
var DefaultSections = []SectionKeywords{
	{domain.SectionHeader, []string{"bill of lading", "rate confirmation", "invoice", "shipment instructions"}},
	{domain.SectionParties, []string{"shipper", "consignee", "carrier", "bill to", "remit to"}},
	{domain.SectionSchedule, []string{"pickup", "delivery", "date", "time", "appointment"}},
	{domain.SectionRate, []string{"rate", "charge", "amount", "total", "currency"}},
	{domain.SectionEquipment, []string{"truck", "trailer", "container", "weight", "dimensions"}},
	{domain.SectionTerms, []string{"terms", "conditions", "liability", "insurance"}},
}

func DefaultClassifier() *Classifier { return NewClassifier(DefaultSections) }

func NewClassifier(table []SectionKeywords) *Classifier {
	lowered := make([]SectionKeywords, len(table))
	for i, s := range table {
		kws := make([]string, len(s.Keywords))
		for j, kw := range s.Keywords {
			kws[j] = strings.ToLower(kw)
		}
		lowered[i] = SectionKeywords{Section: s.Section, Keywords: kws}
	}
	return &Classifier{table: lowered}
}

// Classify returns the section of text, or misc when nothing matches.
func (c *Classifier) Classify(text string) domain.SectionType {
	lower := strings.ToLower(text)
	for _, s := range c.table {
		for _, kw := range s.Keywords {
			if strings.Contains(lower, kw) {
				return s.Section
			}
		}
	}
	return domain.SectionMisc
}
