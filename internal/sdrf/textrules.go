package sdrf

import (
	"fmt"
	"regexp"
	"strings"
)

// Text-pattern rules derive cleavage-agent, label and demographic suggestions
// directly from the step text, without ontology matching. They carry lower
// confidences than ontology-backed suggestions and a distinct source tag.

type cleavageAgent struct {
	pattern   *regexp.Regexp
	name      string
	accession string
	// cleavageSite is the SDRF CS value, a PCRE-style site expression kept
	// as a literal string (it is data for downstream tools, not compiled).
	cleavageSite string
}

var cleavageAgents = []cleavageAgent{
	{regexp.MustCompile(`(?i)\btrypsin\b`), "Trypsin", "MS:1001251", "(?<=[KR])(?!P)"},
	{regexp.MustCompile(`(?i)\blys-?c\b`), "Lys-C", "MS:1001309", "(?<=K)(?!P)"},
	{regexp.MustCompile(`(?i)\bchymotrypsin\b`), "Chymotrypsin", "MS:1001306", "(?<=[FYWL])(?!P)"},
	{regexp.MustCompile(`(?i)\barg-?c\b`), "Arg-C", "MS:1001303", "(?<=R)(?!P)"},
	{regexp.MustCompile(`(?i)\basp-?n\b`), "Asp-N", "MS:1001304", "(?=[BD])"},
	{regexp.MustCompile(`(?i)\bglu-?c\b`), "Glu-C", "", "(?<=[DE])(?!P)"},
	{regexp.MustCompile(`(?i)\bpepsin\b`), "Pepsin A", "MS:1001955", "(?<=[FL])"},
	{regexp.MustCompile(`(?i)\bno\s+(?:digestion|cleavage)\b`), "NoEnzyme", "MS:1001091", ""},
}

var (
	tmtChannelPattern = regexp.MustCompile(`(?i)\btmt\s?-?(1[0-3][0-9][NC]?|\d{3}[NC]?)\b`)
	tmtPlainPattern   = regexp.MustCompile(`(?i)\btmt(?:\s?pro)?\b`)
	itraqPattern      = regexp.MustCompile(`(?i)\bitraq\s?-?(\d{3})\b`)
	silacPattern      = regexp.MustCompile(`(?i)\bsilac(?:\s+(heavy|medium|light))?\b`)
	labelFreePattern  = regexp.MustCompile(`(?i)\blabel[- ]free\b`)

	ageRangePattern = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:-|–|to)\s*(\d{1,3})\s*(?:years?|yrs?)(?:\s+old)?\b`)
	agePattern      = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:years?|yrs?|y/?o)(?:\s+old)?\b`)
	sexPattern      = regexp.MustCompile(`(?i)\b(female|male)\b`)

	bioReplicatePattern  = regexp.MustCompile(`(?i)\bbiological\s+replicates?\s*[:#]?\s*(\d+)`)
	techReplicatePattern = regexp.MustCompile(`(?i)\btechnical\s+replicates?\s*[:#]?\s*(\d+)`)
	fractionPattern      = regexp.MustCompile(`(?i)\bfractions?\s*[:#]?\s*(\d+)`)
)

// DeriveTextSuggestions runs the independent text-pattern rules over a step
// description and returns suggestions keyed by SDRF column.
func DeriveTextSuggestions(text string) map[string][]Suggestion {
	suggestions := make(map[string][]Suggestion)
	if strings.TrimSpace(text) == "" {
		return suggestions
	}

	add := func(column string, s Suggestion) {
		for _, existing := range suggestions[column] {
			if existing.Value == s.Value {
				return
			}
		}
		suggestions[column] = append(suggestions[column], s)
	}

	for _, agent := range cleavageAgents {
		match := agent.pattern.FindString(text)
		if match == "" {
			continue
		}
		parts := []string{"NT=" + agent.name}
		if agent.accession != "" {
			parts = append(parts, "AC="+agent.accession)
		}
		if agent.cleavageSite != "" {
			parts = append(parts, "CS="+agent.cleavageSite)
		}
		add(ColCleavageAgent, Suggestion{
			Value:         strings.Join(parts, ";"),
			Confidence:    0.8,
			Source:        SourceTextPattern,
			ExtractedTerm: match,
		})
	}

	for _, m := range tmtChannelPattern.FindAllStringSubmatch(text, -1) {
		add(ColLabel, Suggestion{
			Value:         "TMT" + strings.ToUpper(m[1]),
			Confidence:    0.8,
			Source:        SourceTextPattern,
			ExtractedTerm: m[0],
		})
	}
	if len(suggestions[ColLabel]) == 0 {
		if m := tmtPlainPattern.FindString(text); m != "" {
			add(ColLabel, Suggestion{Value: "TMT", Confidence: 0.5, Source: SourceTextPattern, ExtractedTerm: m})
		}
	}
	for _, m := range itraqPattern.FindAllStringSubmatch(text, -1) {
		add(ColLabel, Suggestion{
			Value:         "iTRAQ" + m[1],
			Confidence:    0.8,
			Source:        SourceTextPattern,
			ExtractedTerm: m[0],
		})
	}
	if m := silacPattern.FindStringSubmatch(text); m != nil {
		value := "SILAC"
		confidence := 0.5
		if m[1] != "" {
			value = "SILAC " + strings.ToLower(m[1])
			confidence = 0.7
		}
		add(ColLabel, Suggestion{Value: value, Confidence: confidence, Source: SourceTextPattern, ExtractedTerm: m[0]})
	}
	if m := labelFreePattern.FindString(text); m != "" {
		add(ColLabel, Suggestion{Value: "label free sample", Confidence: 0.7, Source: SourceTextPattern, ExtractedTerm: m})
	}

	// Age ranges first so "25-65 years" is not also read as "65 years".
	if m := ageRangePattern.FindStringSubmatch(text); m != nil {
		add(ColAge, Suggestion{
			Value:         fmt.Sprintf("%sY-%sY", m[1], m[2]),
			Confidence:    0.6,
			Source:        SourceTextPattern,
			ExtractedTerm: m[0],
		})
	} else if m := agePattern.FindStringSubmatch(text); m != nil {
		add(ColAge, Suggestion{
			Value:         m[1] + "Y",
			Confidence:    0.6,
			Source:        SourceTextPattern,
			ExtractedTerm: m[0],
		})
	}

	if m := sexPattern.FindStringSubmatch(text); m != nil {
		add(ColSex, Suggestion{
			Value:         strings.ToLower(m[1]),
			Confidence:    0.6,
			Source:        SourceTextPattern,
			ExtractedTerm: m[0],
		})
	}

	if m := bioReplicatePattern.FindStringSubmatch(text); m != nil {
		add(ColBiologicalReplicate, Suggestion{Value: m[1], Confidence: 0.5, Source: SourceTextPattern, ExtractedTerm: m[0]})
	}
	if m := techReplicatePattern.FindStringSubmatch(text); m != nil {
		add(ColTechnicalReplicate, Suggestion{Value: m[1], Confidence: 0.5, Source: SourceTextPattern, ExtractedTerm: m[0]})
	}
	if m := fractionPattern.FindStringSubmatch(text); m != nil {
		add(ColFraction, Suggestion{Value: m[1], Confidence: 0.4, Source: SourceTextPattern, ExtractedTerm: m[0]})
	}

	return suggestions
}
