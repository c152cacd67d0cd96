package extraction

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jdkato/prose/v2"
)

// ExtractedTerm is one candidate term found in a protocol step description.
// Positions refer to the cleaned (markup-stripped) text.
type ExtractedTerm struct {
	Text       string   `json:"text"`
	TermType   TermType `json:"term_type"`
	Context    string   `json:"context,omitempty"`
	Confidence float64  `json:"confidence"`
	StartPos   int      `json:"start_pos"`
	EndPos     int      `json:"end_pos"`
	Source     string   `json:"source,omitempty"`
}

const (
	SourcePattern = "pattern"
	SourceAI      = "ai"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Extractor applies the category rule groups to step text. It is stateless
// and safe for concurrent use.
type Extractor struct {
	contextWindow int
}

func NewExtractor(contextWindow int) *Extractor {
	if contextWindow <= 0 {
		contextWindow = 50
	}
	return &Extractor{contextWindow: contextWindow}
}

// Extract scans text with every rule group and returns candidate terms sorted
// by descending confidence then position, deduplicated by exact span and
// lowercased text. Empty or whitespace-only input yields an empty list.
func (e *Extractor) Extract(text string) []ExtractedTerm {
	cleaned := CleanStepText(text)
	if cleaned == "" {
		return []ExtractedTerm{}
	}

	sentences := segmentSentences(cleaned)

	type spanKey struct {
		start int
		end   int
		text  string
	}
	best := make(map[spanKey]ExtractedTerm)

	for _, group := range ruleGroups {
		for _, pattern := range group.patterns {
			for _, loc := range pattern.FindAllStringIndex(cleaned, -1) {
				start, end := loc[0], loc[1]
				matched := cleaned[start:end]

				key := spanKey{start, end, strings.ToLower(matched)}
				if existing, ok := best[key]; ok && existing.Confidence >= group.confidence {
					continue
				}

				best[key] = ExtractedTerm{
					Text:       matched,
					TermType:   group.termType,
					Context:    e.contextFor(cleaned, sentences, start, end),
					Confidence: group.confidence,
					StartPos:   start,
					EndPos:     end,
					Source:     SourcePattern,
				}
			}
		}
	}

	terms := make([]ExtractedTerm, 0, len(best))
	for _, term := range best {
		terms = append(terms, term)
	}

	sort.SliceStable(terms, func(i, j int) bool {
		if terms[i].Confidence != terms[j].Confidence {
			return terms[i].Confidence > terms[j].Confidence
		}
		return terms[i].StartPos < terms[j].StartPos
	})

	return terms
}

// contextFor returns the sentence containing the span when segmentation found
// one, otherwise a fixed character window around it.
func (e *Extractor) contextFor(text string, sentences []sentenceSpan, start, end int) string {
	for _, s := range sentences {
		if start >= s.start && end <= s.end {
			return strings.TrimSpace(text[s.start:s.end])
		}
	}

	lo := start - e.contextWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + e.contextWindow
	if hi > len(text) {
		hi = len(text)
	}
	return strings.TrimSpace(text[lo:hi])
}

type sentenceSpan struct {
	start int
	end   int
}

// segmentSentences locates sentence boundaries in text. Falls back to a
// single span covering everything when segmentation fails.
func segmentSentences(text string) []sentenceSpan {
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return []sentenceSpan{{start: 0, end: len(text)}}
	}

	var spans []sentenceSpan
	offset := 0
	for _, sentence := range doc.Sentences() {
		idx := strings.Index(text[offset:], sentence.Text)
		if idx < 0 {
			continue
		}
		start := offset + idx
		end := start + len(sentence.Text)
		spans = append(spans, sentenceSpan{start: start, end: end})
		offset = end
	}

	if len(spans) == 0 {
		return []sentenceSpan{{start: 0, end: len(text)}}
	}
	return spans
}

// CleanStepText strips HTML markup (protocols.io step descriptions arrive as
// HTML fragments) and collapses whitespace. Plain text passes through with
// whitespace normalized only.
func CleanStepText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	if strings.ContainsAny(text, "<>") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
		if err == nil {
			doc.Find("script, style").Each(func(i int, s *goquery.Selection) {
				s.Remove()
			})
			if extracted := doc.Text(); strings.TrimSpace(extracted) != "" {
				text = extracted
			}
		}
	}

	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
