package sdrf

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/sdrf-annotator/backend/internal/ontology"
)

// Modification position values recognized by SDRF.
const (
	PositionAnywhere = "Anywhere"
	PositionAnyNTerm = "Any N-term"
	PositionAnyCTerm = "Any C-term"
	PositionProtNTerm = "Protein N-term"
	PositionProtCTerm = "Protein C-term"
)

// EncodeModifications renders a Unimod match as key-value suggestions.
// Target residues whose monoisotopic mass deltas are identical collapse into
// one suggestion with a merged TA list; residues with distinct deltas yield
// separate suggestions. Sub-fields without a source value are omitted.
func EncodeModifications(match ontology.MatchResult) []Suggestion {
	groups := groupSitesByMass(match.TargetSites)

	if len(groups) == 0 {
		return []Suggestion{buildModificationSuggestion(match, nil, match.MonoisotopicMass)}
	}

	suggestions := make([]Suggestion, 0, len(groups))
	for _, group := range groups {
		suggestions = append(suggestions, buildModificationSuggestion(match, group.sites, group.mass))
	}
	return suggestions
}

type massGroup struct {
	mass  float64
	sites []ontology.ModificationSite
}

// groupSitesByMass merges sites sharing the same mass delta, keeping the
// first-seen order of groups and deduplicating residues within a group.
func groupSitesByMass(sites []ontology.ModificationSite) []massGroup {
	var groups []massGroup
	index := make(map[int64]int)

	for _, site := range sites {
		if site.Site == "" {
			continue
		}
		key := int64(math.Round(site.MonoMass * 1e4))
		i, ok := index[key]
		if !ok {
			index[key] = len(groups)
			groups = append(groups, massGroup{mass: site.MonoMass})
			i = len(groups) - 1
		}
		if !containsSite(groups[i].sites, site.Site) {
			groups[i].sites = append(groups[i].sites, site)
		}
	}

	return groups
}

func containsSite(sites []ontology.ModificationSite, residue string) bool {
	for _, s := range sites {
		if s.Site == residue {
			return true
		}
	}
	return false
}

func buildModificationSuggestion(match ontology.MatchResult, sites []ontology.ModificationSite, mass float64) Suggestion {
	var parts []string

	if match.OntologyName != "" {
		parts = append(parts, "NT="+match.OntologyName)
	}
	if match.Accession != "" {
		parts = append(parts, "AC="+match.Accession)
	}

	if len(sites) > 0 {
		residues := make([]string, 0, len(sites))
		for _, site := range sites {
			residues = append(residues, site.Site)
		}
		sort.Strings(residues)
		parts = append(parts, "TA="+strings.Join(residues, ","))
	}

	parts = append(parts, "MT="+modificationType(match, sites))

	if position := modificationPosition(match, sites); position != "" {
		parts = append(parts, "PP="+position)
	}

	if mass != 0 {
		parts = append(parts, "MM="+strconv.FormatFloat(mass, 'f', -1, 64))
	}

	return Suggestion{
		Value:         strings.Join(parts, ";"),
		Confidence:    match.Confidence,
		Source:        SourceOntology,
		OntologyType:  match.OntologyType,
		OntologyID:    match.OntologyID,
		Accession:     match.Accession,
		MatchType:     string(match.MatchType),
		ExtractedTerm: match.ExtractedTerm,
	}
}

// modificationType infers Fixed or Variable from the Unimod classification:
// chemical derivatives and isotopic labels are applied uniformly in sample
// prep, everything else is treated as variable.
func modificationType(match ontology.MatchResult, sites []ontology.ModificationSite) string {
	classification := ""
	for _, site := range sites {
		if site.Classification != "" {
			classification = site.Classification
			break
		}
	}
	lowered := strings.ToLower(classification)
	if strings.Contains(lowered, "chemical derivative") || strings.Contains(lowered, "isotopic label") {
		return "Fixed"
	}
	return "Variable"
}

// modificationPosition prefers the site's recorded position, then N-/C-term
// cues in the modification name, then Anywhere.
func modificationPosition(match ontology.MatchResult, sites []ontology.ModificationSite) string {
	for _, site := range sites {
		if site.Position != "" {
			return site.Position
		}
	}

	lowered := strings.ToLower(match.OntologyName)
	switch {
	case strings.Contains(lowered, "protein n-term"):
		return PositionProtNTerm
	case strings.Contains(lowered, "protein c-term"):
		return PositionProtCTerm
	case strings.Contains(lowered, "n-term"):
		return PositionAnyNTerm
	case strings.Contains(lowered, "c-term"):
		return PositionAnyCTerm
	}
	return PositionAnywhere
}
