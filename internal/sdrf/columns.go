package sdrf

import "github.com/sdrf-annotator/backend/internal/ontology"

// SDRF-Proteomics column names. Downstream exporters key off these literal
// strings; do not rephrase them.
const (
	ColOrganism            = "organism"
	ColOrganismPart        = "organism part"
	ColDisease             = "disease"
	ColSubcellular         = "subcellular localization"
	ColCellType            = "cell type"
	ColInstrument          = "instrument"
	ColCleavageAgent       = "cleavage agent details"
	ColModification        = "modification parameters"
	ColLabel               = "label"
	ColAge                 = "age"
	ColSex                 = "sex"
	ColBiologicalReplicate = "biological replicate"
	ColTechnicalReplicate  = "technical replicate"
	ColFraction            = "fraction identifier"
	ColEnrichment          = "enrichment process"
	ColReduction           = "reduction reagent"
	ColAlkylation          = "alkylation reagent"
	ColCompound            = "compound"
	ColDissociation        = "dissociation method"
)

// vocabularyColumns maps a vocabulary type straight to its SDRF column.
var vocabularyColumns = map[string]string{
	ontology.VocabSpecies:      ColOrganism,
	ontology.VocabNCBITaxonomy: ColOrganism,
	ontology.VocabTissue:       ColOrganismPart,
	ontology.VocabUberon:       ColOrganismPart,
	ontology.VocabHumanDisease: ColDisease,
	ontology.VocabMondo:        ColDisease,
	ontology.VocabSubcellular:  ColSubcellular,
	ontology.VocabUnimod:       ColModification,
}

// termTypeColumns resolves generic vocabularies (MS terms, PSI-MS, ChEBI)
// via the record's own sub-category field.
var termTypeColumns = map[string]string{
	"instrument":          ColInstrument,
	"cleavage agent":      ColCleavageAgent,
	"dissociation method": ColDissociation,
	"label":               ColLabel,
	"reduction reagent":   ColReduction,
	"alkylation reagent":  ColAlkylation,
	"enrichment process":  ColEnrichment,
	"cell line":           ColCellType,
	"compound":            ColCompound,
}

// ColumnFor resolves the SDRF column for a match. Generic vocabularies need
// the record's term type; matches without a resolvable column are dropped by
// the generator rather than guessed.
func ColumnFor(vocabType, termType string) (string, bool) {
	if column, ok := vocabularyColumns[vocabType]; ok {
		return column, true
	}

	switch vocabType {
	case ontology.VocabMSTerms, ontology.VocabPSIMS, ontology.VocabChEBI:
		column, ok := termTypeColumns[termType]
		return column, ok
	}

	return "", false
}
