package extraction

import "regexp"

type TermType string

const (
	TermOrganism     TermType = "organism"
	TermTissue       TermType = "tissue"
	TermDisease      TermType = "disease"
	TermInstrument   TermType = "instrument"
	TermChemical     TermType = "chemical"
	TermModification TermType = "modification"
	TermProcedure    TermType = "procedure"
	TermCellular     TermType = "cellular_component"
)

// ruleGroup is one category of extraction rules. Every hit from the group
// receives the group's base confidence.
type ruleGroup struct {
	termType   TermType
	confidence float64
	patterns   []*regexp.Regexp
}

/// ruleGroups is ordered: explicit, specific vocabulary first, generic
// procedure keywords last. Latin binomials score above common names, which
// score above bare lab verbs.
var ruleGroups = []ruleGroup{
	{
		termType:   TermOrganism,
		confidence: 0.9,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:homo sapiens|mus musculus|rattus norvegicus|saccharomyces cerevisiae|escherichia coli|danio rerio|drosophila melanogaster|arabidopsis thaliana|caenorhabditis elegans|sus scrofa|bos taurus|gallus gallus)\b`),
		},
	},
	{
		termType:   TermOrganism,
		confidence: 0.8,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:human|mouse|murine|rat|yeast|zebrafish|bovine|porcine|rabbit|chicken)\b`),
			regexp.MustCompile(`(?i)\be\.?\s?coli\b`),
		},
	},
	{
		termType:   TermInstrument,
		confidence: 0.85,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:orbitrap(?:\s+(?:fusion(?:\s+lumos)?|eclipse|exploris\s*\d*|astral|velos))?|q\s?exactive(?:\s+(?:hf-?x?|plus))?|timstof(?:\s+(?:pro|flex|scp))?|ltq(?:\s+orbitrap)?|triple\s?tof\s*\d*|maxis(?:\s+ii)?|impact\s+ii|synapt\s+g2)\b`),
			regexp.MustCompile(`(?i)\b(?:mass spectromet(?:er|ry)|nano[- ]?lc|u?h?plc|lc[-/]ms(?:[-/]ms)?)\b`),
		},
	},
	{
		termType:   TermModification,
		confidence: 0.85,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:phosphorylat(?:ion|ed)|phospho(?:peptide|protein)?|acetylat(?:ion|ed)|acetyl|methylat(?:ion|ed)|methyl|ubiquitin(?:at(?:ion|ed)|ylat(?:ion|ed))?|glycosylat(?:ion|ed)|oxidation|oxidized|carbamidomethyl(?:at(?:ion|ed))?|deamidat(?:ion|ed)|sumoylat(?:ion|ed))\b`),
		},
	},
	{
		termType:   TermChemical,
		confidence: 0.8,
		patterns: []*regexp.Regexp{
			// Proteolytic enzymes read as chemical reagents here; the SDRF
			// cleavage-agent rules handle their column mapping separately.
			regexp.MustCompile(`(?i)\b(?:trypsin|lys-?c|chymotrypsin|glu-?c|asp-?n|arg-?c|pepsin|proteinase\s+k|elastase)\b`),
			regexp.MustCompile(`(?i)\b(?:tmt(?:\s?pro)?\s?\d*[nc]?|itraq\s?\d*|silac|label[- ]free)\b`),
		},
	},
	{
		termType:   TermChemical,
		confidence: 0.75,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:urea|thiourea|dithiothreitol|dtt|iodoacetamide|iaa|tcep|chloroacetamide|acetonitrile|methanol|ethanol|formic acid|trifluoroacetic acid|tfa|ammonium bicarbonate|triethylammonium bicarbonate|teab|guanidine(?:\s+hydrochloride)?|sodium dodecyl sulfate|sds|tris(?:-hcl)?|edta|egta|pbs|hepes)\b`),
		},
	},
	{
		termType:   TermTissue,
		confidence: 0.8,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:liver|brain|heart|kidney|lung|skeletal muscle|muscle|spleen|pancreas|plasma|serum|whole blood|blood|skin|bone marrow|breast|colon|prostate|ovary|testis|placenta|hippocampus|cerebral cortex|cortex|thyroid|adipose(?:\s+tissue)?)\b`),
		},
	},
	{
		termType:   TermTissue,
		confidence: 0.7,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:hela|hek\s?293t?|jurkat|mcf-?7|a549|u2os|hepg2|k562|nih\s?3t3)\b`),
		},
	},
	{
		termType:   TermDisease,
		confidence: 0.8,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:cancer|carcinoma|adenocarcinoma|tumou?r|leukemia|lymphoma|melanoma|glioblastoma|sarcoma|diabetes(?:\s+mellitus)?|alzheimer'?s?(?:\s+disease)?|parkinson'?s?(?:\s+disease)?|hepatitis|cirrhosis|fibrosis|sepsis)\b`),
		},
	},
	{
		termType:   TermCellular,
		confidence: 0.8,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:mitochondri(?:a|on|al)|nucle(?:us|i|ar)|plasma membrane|membrane|cytoplasm(?:ic)?|cytosol(?:ic)?|ribosom(?:e|es|al)|golgi(?:\s+apparatus)?|endoplasmic reticulum|lysosom(?:e|es|al)|peroxisom(?:e|es|al)|chromatin|exosom(?:e|es|al)|secretome)\b`),
		},
	},
	{
		termType:   TermProcedure,
		confidence: 0.75,
		patterns: []*regexp.Regexp{
			// Enrichment workflows carry more signal than generic verbs.
			regexp.MustCompile(`(?i)\b(?:phosphopeptide enrichment|titanium dioxide|tio2|imac|affinity purification|immunoprecipitation|size exclusion|ion exchange|high[- ]ph(?:\s+reversed[- ]phase)?\s+fractionation)\b`),
		},
	},
	{
		termType:   TermProcedure,
		confidence: 0.6,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:digest(?:ion|ed)?|incubat(?:e|ed|ion)|centrifug(?:e|ed|ation)|sonicat(?:e|ed|ion)|elut(?:e|ed|ion)|precipitat(?:e|ed|ion)|desalt(?:ed|ing)?|reduc(?:e|ed|tion)|alkylat(?:e|ed|ion)|fractionat(?:e|ed|ion)|lys(?:e|ed|is)|homogeniz(?:e|ed|ation)|resuspend(?:ed)?|dissolv(?:e|ed))\b`),
		},
	},
}
