package sdrf

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	ageValuePattern = regexp.MustCompile(`^\d{1,3}Y(-\d{1,3}Y)?$`)
	keyValuePattern = regexp.MustCompile(`^[A-Z]{2}=`)
)

// ValidateValue checks whether a value is plausibly well formed for a
// column. Key-value columns must carry at least a name term; numeric
// columns must parse. Everything else just needs to be non-blank.
func ValidateValue(column, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}

	switch column {
	case ColModification, ColCleavageAgent:
		return hasNameTerm(value)
	case ColAge:
		return ageValuePattern.MatchString(strings.ToUpper(strings.ReplaceAll(value, " ", "")))
	case ColSex:
		lower := strings.ToLower(value)
		return lower == "female" || lower == "male" || lower == "unknown"
	case ColFraction, ColBiologicalReplicate, ColTechnicalReplicate:
		_, err := strconv.Atoi(value)
		return err == nil
	}
	return true
}

// hasNameTerm reports whether a semicolon-delimited key-value encoding
// contains an NT= part with a value.
func hasNameTerm(value string) bool {
	for _, part := range strings.Split(value, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "NT=") && len(part) > 3 {
			return true
		}
		if !keyValuePattern.MatchString(part) && part != "" {
			// a bare term with no key-value parts is accepted too
			if !strings.Contains(value, "=") {
				return true
			}
		}
	}
	return false
}
