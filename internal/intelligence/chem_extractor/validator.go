package chem_extractor

import (
	"strings"
	"unicode"

	"github.com/turtacn/alchemist/internal/domain/formula"
)

// ValidationResult holds the outcome of validating a single entity.
type ValidationResult struct {
	IsValid            bool     `json:"is_valid"`
	AdjustedConfidence float64  `json:"adjusted_confidence"`
	Issues             []string `json:"issues,omitempty"`
}

// Upper-case words that parse as formulas but are almost never chemistry.
var blacklistAbbreviations = map[string]bool{
	"DNA": true, "RNA": true, "ATP": true, "GTP": true, "USA": true,
	"NASA": true, "CEO": true, "PDF": true, "HTML": true, "API": true,
	"OK": true, "ID": true, "UK": true, "US": true, "II": true,
	"III": true, "IV": true, "VI": true, "CV": true, "FAQ": true,
}

var chemistryContextWords = []string{
	"react", "burn", "combust", "oxid", "reduc", "dissolv", "mol",
	"gas", "solution", "compound", "yield", "produce", "form",
}

// EntityValidator rejects implausible mentions and adjusts confidence.
type EntityValidator struct{}

// NewEntityValidator creates an EntityValidator.
func NewEntityValidator() *EntityValidator { return &EntityValidator{} }

// Validate checks one entity.
func (v *EntityValidator) Validate(entity *RawChemicalEntity) *ValidationResult {
	result := &ValidationResult{IsValid: true, AdjustedConfidence: entity.Confidence}
	text := strings.TrimSpace(entity.Text)
	if text == "" {
		result.IsValid = false
		result.AdjustedConfidence = 0
		result.Issues = append(result.Issues, "empty text")
		return result
	}

	switch entity.EntityType {
	case EntityMolecularFormula:
		v.validateMolecularFormula(result, text)
	case EntityCommonName, EntityAbbreviation:
		if entity.Formula == "" {
			result.Issues = append(result.Issues, "dictionary entry has no formula")
			result.AdjustedConfidence -= 0.20
		}
	}
	if result.IsValid {
		v.validateContext(result, entity.Context)
	}
	result.AdjustedConfidence = clampConfidence(result.AdjustedConfidence)
	return result
}

func (v *EntityValidator) validateMolecularFormula(result *ValidationResult, text string) {
	base := formula.SeparateState(text)
	if blacklistAbbreviations[base] {
		result.IsValid = false
		result.Issues = append(result.Issues, "blacklisted abbreviation")
		return
	}
	comp, err := formula.Parse(text)
	if err != nil {
		result.IsValid = false
		result.Issues = append(result.Issues, "molecular formula does not parse")
		return
	}
	for z, n := range comp {
		if z != formula.ChargeKey && n > 1000 {
			result.IsValid = false
			result.Issues = append(result.Issues, "unreasonable atom count")
			return
		}
	}
	result.AdjustedConfidence += 0.10
}

// validateContext nudges confidence up when the surrounding words talk about
// chemistry.
func (v *EntityValidator) validateContext(result *ValidationResult, context string) {
	if context == "" {
		return
	}
	lower := strings.ToLower(context)
	for _, w := range chemistryContextWords {
		if strings.Contains(lower, w) {
			result.AdjustedConfidence += 0.05
			return
		}
	}
}

// looksLikeMolecularFormula filters regex hits before validation: a formula
// needs a digit or at least two element symbols.
func looksLikeMolecularFormula(s string) bool {
	if len(s) < 2 || len(s) > 50 || !unicode.IsUpper(rune(s[0])) {
		return false
	}
	upper, digit := 0, false
	for _, r := range s {
		if unicode.IsUpper(r) {
			upper++
		}
		if unicode.IsDigit(r) {
			digit = true
		}
	}
	return digit || upper >= 2
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
