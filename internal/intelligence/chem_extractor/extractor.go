// Package chem_extractor finds chemical mentions in free text and resolves
// them to formulas known by the thermodynamic table.
package chem_extractor

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/logging"
)

// ChemicalEntityType classifies a recognised mention.
type ChemicalEntityType string

const (
	EntityCommonName       ChemicalEntityType = "COMMON_NAME"
	EntityAbbreviation     ChemicalEntityType = "ABBREVIATION"
	EntityMolecularFormula ChemicalEntityType = "MOLECULAR_FORMULA"
)

const (
	sourceDictionary = "dictionary"
	sourceRegex      = "regex"
)

// RawChemicalEntity is one chemical mention. Offsets are byte offsets into
// the NFC-normalised, whitespace-collapsed text.
type RawChemicalEntity struct {
	Text        string             `json:"text"`
	StartOffset int                `json:"start_offset"`
	EndOffset   int                `json:"end_offset"`
	EntityType  ChemicalEntityType `json:"entity_type"`
	Confidence  float64            `json:"confidence"`
	Context     string             `json:"context,omitempty"`
	Source      string             `json:"source"`
	// Formula is set for dictionary matches.
	Formula string `json:"formula,omitempty"`
}

// ExtractorConfig holds tuneable parameters for extraction.
type ExtractorConfig struct {
	MinConfidence     float64
	ContextWindowSize int
	MaxTextLength     int
}

// DefaultExtractorConfig returns the production defaults.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		MinConfidence:     0.60,
		ContextWindowSize: 40,
		MaxTextLength:     100000,
	}
}

var formulaRe = regexp.MustCompile(
	`\b([A-Z][a-z]?\d*(?:[A-Z][a-z]?\d*|\((?:[A-Z][a-z]?\d*)+\)\d*)*)\b(\((?:s|l|g|aq)\))?`)

// Extractor combines dictionary and pattern matching.
type Extractor struct {
	dict      Dictionary
	validator *EntityValidator
	config    ExtractorConfig
	logger    logging.Logger
	observe   func(ChemicalEntityType)
}

// NewExtractor builds an Extractor. dict may be nil, leaving only formula
// matching.
func NewExtractor(dict Dictionary, cfg ExtractorConfig, logger logging.Logger) *Extractor {
	def := DefaultExtractorConfig()
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = def.MinConfidence
	}
	if cfg.ContextWindowSize <= 0 {
		cfg.ContextWindowSize = def.ContextWindowSize
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = def.MaxTextLength
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Extractor{
		dict:      dict,
		validator: NewEntityValidator(),
		config:    cfg,
		logger:    logger.Named("extractor"),
	}
}

// OnEntity registers a callback run for every returned entity.
func (e *Extractor) OnEntity(fn func(ChemicalEntityType)) { e.observe = fn }

// Extract returns the chemical mentions of text in order of appearance.
// Dictionary matches win over overlapping formula matches, and repeated
// mentions are reported once.
func (e *Extractor) Extract(ctx context.Context, text string) ([]*RawChemicalEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cleaned := truncate(normaliseText(text), e.config.MaxTextLength)
	if cleaned == "" {
		return []*RawChemicalEntity{}, nil
	}

	var dictEntities []*RawChemicalEntity
	if e.dict != nil {
		dictEntities = e.dictionaryMatch(cleaned)
	}
	merged := mergeSpans(dictEntities, e.regexMatch(cleaned))

	out := make([]*RawChemicalEntity, 0, len(merged))
	seen := make(map[string]struct{}, len(merged))
	for _, ent := range merged {
		ent.Context = extractContext(cleaned, ent.StartOffset, ent.EndOffset, e.config.ContextWindowSize)
		res := e.validator.Validate(ent)
		if !res.IsValid {
			e.logger.Debug("Entity rejected", logging.String("text", ent.Text), logging.Strings("issues", res.Issues))
			continue
		}
		ent.Confidence = res.AdjustedConfidence
		if ent.Confidence < e.config.MinConfidence {
			continue
		}
		key := dedupeKey(ent)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ent)
		if e.observe != nil {
			e.observe(ent.EntityType)
		}
	}
	e.logger.Debug("Extraction complete", logging.Int("entities", len(out)), logging.Int("text_length", len(cleaned)))
	return out, nil
}

// ExtractNames returns the text of every extracted entity.
func (e *Extractor) ExtractNames(ctx context.Context, text string) ([]string, error) {
	ents, err := e.Extract(ctx, text)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ents))
	for i, ent := range ents {
		names[i] = ent.Text
	}
	return names, nil
}

// dictionaryMatch scans tokens left to right, trying the longest phrase
// first at every position.
func (e *Extractor) dictionaryMatch(text string) []*RawChemicalEntity {
	tokens := tokenise(text)
	maxWords := e.dict.MaxWords()
	var entities []*RawChemicalEntity

	for i := 0; i < len(tokens); {
		matched := 0
		limit := maxWords
		if rem := len(tokens) - i; rem < limit {
			limit = rem
		}
		for n := limit; n >= 1; n-- {
			last := tokens[i+n-1]
			if !joinable(text, tokens[i:i+n]) {
				continue
			}
			start, end := tokens[i].start, last.start+len(last.text)
			entry, ok := e.dict.Lookup(text[start:end])
			if !ok {
				continue
			}
			conf := 1.0
			if entry.EntityType == EntityAbbreviation {
				conf = 0.95
			}
			entities = append(entities, &RawChemicalEntity{
				Text:        text[start:end],
				StartOffset: start,
				EndOffset:   end,
				EntityType:  entry.EntityType,
				Confidence:  conf,
				Source:      sourceDictionary,
				Formula:     entry.Formula,
			})
			matched = n
			break
		}
		if matched == 0 {
			matched = 1
		}
		i += matched
	}
	return entities
}

func (e *Extractor) regexMatch(text string) []*RawChemicalEntity {
	var entities []*RawChemicalEntity
	for _, loc := range formulaRe.FindAllStringSubmatchIndex(text, -1) {
		end := loc[3]
		if loc[4] >= 0 {
			end = loc[5]
		}
		candidate := text[loc[2]:end]
		if !looksLikeMolecularFormula(text[loc[2]:loc[3]]) {
			continue
		}
		entities = append(entities, &RawChemicalEntity{
			Text:        candidate,
			StartOffset: loc[2],
			EndOffset:   end,
			EntityType:  EntityMolecularFormula,
			Confidence:  0.85,
			Source:      sourceRegex,
		})
	}
	return entities
}

// joinable reports whether consecutive tokens are separated only by spaces
// or parentheses, so "iron(III) oxide" is one phrase but "iron, oxide" is not.
func joinable(text string, toks []wordToken) bool {
	for k := 1; k < len(toks); k++ {
		gap := text[toks[k-1].start+len(toks[k-1].text) : toks[k].start]
		for _, r := range gap {
			if r != ' ' && r != '(' && r != ')' {
				return false
			}
		}
	}
	return true
}

// mergeSpans keeps every primary entity and each secondary entity that does
// not overlap one, sorted by offset.
func mergeSpans(primary, secondary []*RawChemicalEntity) []*RawChemicalEntity {
	out := append([]*RawChemicalEntity(nil), primary...)
	for _, s := range secondary {
		overlaps := false
		for _, p := range primary {
			if spansOverlap(s.StartOffset, s.EndOffset, p.StartOffset, p.EndOffset) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartOffset < out[j].StartOffset
	})
	return out
}

func spansOverlap(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}

func dedupeKey(ent *RawChemicalEntity) string {
	if ent.EntityType == EntityMolecularFormula {
		return ent.Text
	}
	return normaliseKey(ent.Text)
}

// normaliseText applies NFC and collapses whitespace runs to one space.
func normaliseText(text string) string {
	text = norm.NFC.String(text)
	var b strings.Builder
	b.Grow(len(text))
	prevSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !prevSpace {
				b.WriteRune(' ')
			}
			prevSpace = true
			continue
		}
		b.WriteRune(r)
		prevSpace = false
	}
	return strings.TrimSpace(b.String())
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

type wordToken struct {
	text  string
	start int
}

func tokenise(text string) []wordToken {
	var tokens []wordToken
	inWord := false
	wordStart := 0
	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '\'' {
			if !inWord {
				wordStart = i
				inWord = true
			}
			continue
		}
		if inWord {
			tokens = append(tokens, wordToken{text: text[wordStart:i], start: wordStart})
			inWord = false
		}
	}
	if inWord {
		tokens = append(tokens, wordToken{text: text[wordStart:], start: wordStart})
	}
	return tokens
}

func extractContext(text string, start, end, window int) string {
	from := start - window
	if from < 0 {
		from = 0
	}
	for from > 0 && !utf8.RuneStart(text[from]) {
		from--
	}
	to := end + window
	if to >= len(text) {
		return text[from:]
	}
	for to < len(text) && !utf8.RuneStart(text[to]) {
		to++
	}
	return text[from:to]
}
