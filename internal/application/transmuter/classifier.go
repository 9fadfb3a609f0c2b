package transmuter

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Classification labels.
const (
	LabelStoichiometry = "stoichiometry"
	LabelOther         = "not stoichiometry"
)

// DefaultThreshold is the cosine score above which a question counts as
// stoichiometry even without an anchor keyword.
const DefaultThreshold = 0.2

// Classification is the verdict for one piece of text.
type Classification struct {
	Label           string   `json:"label"`
	IsStoichiometry bool     `json:"is_stoichiometry"`
	Score           float64  `json:"score"`
	Threshold       float64  `json:"threshold"`
	Anchors         []string `json:"anchors,omitempty"`
}

// Classifier decides whether a question asks for a stoichiometry answer.
// It compares the text's token bag against a keyword profile.
type Classifier struct {
	mu        sync.RWMutex
	profile   map[string]float64
	norm      float64
	threshold float64
	observe   func(Classification)
}

// NewClassifier builds a classifier over keywords. A threshold outside (0, 1]
// falls back to DefaultThreshold.
func NewClassifier(keywords []string, threshold float64) *Classifier {
	c := &Classifier{}
	c.SetKeywords(keywords)
	c.SetThreshold(threshold)
	return c
}

// OnClassify registers fn to run after every Classify. Not safe to call
// concurrently with Classify.
func (c *Classifier) OnClassify(fn func(Classification)) { c.observe = fn }

// SetThreshold replaces the threshold. Safe to call while classifying.
func (c *Classifier) SetThreshold(threshold float64) {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	c.mu.Lock()
	c.threshold = threshold
	c.mu.Unlock()
}

// Threshold returns the current threshold.
func (c *Classifier) Threshold() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.threshold
}

// SetKeywords replaces the keyword profile.
func (c *Classifier) SetKeywords(keywords []string) {
	profile := make(map[string]float64, len(keywords))
	for _, kw := range keywords {
		for _, tok := range tokenise(kw) {
			profile[tok] = 1
		}
	}
	c.mu.Lock()
	c.profile = profile
	c.norm = vectorNorm(profile)
	c.mu.Unlock()
}

// Classify scores text. Anchor words force a stoichiometry verdict.
func (c *Classifier) Classify(text string) Classification {
	bag := make(map[string]float64)
	var anchors []string
	seen := make(map[string]bool)
	for _, tok := range tokenise(text) {
		bag[tok]++
		if isAnchor(tok) && !seen[tok] {
			seen[tok] = true
			anchors = append(anchors, tok)
		}
	}
	sort.Strings(anchors)

	c.mu.RLock()
	score := cosine(bag, c.profile, c.norm)
	threshold := c.threshold
	c.mu.RUnlock()

	out := Classification{
		Label:     LabelOther,
		Score:     score,
		Threshold: threshold,
		Anchors:   anchors,
	}
	if score >= threshold || len(anchors) > 0 {
		out.Label = LabelStoichiometry
		out.IsStoichiometry = true
	}
	if c.observe != nil {
		c.observe(out)
	}
	return out
}

func isAnchor(tok string) bool {
	return tok == "stoichiometry" || tok == "balance" || strings.HasPrefix(tok, "react")
}

// tokenise lower-cases NFC text and splits it on anything that is not a
// letter or digit.
func tokenise(text string) []string {
	text = strings.ToLower(norm.NFC.String(text))
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func cosine(bag, profile map[string]float64, profileNorm float64) float64 {
	if len(bag) == 0 || profileNorm == 0 {
		return 0
	}
	var dot float64
	for tok, n := range bag {
		dot += n * profile[tok]
	}
	if dot == 0 {
		return 0
	}
	return dot / (vectorNorm(bag) * profileNorm)
}

func vectorNorm(v map[string]float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
