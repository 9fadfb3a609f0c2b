package chem_extractor

import (
	"strings"
	"sync"
	"unicode"

	"github.com/turtacn/alchemist/internal/domain/formula"
	"github.com/turtacn/alchemist/internal/domain/thermo"
)

// DictionaryEntry maps a known name to the formula spelling used by the
// thermodynamic table.
type DictionaryEntry struct {
	Name       string             `json:"name"`
	Formula    string             `json:"formula"`
	EntityType ChemicalEntityType `json:"entity_type"`
}

// Dictionary is an exact-match name lookup.
type Dictionary interface {
	Lookup(name string) (*DictionaryEntry, bool)
	// MaxWords is the longest entry measured in tokens.
	MaxWords() int
	Size() int
}

// CommonNames are everyday names that the thermodynamic table does not carry.
var CommonNames = map[string]string{
	"aluminum":        "Al",
	"aluminum oxide":  "Al2O3",
	"rust":            "Fe2O3",
	"table salt":      "NaCl",
	"rock salt":       "NaCl",
	"dry ice":         "CO2",
	"laughing gas":    "N2O",
	"marble":          "CaCO3",
	"chalk":           "CaCO3",
	"lime":            "CaO",
	"caustic soda":    "NaOH",
	"oil of vitriol":  "H2SO4",
	"muriatic acid":   "HCl",
	"alcohol":         "C2H5OH",
	"grain alcohol":   "C2H5OH",
	"wood alcohol":    "CH3OH",
	"natural gas":     "CH4",
	"marsh gas":       "CH4",
	"sulphur":         "S",
	"sulphur dioxide": "SO2",
	"sulphuric acid":  "H2SO4",
	"hydrogen gas":    "H2",
	"oxygen gas":      "O2",
	"nitrogen gas":    "N2",
	"chlorine gas":    "Cl2",
}

// InMemoryDictionary is a Dictionary backed by maps. Names match
// case-insensitively; symbol-like abbreviations ("Al", "Fe") match only with
// their exact case so ordinary words are not mistaken for elements.
type InMemoryDictionary struct {
	mu       sync.RWMutex
	names    map[string]*DictionaryEntry
	symbols  map[string]*DictionaryEntry
	maxWords int
}

// NewInMemoryDictionary creates an empty dictionary.
func NewInMemoryDictionary() *InMemoryDictionary {
	return &InMemoryDictionary{
		names:   make(map[string]*DictionaryEntry),
		symbols: make(map[string]*DictionaryEntry),
	}
}

// NewTableDictionary indexes every Name and Abbrv of t plus CommonNames.
// Earlier rows win on duplicate names.
func NewTableDictionary(t *thermo.Table) *InMemoryDictionary {
	d := NewInMemoryDictionary()
	for _, row := range t.Rows() {
		base := formula.SeparateState(row.Formula)
		if row.Name != "" {
			d.add(row.Name, base, EntityCommonName, false)
		}
		if row.Abbrv != "" {
			d.add(row.Abbrv, base, EntityAbbreviation, false)
		}
	}
	for name, f := range CommonNames {
		d.add(name, f, EntityCommonName, false)
	}
	return d
}

// AddName registers name → formula, replacing any existing entry.
func (d *InMemoryDictionary) AddName(name, f string, typ ChemicalEntityType) {
	d.add(name, f, typ, true)
}

func (d *InMemoryDictionary) add(name, f string, typ ChemicalEntityType, replace bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	entry := &DictionaryEntry{Name: name, Formula: f, EntityType: typ}
	if isSymbolLike(name) {
		if _, ok := d.symbols[name]; ok && !replace {
			return
		}
		d.symbols[name] = entry
	} else {
		key := normaliseKey(name)
		if _, ok := d.names[key]; ok && !replace {
			return
		}
		d.names[key] = entry
	}
	if n := len(tokenise(name)); n > d.maxWords {
		d.maxWords = n
	}
}

// Lookup implements Dictionary.
func (d *InMemoryDictionary) Lookup(name string) (*DictionaryEntry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	name = strings.TrimSpace(name)
	if e, ok := d.symbols[name]; ok {
		return e, true
	}
	e, ok := d.names[normaliseKey(name)]
	return e, ok
}

// MaxWords implements Dictionary.
func (d *InMemoryDictionary) MaxWords() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.maxWords
}

// Size implements Dictionary.
func (d *InMemoryDictionary) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.names) + len(d.symbols)
}

// isSymbolLike reports short capitalised abbreviations that parse as a
// formula, such as "Al" or "C".
func isSymbolLike(s string) bool {
	if len(s) > 2 || !unicode.IsUpper(rune(s[0])) {
		return false
	}
	_, err := formula.Parse(s)
	return err == nil
}

// normaliseKey lower-cases s, collapses whitespace and drops spaces before
// "(" so "iron (III) oxide" and "iron(III) oxide" share a key.
func normaliseKey(s string) string {
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	return strings.ReplaceAll(s, " (", "(")
}

func baseFormula(f string) string { return formula.SeparateState(f) }
