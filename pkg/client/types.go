package client

import "time"

// Term is one side entry of a balanced reaction.
type Term struct {
	Formula     string `json:"formula"`
	Coefficient int64  `json:"coefficient"`
}

// Reaction is a balanced equation with integer coefficients.
type Reaction struct {
	Reactants []Term `json:"reactants"`
	Products  []Term `json:"products"`
}

// Species is one row of the thermodynamic table. G is in J/mol.
type Species struct {
	Formula string  `json:"formula"`
	G       float64 `json:"g"`
	Mass    float64 `json:"mass"`
	Name    string  `json:"name,omitempty"`
	Abbrv   string  `json:"abbrv,omitempty"`
}

type BalanceResult struct {
	Equation string   `json:"equation"`
	Reaction Reaction `json:"reaction"`
	DeltaG   float64  `json:"delta_g"`
	Unit     string   `json:"unit"`
}

type CandidatesResult struct {
	Formulas   []string `json:"formulas"`
	Candidates []string `json:"candidates"`
	Count      int      `json:"count"`
}

// Resolution is the table formula chosen for a chemical name.
type Resolution struct {
	Name           string `json:"name"`
	Formula        string `json:"formula"`
	Source         string `json:"source"`
	PubChemFormula string `json:"pubchem_formula,omitempty"`
}

// Entity is a chemical mention found in text.
type Entity struct {
	Text        string  `json:"text"`
	StartOffset int     `json:"start_offset"`
	EndOffset   int     `json:"end_offset"`
	EntityType  string  `json:"entity_type"`
	Confidence  float64 `json:"confidence"`
	Context     string  `json:"context,omitempty"`
	Source      string  `json:"source"`
	Formula     string  `json:"formula,omitempty"`
}

type Classification struct {
	Label           string   `json:"label"`
	IsStoichiometry bool     `json:"is_stoichiometry"`
	Score           float64  `json:"score"`
	Threshold       float64  `json:"threshold"`
	Anchors         []string `json:"anchors,omitempty"`
}

// PredictRequest asks for the most favourable reaction of reactants.
// Unit is "kJ" or "J"; empty means kJ.
type PredictRequest struct {
	Reactants     []string `json:"reactants"`
	MaxCandidates int      `json:"max_candidates,omitempty"`
	Unit          string   `json:"unit,omitempty"`
}

type Prediction struct {
	Reaction     Reaction       `json:"reaction"`
	DeltaG       float64        `json:"delta_g"`
	Unit         string         `json:"unit"`
	Candidates   []string       `json:"candidates"`
	Combinations int            `json:"combinations"`
	Valid        int            `json:"valid"`
	Attempts     map[string]int `json:"attempts"`
}

type PredictResult struct {
	ID         string      `json:"id"`
	Reactants  []string    `json:"reactants"`
	Prediction *Prediction `json:"prediction"`
	Equation   string      `json:"equation"`
}

// TransmuteResult is a prediction made from free text.
type TransmuteResult struct {
	PredictResult
	Entities    []*Entity     `json:"entities"`
	Resolutions []*Resolution `json:"resolutions"`
}

// Prediction record statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Record is a stored prediction.
type Record struct {
	ID           string         `json:"id"`
	Input        string         `json:"input,omitempty"`
	Reactants    []string       `json:"reactants"`
	Status       string         `json:"status"`
	Reaction     string         `json:"reaction,omitempty"`
	DeltaG       *float64       `json:"delta_g,omitempty"`
	Unit         string         `json:"unit,omitempty"`
	Candidates   []string       `json:"candidates,omitempty"`
	Combinations int            `json:"combinations"`
	Attempts     map[string]int `json:"attempts,omitempty"`
	ErrorCode    string         `json:"error_code,omitempty"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// Terminal reports whether the record will not change any more.
func (r *Record) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

type RecordPage struct {
	Records []*Record `json:"records"`
	Total   int64     `json:"total"`
	Limit   int       `json:"limit"`
	Offset  int       `json:"offset"`
}
