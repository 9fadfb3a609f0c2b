package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/alchemist/internal/domain/reaction"
	"github.com/turtacn/alchemist/internal/domain/stoich"
	"github.com/turtacn/alchemist/internal/domain/thermo"
	"github.com/turtacn/alchemist/internal/intelligence/chem_extractor"
)

// NameResolver maps one chemical name to a table formula.
type NameResolver interface {
	Resolve(ctx context.Context, name string) (*chem_extractor.Resolution, error)
}

// ChemistryHandler exposes the tables and the balancer.
type ChemistryHandler struct {
	thermo   *thermo.Table
	filter   *stoich.Filter
	resolver NameResolver
}

// NewChemistryHandler creates a ChemistryHandler. resolver may be nil, in
// which case /formulas/resolve is not served.
func NewChemistryHandler(t *thermo.Table, f *stoich.Filter, resolver NameResolver) *ChemistryHandler {
	return &ChemistryHandler{thermo: t, filter: f, resolver: resolver}
}

// BalanceRequest is the body of POST /reactions/balance.
type BalanceRequest struct {
	Reactants []string `json:"reactants" binding:"required,min=1"`
	Products  []string `json:"products" binding:"required,min=1"`
	Unit      string   `json:"unit"`
}

// BalanceResponse is a balanced reaction with its ΔG.
type BalanceResponse struct {
	Equation string            `json:"equation"`
	Reaction reaction.Reaction `json:"reaction"`
	DeltaG   float64           `json:"delta_g"`
	Unit     reaction.Unit     `json:"unit"`
}

// Balance handles POST /api/v1/reactions/balance.
func (h *ChemistryHandler) Balance(c *gin.Context) {
	var req BalanceRequest
	if !bindJSON(c, &req) {
		return
	}
	unit, err := reaction.ParseUnit(req.Unit)
	if err != nil {
		writeAppError(c, err)
		return
	}
	g, err := reaction.StandardGibbsEnergy(h.thermo, req.Reactants, req.Products, unit)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, BalanceResponse{
		Equation: g.Reaction.String(),
		Reaction: g.Reaction,
		DeltaG:   g.DeltaG,
		Unit:     g.Unit,
	})
}

// Species handles GET /api/v1/species?formula=.
func (h *ChemistryHandler) Species(c *gin.Context) {
	f, ok := requireQuery(c, "formula")
	if !ok {
		return
	}
	rows, err := h.thermo.Lookup(f)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"formula": f, "species": rows})
}

// SpeciesState handles GET /api/v1/species/state?formula=.
func (h *ChemistryHandler) SpeciesState(c *gin.Context) {
	f, ok := requireQuery(c, "formula")
	if !ok {
		return
	}
	stated, err := h.thermo.PredictState(f)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"formula": f, "state": stated})
}

// CandidatesRequest is the body of POST /candidates.
type CandidatesRequest struct {
	Formulas []string `json:"formulas" binding:"required,min=1"`
	Exact    bool     `json:"exact"`
	Thorough bool     `json:"thorough"`
}

// Candidates handles POST /api/v1/candidates.
func (h *ChemistryHandler) Candidates(c *gin.Context) {
	var req CandidatesRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.filter.Candidates(req.Formulas, stoich.Options{Exact: req.Exact, Thorough: req.Thorough})
	if err != nil {
		writeAppError(c, err)
		return
	}
	if out == nil {
		out = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"formulas": req.Formulas, "candidates": out, "count": len(out)})
}

// Resolve handles GET /api/v1/formulas/resolve?name=.
func (h *ChemistryHandler) Resolve(c *gin.Context) {
	name, ok := requireQuery(c, "name")
	if !ok {
		return
	}
	res, err := h.resolver.Resolve(c.Request.Context(), name)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
