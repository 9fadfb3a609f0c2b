package client

import (
	"context"
	"net/url"

	"github.com/turtacn/alchemist/pkg/errors"
)

// ChemistryClient covers the table lookups and balancing endpoints.
type ChemistryClient struct {
	client *Client
}

// Balance balances reactants → products and returns ΔG° in unit.
func (c *ChemistryClient) Balance(ctx context.Context, reactants, products []string, unit string) (*BalanceResult, error) {
	if len(reactants) == 0 || len(products) == 0 {
		return nil, errors.InvalidParam("reactants and products are required")
	}
	body := map[string]interface{}{"reactants": reactants, "products": products}
	if unit != "" {
		body["unit"] = unit
	}
	var out BalanceResult
	if err := c.client.post(ctx, "/api/v1/reactions/balance", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Species returns every table row for formula, any state.
func (c *ChemistryClient) Species(ctx context.Context, formula string) ([]Species, error) {
	if formula == "" {
		return nil, errors.InvalidParam("formula is required")
	}
	var out struct {
		Species []Species `json:"species"`
	}
	if err := c.client.get(ctx, "/api/v1/species?formula="+url.QueryEscape(formula), &out); err != nil {
		return nil, err
	}
	return out.Species, nil
}

// State returns the most stable stated formula, e.g. "H2O(l)".
func (c *ChemistryClient) State(ctx context.Context, formula string) (string, error) {
	if formula == "" {
		return "", errors.InvalidParam("formula is required")
	}
	var out struct {
		State string `json:"state"`
	}
	if err := c.client.get(ctx, "/api/v1/species/state?formula="+url.QueryEscape(formula), &out); err != nil {
		return "", err
	}
	return out.State, nil
}

// Candidates lists table species built only from the elements of formulas.
func (c *ChemistryClient) Candidates(ctx context.Context, formulas []string, exact, thorough bool) (*CandidatesResult, error) {
	if len(formulas) == 0 {
		return nil, errors.InvalidParam("formulas are required")
	}
	body := map[string]interface{}{"formulas": formulas, "exact": exact, "thorough": thorough}
	var out CandidatesResult
	if err := c.client.post(ctx, "/api/v1/candidates", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Resolve maps a chemical name to a table formula.
func (c *ChemistryClient) Resolve(ctx context.Context, name string) (*Resolution, error) {
	if name == "" {
		return nil, errors.InvalidParam("name is required")
	}
	var out Resolution
	if err := c.client.get(ctx, "/api/v1/formulas/resolve?name="+url.QueryEscape(name), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Classify scores text for stoichiometry content.
func (c *ChemistryClient) Classify(ctx context.Context, text string) (*Classification, error) {
	var out Classification
	if err := c.client.post(ctx, "/api/v1/classify", map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
