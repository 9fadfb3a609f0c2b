// Package pubchem is a small client for the PubChem PUG REST service, used to
// turn compound names into molecular formulas.
package pubchem

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/alchemist/pkg/errors"
)

const DefaultBaseURL = "https://pubchem.ncbi.nlm.nih.gov/rest/pug"

var ErrCompoundNotFound = errors.New(errors.CodeNotFound, "compound not found")

// Compound is the subset of PubChem properties alchemist reads.
type Compound struct {
	CID              int64  `json:"CID"`
	MolecularFormula string `json:"MolecularFormula"`
	IUPACName        string `json:"IUPACName"`
}

type propertyResponse struct {
	PropertyTable struct {
		Properties []Compound `json:"Properties"`
	} `json:"PropertyTable"`
}

// Lookup resolves a compound name.
type Lookup interface {
	LookupName(ctx context.Context, name string) (*Compound, error)
}

// Client calls PUG REST under a client-side rate limit.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     logging.Logger
	observe    func(status string, d time.Duration)
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the service root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient replaces the transport client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithRateLimit sets requests per second; 0 disables limiting.
func WithRateLimit(rps int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithObserver registers a callback for request outcome and latency.
func WithObserver(fn func(status string, d time.Duration)) Option {
	return func(c *Client) { c.observe = fn }
}

// NewClient builds a Client. PubChem asks for at most 5 requests per second.
func NewClient(logger logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
		logger:     logger.Named("pubchem"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LookupName returns the first compound matching name.
func (c *Client) LookupName(ctx context.Context, name string) (*Compound, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.InvalidParam("compound name is empty")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CodeRateLimit, "pubchem rate limit wait aborted")
	}

	endpoint := fmt.Sprintf("%s/compound/name/%s/property/MolecularFormula,IUPACName/JSON",
		c.baseURL, url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to build pubchem request")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record("error", start)
		return nil, errors.Wrap(err, errors.CodeExternalService, "pubchem request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.record("not_found", start)
		return nil, ErrCompoundNotFound.WithDetail(name)
	case resp.StatusCode != http.StatusOK:
		c.record("error", start)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("PubChem returned unexpected status",
			logging.Int("status", resp.StatusCode),
			logging.String("body", string(body)))
		return nil, errors.Newf(errors.CodeExternalService, "pubchem status %d", resp.StatusCode)
	}

	var pr propertyResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		c.record("error", start)
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode pubchem response")
	}
	props := pr.PropertyTable.Properties
	if len(props) == 0 || props[0].MolecularFormula == "" {
		c.record("not_found", start)
		return nil, ErrCompoundNotFound.WithDetail(name)
	}
	c.record("ok", start)
	c.logger.Debug("PubChem resolved name",
		logging.String("name", name),
		logging.String("formula", props[0].MolecularFormula))
	return &props[0], nil
}

func (c *Client) record(status string, start time.Time) {
	if c.observe != nil {
		c.observe(status, time.Since(start))
	}
}
