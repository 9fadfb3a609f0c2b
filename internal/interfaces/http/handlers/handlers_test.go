package handlers

import (
	"bytes"
	"encoding/json"
	"html/template"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/alchemist/internal/application/transmuter"
	"github.com/turtacn/alchemist/internal/domain/reaction"
	"github.com/turtacn/alchemist/internal/intelligence/chem_extractor"
	"github.com/turtacn/alchemist/internal/testutil"
	"github.com/turtacn/alchemist/web"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testKeywords = []string{"react", "reaction", "product", "products", "balance", "mole", "moles", "yield", "burn", "form", "forms"}

// fixture bundles the real chemistry stack over the test tables.
type fixture struct {
	chemistry  *ChemistryHandler
	svc        transmuter.Service
	classifier *transmuter.Classifier
	extractor  *chem_extractor.Extractor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	th, _, f := testutil.Tables(t)
	extractor := chem_extractor.NewExtractor(chem_extractor.NewTableDictionary(th), chem_extractor.DefaultExtractorConfig(), nil)
	resolver := chem_extractor.NewNameResolver(th, f, nil)
	svc := transmuter.NewService(transmuter.Dependencies{
		Extractor: extractor,
		Resolver:  resolver,
		Predictor: reaction.NewPredictor(th, f),
	}, transmuter.Config{}, testutil.NewMockLogger())
	return &fixture{
		chemistry:  NewChemistryHandler(th, f, resolver),
		svc:        svc,
		classifier: transmuter.NewClassifier(testKeywords, 0.2),
		extractor:  extractor,
	}
}

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	r := gin.New()
	r.SetHTMLTemplate(template.Must(template.ParseFS(web.Templates, "templates/*.html")))
	return r
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = bytes.NewBufferString(b)
		default:
			raw, _ := json.Marshal(b)
			rd = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	decode(t, w, &resp)
	return resp
}
