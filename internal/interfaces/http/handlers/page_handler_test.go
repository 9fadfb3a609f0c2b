package handlers

import (
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageEngine(t *testing.T) http.Handler {
	t.Helper()
	fx := newFixture(t)
	h := NewPageHandler(fx.svc, fx.classifier)
	r := newEngine(t)
	r.GET("/", h.Index)
	r.GET("/transmuter", h.TransmuterForm)
	r.POST("/transmuter", h.Transmute)
	r.POST("/classifier", h.Classify)
	return r
}

func postForm(r http.Handler, path, text string) *httptest.ResponseRecorder {
	form := url.Values{"rawtext": {text}}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPageHandler_Forms(t *testing.T) {
	r := pageEngine(t)

	w := doJSON(r, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `action="/classifier"`)

	w = doJSON(r, http.MethodGet, "/transmuter", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/transmuter"`)
	assert.NotContains(t, w.Body.String(), `class="reaction"`)
}

func TestPageHandler_Transmute(t *testing.T) {
	r := pageEngine(t)

	w := postForm(r, "/transmuter", "What happens when aluminium reacts with oxygen?")
	require.Equal(t, http.StatusOK, w.Code)
	body := html.UnescapeString(w.Body.String())
	assert.Contains(t, body, "4 Al(s) + 3 O2(g) → 2 Al2O3(s)")
	assert.Contains(t, body, "-3164.6 kJ")
	assert.Contains(t, body, "aluminium, oxygen")

	// Failures render in the page with a 200.
	w = postForm(r, "/transmuter", "What is the weather like today?")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `class="error"`)
}

func TestPageHandler_Classify(t *testing.T) {
	r := pageEngine(t)

	w := postForm(r, "/classifier", "What happens when aluminium reacts with oxygen?")
	require.Equal(t, http.StatusOK, w.Code)
	body := html.UnescapeString(w.Body.String())
	assert.Contains(t, body, "<strong>stoichiometry</strong>")
	assert.Contains(t, body, "4 Al(s) + 3 O2(g) → 2 Al2O3(s)")

	w = postForm(r, "/classifier", "What is the capital of France?")
	require.Equal(t, http.StatusOK, w.Code)
	body = html.UnescapeString(w.Body.String())
	assert.Contains(t, body, "<strong>not stoichiometry</strong>")
	assert.Contains(t, body, "What is the capital of France?")
	assert.NotContains(t, body, `class="reaction"`)
}
