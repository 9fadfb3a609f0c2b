package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/alchemist/internal/application/transmuter"
)

// Template names.
const (
	TemplateIndex      = "index.html"
	TemplateTransmuter = "transmuter.html"
	TemplateClassifier = "classifier.html"
)

// PageHandler renders the HTML front end. Errors are rendered into the page,
// never returned as a failed status.
type PageHandler struct {
	svc        transmuter.Service
	classifier *transmuter.Classifier
}

// NewPageHandler creates a PageHandler.
func NewPageHandler(svc transmuter.Service, classifier *transmuter.Classifier) *PageHandler {
	return &PageHandler{svc: svc, classifier: classifier}
}

// TransmuterPage is the data behind transmuter.html and classifier.html.
type TransmuterPage struct {
	RawText        string
	Reaction       string
	DeltaG         float64
	Unit           string
	Reactants      []string
	Entities       []string
	Error          string
	Classification *transmuter.Classification
}

// Index handles GET /.
func (h *PageHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, TemplateIndex, nil)
}

// TransmuterForm handles GET /transmuter.
func (h *PageHandler) TransmuterForm(c *gin.Context) {
	c.HTML(http.StatusOK, TemplateTransmuter, TransmuterPage{})
}

// Transmute handles POST /transmuter with form field rawtext.
func (h *PageHandler) Transmute(c *gin.Context) {
	page := h.transmute(c, c.PostForm("rawtext"))
	c.HTML(http.StatusOK, TemplateTransmuter, page)
}

// Classify handles POST /classifier. Stoichiometry questions run the
// transmuter; anything else is reported as such.
func (h *PageHandler) Classify(c *gin.Context) {
	text := c.PostForm("rawtext")
	cls := h.classifier.Classify(text)
	page := TransmuterPage{RawText: text}
	if cls.IsStoichiometry {
		page = h.transmute(c, text)
	}
	page.Classification = &cls
	c.HTML(http.StatusOK, TemplateClassifier, page)
}

func (h *PageHandler) transmute(c *gin.Context, text string) TransmuterPage {
	page := TransmuterPage{RawText: text}
	res, err := h.svc.Transmute(c.Request.Context(), text)
	if err != nil {
		_ = c.Error(err)
		page.Error = err.Error()
		return page
	}
	page.Reaction = res.Equation
	page.DeltaG = res.Prediction.DeltaG
	page.Unit = string(res.Prediction.Unit)
	page.Reactants = res.Reactants
	for _, e := range res.Entities {
		page.Entities = append(page.Entities, e.Text)
	}
	return page
}
