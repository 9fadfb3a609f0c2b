package handlers

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/alchemist/internal/infrastructure/textextract"
	"github.com/turtacn/alchemist/internal/intelligence/chem_extractor"
	"github.com/turtacn/alchemist/pkg/errors"
)

const defaultMaxUpload = 20 << 20

// TextExtractor turns a document into plain text.
type TextExtractor interface {
	GetText(ctx context.Context, name string, body io.Reader) (string, error)
}

// EntityExtractor finds chemical species in text.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) ([]*chem_extractor.RawChemicalEntity, error)
}

// DocumentHandler splits uploaded documents into paragraphs.
type DocumentHandler struct {
	tika      TextExtractor
	extractor EntityExtractor
	maxUpload int64
}

// NewDocumentHandler creates a DocumentHandler. Without tika only HTML and
// plain text uploads are accepted.
func NewDocumentHandler(tika TextExtractor, extractor EntityExtractor, maxUpload int64) *DocumentHandler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	return &DocumentHandler{tika: tika, extractor: extractor, maxUpload: maxUpload}
}

// Paragraph is one paragraph and, when requested, its chemical entities.
type Paragraph struct {
	Text     string                              `json:"text"`
	Entities []*chem_extractor.RawChemicalEntity `json:"entities,omitempty"`
}

// ParagraphsResponse is the body returned by Paragraphs.
type ParagraphsResponse struct {
	Filename   string      `json:"filename"`
	Title      string      `json:"title,omitempty"`
	Extractor  string      `json:"extractor"`
	Paragraphs []Paragraph `json:"paragraphs"`
}

// Paragraphs handles POST /api/v1/documents/paragraphs. The upload is the
// multipart field "file"; ?entities=true also extracts species per paragraph.
func (h *DocumentHandler) Paragraphs(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		writeAppError(c, errors.InvalidParam("multipart field file is required"))
		return
	}
	if fh.Size > h.maxUpload {
		writeAppError(c, errors.InvalidParam("document too large"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeAppError(c, errors.Wrap(err, errors.CodeInvalidParam, "cannot read upload"))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload))
	if err != nil {
		writeAppError(c, errors.Wrap(err, errors.CodeInvalidParam, "cannot read upload"))
		return
	}

	resp := ParagraphsResponse{Filename: fh.Filename}
	var text string
	switch kind := documentKind(fh.Filename, fh.Header.Get("Content-Type")); {
	case kind == "html":
		doc := textextract.FromHTML(data)
		resp.Title, text, resp.Extractor = doc.Title, doc.Text, "html"
	case kind == "text":
		text, resp.Extractor = string(data), "text"
	case h.tika != nil:
		text, err = h.tika.GetText(c.Request.Context(), fh.Filename, bytes.NewReader(data))
		if err != nil {
			writeAppError(c, err)
			return
		}
		resp.Extractor = "tika"
	default:
		writeAppError(c, errors.Unavailable("document parser is not configured").WithDetail(fh.Filename))
		return
	}

	withEntities := c.Query("entities") == "true" && h.extractor != nil
	for _, p := range textextract.MakeParagraphs(text) {
		para := Paragraph{Text: p}
		if withEntities {
			ents, err := h.extractor.Extract(c.Request.Context(), p)
			if err != nil {
				writeAppError(c, err)
				return
			}
			para.Entities = ents
		}
		resp.Paragraphs = append(resp.Paragraphs, para)
	}
	if resp.Paragraphs == nil {
		resp.Paragraphs = []Paragraph{}
	}
	c.JSON(http.StatusOK, resp)
}

// documentKind returns "html", "text" or "" for anything that needs Tika.
func documentKind(filename, contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mt {
		case "text/html", "application/xhtml+xml":
			return "html"
		case "text/plain":
			return "text"
		}
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm", ".xhtml":
		return "html"
	case ".txt":
		return "text"
	}
	return ""
}
