// Package server exposes the retrieval pipeline over HTTP for the
// surrounding file-storage backend.
package server

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"rag-service/internal/chunker"
	"rag-service/internal/extractor"
	"rag-service/internal/helper"
	"rag-service/internal/index"
	"rag-service/internal/models"
	"rag-service/internal/provider"
	"rag-service/internal/retriever"
)

// Handler wires HTTP routes to the retriever.
type Handler struct {
	retriever *retriever.Retriever
}

func NewHandler(r *retriever.Retriever) *Handler {
	return &Handler{retriever: r}
}

// Register sets up all routes.
func (h *Handler) Register(app *fiber.App) {
	app.Use(requestID)

	app.Get("/health", h.Health)
	app.Get("/stats", h.Stats)
	app.Post("/index", h.Index)
	app.Post("/ask", h.Ask)
	app.Post("/ask-multi", h.AskMulti)
	app.Post("/summarize", h.Summarize)
	app.Post("/generate-doc", h.GenerateDoc)
	app.Post("/auto-tag", h.AutoTag)
	app.Delete("/index/:document_id", h.DropIndex)
}

// requestID tags every request for log correlation.
func requestID(c fiber.Ctx) error {
	id, err := helper.RequestID()
	if err == nil {
		c.Set("X-Request-ID", id)
	}
	return c.Next()
}

// Health reports provider reachability and index totals.
func (h *Handler) Health(c fiber.Ctx) error {
	return c.JSON(h.retriever.CheckHealth(c.Context()))
}

// Stats returns per-document index statistics.
func (h *Handler) Stats(c fiber.Ctx) error {
	return c.JSON(h.retriever.Stats())
}

// Index accepts a multipart upload (field "file") plus a document_id form
// value and builds the document's index, replacing any previous version.
func (h *Handler) Index(c fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing file upload"})
	}
	documentID := c.FormValue("document_id")
	if documentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing document_id"})
	}
	format := c.FormValue("format")
	if format == "" {
		format = helper.FormatFromFilename(fileHeader.Filename)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unreadable file upload"})
	}
	defer file.Close()
	raw, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unreadable file upload"})
	}

	numChunks, err := h.retriever.IndexDocument(c.Context(), documentID, raw, format)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"document_id": documentID,
		"num_chunks":  numChunks,
	})
}

// Ask answers a question about a single indexed document.
func (h *Handler) Ask(c fiber.Ctx) error {
	var body struct {
		DocumentID string `json:"document_id"`
		Question   string `json:"question"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	answer, err := h.retriever.Ask(c.Context(), []string{body.DocumentID}, body.Question)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(answer)
}

// AskMulti answers a question across several documents with cross-document
// ranking.
func (h *Handler) AskMulti(c fiber.Ctx) error {
	var body struct {
		DocumentIDs []string `json:"document_ids"`
		Question    string   `json:"question"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	answer, err := h.retriever.Ask(c.Context(), body.DocumentIDs, body.Question)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(answer)
}

// Summarize generates a summary of an indexed document.
func (h *Handler) Summarize(c fiber.Ctx) error {
	var body struct {
		DocumentID string `json:"document_id"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	summary, err := h.retriever.Summarize(c.Context(), body.DocumentID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "summary": summary})
}

// GenerateDoc produces a derived document of the requested kind.
func (h *Handler) GenerateDoc(c fiber.Ctx) error {
	var body struct {
		DocumentID string `json:"document_id"`
		DocType    string `json:"doc_type"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	kind := models.DocKind(body.DocType)
	if !models.ValidDocKind(kind) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown doc_type: " + body.DocType})
	}
	content, err := h.retriever.GenerateDoc(c.Context(), body.DocumentID, kind)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "content": content, "doc_type": body.DocType})
}

// AutoTag extracts keyword labels for an indexed document.
func (h *Handler) AutoTag(c fiber.Ctx) error {
	var body struct {
		DocumentID string `json:"document_id"`
		MaxTags    int    `json:"max_tags"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	tags, err := h.retriever.AutoTag(c.Context(), body.DocumentID, body.MaxTags)
	if err != nil {
		return h.fail(c, err)
	}
	if tags == nil {
		tags = []string{}
	}
	return c.JSON(fiber.Map{"success": true, "tags": tags})
}

// DropIndex removes a document's index. Idempotent.
func (h *Handler) DropIndex(c fiber.Ctx) error {
	documentID := c.Params("document_id")
	existed := h.retriever.HasDocument(documentID)
	if err := h.retriever.DropDocument(c.Context(), documentID); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "removed": existed})
}

// fail maps the error taxonomy to HTTP statuses. Not-grounded answers never
// reach here; they are successful responses.
func (h *Handler) fail(c fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, extractor.ErrUnsupportedFormat),
		errors.Is(err, chunker.ErrInvalidChunkConfig),
		errors.Is(err, retriever.ErrEmptyQuestion),
		errors.Is(err, retriever.ErrNoDocuments):
		status = fiber.StatusBadRequest
	case errors.Is(err, extractor.ErrEmptyContent):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, index.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, provider.ErrUnavailable):
		status = fiber.StatusServiceUnavailable
	case errors.Is(err, retriever.ErrGenerationTimeout):
		status = fiber.StatusGatewayTimeout
	}
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	} else {
		log.Debug().Err(err).Str("path", c.Path()).Int("status", status).Msg("request rejected")
	}
	return c.Status(status).JSON(fiber.Map{"success": false, "error": err.Error()})
}
