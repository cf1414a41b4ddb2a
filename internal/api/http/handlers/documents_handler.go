package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// DocumentsHandler exposes the instruction-document catalog.
type DocumentsHandler struct {
	documents repository.DocumentRepository
}

// NewDocumentsHandler constructs handler.
func NewDocumentsHandler(documents repository.DocumentRepository) *DocumentsHandler {
	return &DocumentsHandler{documents: documents}
}

// ListDocuments GET /documents.
func (h *DocumentsHandler) ListDocuments(c *fiber.Ctx) error {
	docs, err := h.documents.List(c.Context())
	if err != nil {
		return apperrors.MapError(err)
	}
	items := make([]dto.DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		items = append(items, documentResponse(doc))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateDocument POST /documents. Admin only (enforced by route guard).
func (h *DocumentsHandler) CreateDocument(c *fiber.Ctx) error {
	var req dto.CreateDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.FileName) == "" {
		return apperrors.NewValidationError("title and file_name required", nil)
	}

	doc := &domain.Document{
		Title:      strings.TrimSpace(req.Title),
		FileName:   req.FileName,
		StorageKey: req.StorageKey,
		MimeType:   req.MimeType,
		SizeBytes:  req.SizeBytes,
	}
	if err := h.documents.Create(c.Context(), doc); err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": documentResponse(*doc)})
}
