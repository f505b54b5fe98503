package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/papervault/internal/common"
	"github.com/dmitrijs2005/papervault/internal/logging"
	"github.com/dmitrijs2005/papervault/internal/server/documents"
	"github.com/dmitrijs2005/papervault/internal/server/models"
)

// Handler exposes the document service over the REST API.
type Handler struct {
	service *documents.Service
	logger  logging.Logger
}

func NewHandler(service *documents.Service, logger logging.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing file field"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return h.fail(c, err)
	}
	defer file.Close()

	mimeType := fileHeader.Header.Get("Content-Type")
	isOffline := c.FormValue("offline") == "true"

	doc, err := h.service.Upload(c.UserContext(), ownerID(c), fileHeader.Filename, mimeType, isOffline, file)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"document": doc})
}

func (h *Handler) PresignUpload(c *fiber.Ctx) error {
	var req struct {
		Filename    string `json:"filename"`
		ContentType string `json:"contentType"`
		Category    string `json:"category"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	presigned, err := h.service.PresignUpload(c.UserContext(), ownerID(c),
		req.Filename, req.ContentType, models.Category(req.Category))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(presigned)
}

func (h *Handler) CompleteUpload(c *fiber.Ctx) error {
	var req documents.CompleteUploadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	doc, err := h.service.CompleteUpload(c.UserContext(), ownerID(c), &req)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"document": doc})
}

func (h *Handler) List(c *fiber.Ctx) error {
	docs, err := h.service.List(c.UserContext(), ownerID(c), models.Category(c.Query("category")))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{"documents": emptyAsList(docs)})
}

func (h *Handler) Search(c *fiber.Ctx) error {
	docs, err := h.service.Search(c.UserContext(), ownerID(c), c.Query("q"))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{"documents": emptyAsList(docs)})
}

func (h *Handler) Status(c *fiber.Ctx) error {
	docs, err := h.service.Status(c.UserContext(), ownerID(c), documents.StatusFilter(c.Query("type")))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{"documents": emptyAsList(docs)})
}

func (h *Handler) Get(c *fiber.Ctx) error {
	doc, err := h.service.Get(c.UserContext(), ownerID(c), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{"document": doc})
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), ownerID(c), c.Params("id")); err != nil {
		return h.fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// fail translates service errors into HTTP responses.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, common.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, common.ErrAuth):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, common.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	default:
		h.logger.Error(c.UserContext(), "request failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}

func emptyAsList(docs []*models.Document) []*models.Document {
	if docs == nil {
		return []*models.Document{}
	}
	return docs
}
