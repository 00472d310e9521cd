package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/feedx-service/internal/api/dto"
	"github.com/spec-kit/feedx-service/internal/service"
	"github.com/spec-kit/feedx-service/internal/storage"
	apperrors "github.com/spec-kit/feedx-service/pkg/util/errorutil"
)

// proofFilesField is the multipart field carrying proof files.
const proofFilesField = "files"

// IssuesHandler serves the student submission and tracking endpoints.
type IssuesHandler struct {
	issues *service.IssueService
}

// NewIssuesHandler constructs handler.
func NewIssuesHandler(issueService *service.IssueService) *IssuesHandler {
	return &IssuesHandler{issues: issueService}
}

// Submit handles POST /issues. It accepts a multipart form (fields plus
// "files") or a JSON body without files. Rejected or failed files are
// reported next to the created issue rather than failing the request.
func (h *IssuesHandler) Submit(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.SubmitIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.SubmitInput{
		Type:            req.Type,
		Category:        req.Category,
		SpecifyCategory: req.SpecifyCategory,
		Description:     req.Description,
		SentTo:          req.SentTo,
		FacultyName:     req.FacultyName,
		Anonymous:       req.Anonymous,
	}
	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return apperrors.NewValidationError("invalid multipart form", nil)
		}
		input.Files = formFiles(form.File[proofFilesField])
	}

	result, err := h.issues.Submit(c.UserContext(), session, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewSubmitResponse(result)})
}

// ListActive handles GET /issues.
func (h *IssuesHandler) ListActive(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	tracked, err := h.issues.ListActive(c.UserContext(), session)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTrackedIssueList(tracked)})
}

// ListResolved handles GET /issues/resolved.
func (h *IssuesHandler) ListResolved(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	tracked, err := h.issues.ListResolved(c.UserContext(), session)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTrackedIssueList(tracked)})
}

// Get handles GET /issues/:id.
func (h *IssuesHandler) Get(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	tracked, err := h.issues.Get(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTrackedIssueResponse(*tracked)})
}

// Escalation handles GET /issues/:id/escalation.
func (h *IssuesHandler) Escalation(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	gate, err := h.issues.EscalationView(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": gate})
}

// Escalate handles POST /issues/:id/escalate.
func (h *IssuesHandler) Escalate(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.EscalateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	tracked, err := h.issues.Escalate(c.UserContext(), session, c.Params("id"), service.EscalateInput{
		Reason:      req.Reason,
		EscalatedTo: req.EscalatedTo,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTrackedIssueResponse(*tracked)})
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}

func formFiles(headers []*multipart.FileHeader) []storage.File {
	files := make([]storage.File, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		files = append(files, storage.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return files
}
