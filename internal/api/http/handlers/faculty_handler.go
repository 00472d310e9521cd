package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/feedx-service/internal/api/dto"
	"github.com/spec-kit/feedx-service/internal/domain"
	"github.com/spec-kit/feedx-service/internal/service"
	apperrors "github.com/spec-kit/feedx-service/pkg/util/errorutil"
)

// FacultyHandler serves the staff review queue.
type FacultyHandler struct {
	faculty *service.FacultyService
}

// NewFacultyHandler constructs handler.
func NewFacultyHandler(facultyService *service.FacultyService) *FacultyHandler {
	return &FacultyHandler{faculty: facultyService}
}

// ListIssues handles GET /faculty/issues?status=&escalated=&type=&limit=&offset=.
func (h *FacultyHandler) ListIssues(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	filter, err := parseFacultyFilter(c)
	if err != nil {
		return err
	}
	reviewed, err := h.faculty.ListIssues(c.UserContext(), session, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReviewedIssueList(reviewed)})
}

// Respond handles POST /faculty/issues/:id/respond.
func (h *FacultyHandler) Respond(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.RespondRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	issue, err := h.faculty.Respond(c.UserContext(), session, c.Params("id"), service.RespondInput{
		Message: req.Message,
		Status:  req.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIssueResponse(issue)})
}

func parseFacultyFilter(c *fiber.Ctx) (service.FacultyFilter, error) {
	var filter service.FacultyFilter
	invalid := map[string]any{}

	if raw := c.Query("status"); raw != "" {
		status := domain.IssueStatus(raw)
		if status.Valid() {
			filter.Status = &status
		} else {
			invalid["status"] = "unknown status"
		}
	}
	if raw := c.Query("escalated"); raw != "" {
		escalated, err := strconv.ParseBool(raw)
		if err == nil {
			filter.Escalated = &escalated
		} else {
			invalid["escalated"] = "must be true or false"
		}
	}
	if raw := c.Query("type"); raw != "" {
		issueType := domain.IssueType(raw)
		if issueType.Valid() {
			filter.Type = &issueType
		} else {
			invalid["type"] = "unknown type"
		}
	}
	filter.Limit = c.QueryInt("limit", 0)
	filter.Offset = c.QueryInt("offset", 0)
	if filter.Limit < 0 || filter.Offset < 0 {
		invalid["limit"] = "limit and offset must not be negative"
	}

	if len(invalid) > 0 {
		return filter, apperrors.NewValidationError("invalid query", invalid)
	}
	return filter, nil
}
