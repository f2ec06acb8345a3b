package echo

import (
	"github.com/labstack/echo/v4"

	"github.com/quizdesk/quizdesk/domain"
	apperrors "github.com/quizdesk/quizdesk/errors"
	"github.com/quizdesk/quizdesk/middleware"
)

type setRoleRequest struct {
	Role string `json:"role"`
}

// createQuestionRequest exists because domain.Question hides the
// correct index from JSON responses; admins still need to supply it.
type createQuestionRequest struct {
	Subject      string   `json:"subject"`
	Year         int      `json:"year"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
}

// AdminStats returns the analytics overview.
func (a *API) AdminStats(c echo.Context) error {
	stats, err := a.quiz.AdminStats(c.Request().Context())
	if err != nil {
		return err
	}
	return respondOK(c, stats)
}

// CreateQuestion adds a question to the bank.
func (a *API) CreateQuestion(c echo.Context) error {
	var req createQuestionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.NewValidation("malformed request body")
	}

	q := domain.Question{
		Subject:      req.Subject,
		Year:         req.Year,
		Text:         req.Text,
		Options:      req.Options,
		CorrectIndex: req.CorrectIndex,
		Explanation:  req.Explanation,
	}
	if err := a.quiz.CreateQuestion(c.Request().Context(), &q); err != nil {
		return err
	}
	return respondCreated(c, q)
}

// SetUserRole changes a user's role and evicts the cached admin flag
// so the change takes effect inside the staleness window.
func (a *API) SetUserRole(c echo.Context) error {
	userID := c.Param("id")

	var req setRoleRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.NewValidation("malformed request body")
	}

	ctx := c.Request().Context()
	if err := a.quiz.SetUserRole(ctx, userID, domain.Role(req.Role)); err != nil {
		return err
	}
	middleware.EvictAdminFlag(ctx, a.cache, userID)

	return respondOK(c, nil)
}
