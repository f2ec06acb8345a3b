package echo

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/quizdesk/quizdesk/domain"
	apperrors "github.com/quizdesk/quizdesk/errors"
)

type submitTestRequest struct {
	Subject string          `json:"subject"`
	Year    int             `json:"year"`
	Answers []domain.Answer `json:"answers"`
}

// ListQuestions returns the question bank filtered by subject/year.
func (a *API) ListQuestions(c echo.Context) error {
	filter := domain.QuestionFilter{Subject: c.QueryParam("subject")}
	if yearStr := c.QueryParam("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			return apperrors.NewValidation("year must be a number")
		}
		filter.Year = year
	}
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limit, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil {
			return apperrors.NewValidation("limit must be a number")
		}
		filter.Limit = limit
	}
	if offsetStr := c.QueryParam("offset"); offsetStr != "" {
		offset, err := strconv.ParseInt(offsetStr, 10, 64)
		if err != nil {
			return apperrors.NewValidation("offset must be a number")
		}
		filter.Offset = offset
	}

	questions, err := a.quiz.ListQuestions(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return respondOK(c, questions)
}

// SubmitTest scores and records a test submission.
func (a *API) SubmitTest(c echo.Context) error {
	userID, err := identity(c)
	if err != nil {
		return err
	}

	var req submitTestRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.NewValidation("malformed request body")
	}

	submission, err := a.quiz.SubmitTest(c.Request().Context(), userID, req.Subject, req.Year, req.Answers)
	if err != nil {
		return err
	}
	return respondCreated(c, submission)
}

// ListSubmissions returns the caller's submission history.
func (a *API) ListSubmissions(c echo.Context) error {
	userID, err := identity(c)
	if err != nil {
		return err
	}

	submissions, err := a.quiz.ListSubmissions(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return respondOK(c, submissions)
}

// Dashboard returns the caller's activity summary.
func (a *API) Dashboard(c echo.Context) error {
	userID, err := identity(c)
	if err != nil {
		return err
	}

	summary, err := a.quiz.Dashboard(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return respondOK(c, summary)
}
