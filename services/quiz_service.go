package services

import (
	"context"
	"fmt"

	"github.com/quizdesk/quizdesk/domain"
	apperrors "github.com/quizdesk/quizdesk/errors"
	"github.com/quizdesk/quizdesk/log"
)

// QuizService covers the question bank, test submissions, dashboards
// and admin analytics.
type QuizService struct {
	users       domain.UserRepository
	questions   domain.QuestionRepository
	submissions domain.SubmissionRepository
	logger      log.Logger
}

// NewQuizService wires the quiz flows.
func NewQuizService(
	users domain.UserRepository,
	questions domain.QuestionRepository,
	submissions domain.SubmissionRepository,
	logger log.Logger,
) *QuizService {
	return &QuizService{
		users:       users,
		questions:   questions,
		submissions: submissions,
		logger:      logger,
	}
}

// CreateQuestion validates and stores a new question (admin only; the
// route is behind the admin gate).
func (s *QuizService) CreateQuestion(ctx context.Context, q *domain.Question) error {
	if q.Text == "" {
		return apperrors.NewValidation("question text is required")
	}
	if len(q.Options) < 2 {
		return apperrors.NewValidation("a question needs at least two options")
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return apperrors.NewValidation("correct index out of range")
	}
	if q.Subject == "" {
		return apperrors.NewValidation("subject is required")
	}

	if err := s.questions.Create(ctx, q); err != nil {
		return apperrors.NewInfrastructure("failed to store question", err)
	}
	return nil
}

// ListQuestions returns questions matching the subject/year filter.
func (s *QuizService) ListQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	questions, err := s.questions.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInfrastructure("failed to list questions", err)
	}
	return questions, nil
}

// SubmitTest scores the answers against the stored questions, records
// the submission and refreshes the user's rolling performance.
func (s *QuizService) SubmitTest(ctx context.Context, userID, subject string, year int, answers []domain.Answer) (*domain.Submission, error) {
	if len(answers) == 0 {
		return nil, apperrors.NewValidation("a submission needs at least one answer")
	}

	ids := make([]string, 0, len(answers))
	for _, a := range answers {
		ids = append(ids, a.QuestionID)
	}
	questions, err := s.questions.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.NewInfrastructure("failed to load questions", err)
	}
	if len(questions) != len(answers) {
		return nil, apperrors.NewValidation("submission references unknown questions")
	}

	correctByID := make(map[string]int, len(questions))
	for _, q := range questions {
		correctByID[q.ID] = q.CorrectIndex
	}

	correct := 0
	for _, a := range answers {
		if idx, ok := correctByID[a.QuestionID]; ok && idx == a.ChosenIndex {
			correct++
		}
	}

	total := len(answers)
	score := float64(correct) / float64(total) * 100

	submission := &domain.Submission{
		UserID:  userID,
		Subject: subject,
		Year:    year,
		Answers: answers,
		Correct: correct,
		Total:   total,
		Score:   score,
		Status:  domain.TestStatusCompleted,
	}
	if err := s.submissions.Insert(ctx, submission); err != nil {
		return nil, apperrors.NewInfrastructure("failed to store submission", err)
	}

	if err := s.submissions.UpsertPerformance(ctx, userID, score); err != nil {
		s.logger.Warn(ctx, "failed to refresh performance", map[string]interface{}{
			"user_id": userID, "error": err.Error(),
		})
	}

	return submission, nil
}

// ListSubmissions returns a user's submissions, newest first.
func (s *QuizService) ListSubmissions(ctx context.Context, userID string) ([]domain.Submission, error) {
	submissions, err := s.submissions.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInfrastructure("failed to list submissions", err)
	}
	return submissions, nil
}

// Dashboard aggregates a user's activity.
func (s *QuizService) Dashboard(ctx context.Context, userID string) (*domain.DashboardSummary, error) {
	submissions, err := s.submissions.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInfrastructure("failed to load submissions", err)
	}

	summary := &domain.DashboardSummary{Attempts: len(submissions)}
	if len(submissions) == 0 {
		return summary, nil
	}

	var sum float64
	for i, sub := range submissions {
		sum += sub.Score
		if sub.Score > summary.BestScore {
			summary.BestScore = sub.Score
		}
		if i == 0 { // newest first
			summary.LastScore = sub.Score
		}
	}
	summary.AverageScore = sum / float64(len(submissions))

	return summary, nil
}

// AdminStats collects the admin analytics overview.
func (s *QuizService) AdminStats(ctx context.Context) (*domain.AdminStats, error) {
	totalUsers, err := s.users.CountUsers(ctx, false)
	if err != nil {
		return nil, apperrors.NewInfrastructure("failed to count users", err)
	}
	activeUsers, err := s.users.CountUsers(ctx, true)
	if err != nil {
		return nil, apperrors.NewInfrastructure("failed to count active users", err)
	}
	totalQuestions, err := s.questions.Count(ctx)
	if err != nil {
		return nil, apperrors.NewInfrastructure("failed to count questions", err)
	}
	totalSubmissions, err := s.submissions.Count(ctx)
	if err != nil {
		return nil, apperrors.NewInfrastructure("failed to count submissions", err)
	}

	return &domain.AdminStats{
		TotalUsers:       totalUsers,
		ActiveUsers:      activeUsers,
		TotalQuestions:   totalQuestions,
		TotalSubmissions: totalSubmissions,
	}, nil
}

// SetUserRole changes a user's role. The HTTP layer evicts the cached
// admin flag afterwards so the change is visible immediately.
func (s *QuizService) SetUserRole(ctx context.Context, userID string, role domain.Role) error {
	if role != domain.RoleStudent && role != domain.RoleAdmin {
		return apperrors.NewValidation(fmt.Sprintf("unknown role %q", role))
	}
	n, err := s.users.UpdateFields(ctx, userID, map[string]interface{}{"role": role})
	if err != nil {
		return apperrors.NewInfrastructure("failed to update role", err)
	}
	if n == 0 {
		return apperrors.NewNotFound("user not found")
	}
	return nil
}
