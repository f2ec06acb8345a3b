package services

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizdesk/quizdesk/domain"
	apperrors "github.com/quizdesk/quizdesk/errors"
	"github.com/quizdesk/quizdesk/log"
)

type memQuestionRepo struct {
	seq        int
	questions  map[string]*domain.Question
	lastFilter domain.QuestionFilter
}

func newMemQuestionRepo() *memQuestionRepo {
	return &memQuestionRepo{questions: make(map[string]*domain.Question)}
}

func (r *memQuestionRepo) Create(_ context.Context, q *domain.Question) error {
	r.seq++
	q.ID = fmt.Sprintf("q%d", r.seq)
	r.questions[q.ID] = q
	return nil
}

func (r *memQuestionRepo) GetByID(_ context.Context, id string) (*domain.Question, error) {
	return r.questions[id], nil
}

func (r *memQuestionRepo) List(_ context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	r.lastFilter = filter
	var out []domain.Question
	for _, q := range r.questions {
		if filter.Subject != "" && q.Subject != filter.Subject {
			continue
		}
		out = append(out, *q)
	}
	return out, nil
}

func (r *memQuestionRepo) GetByIDs(_ context.Context, ids []string) ([]domain.Question, error) {
	var out []domain.Question
	for _, id := range ids {
		if q, ok := r.questions[id]; ok {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (r *memQuestionRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.questions)), nil
}

type memSubmissionRepo struct {
	seq         int
	submissions []domain.Submission
	performance map[string]float64
}

func newMemSubmissionRepo() *memSubmissionRepo {
	return &memSubmissionRepo{performance: make(map[string]float64)}
}

func (r *memSubmissionRepo) Insert(_ context.Context, s *domain.Submission) error {
	r.seq++
	s.ID = fmt.Sprintf("s%d", r.seq)
	// Newest first, matching the mongo repository's sort order.
	r.submissions = append([]domain.Submission{*s}, r.submissions...)
	return nil
}

func (r *memSubmissionRepo) ListByUser(_ context.Context, userID string) ([]domain.Submission, error) {
	var out []domain.Submission
	for _, s := range r.submissions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memSubmissionRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.submissions)), nil
}

func (r *memSubmissionRepo) UpdatePerformance(_ context.Context, userID string, score float64) (int64, error) {
	if _, ok := r.performance[userID]; !ok {
		return 0, nil
	}
	r.performance[userID] = score
	return 1, nil
}

func (r *memSubmissionRepo) UpsertPerformance(_ context.Context, userID string, score float64) error {
	r.performance[userID] = score
	return nil
}

func (r *memSubmissionRepo) UpdateTestStatus(_ context.Context, testID string, status domain.TestStatus) (int64, error) {
	for i := range r.submissions {
		if r.submissions[i].ID == testID {
			r.submissions[i].Status = status
			return 1, nil
		}
	}
	return 0, nil
}

type quizFixture struct {
	svc         *QuizService
	users       *memUserRepo
	questions   *memQuestionRepo
	submissions *memSubmissionRepo
}

func newQuizFixture(t *testing.T) *quizFixture {
	t.Helper()
	f := &quizFixture{
		users:       newMemUserRepo(),
		questions:   newMemQuestionRepo(),
		submissions: newMemSubmissionRepo(),
	}
	f.svc = NewQuizService(f.users, f.questions, f.submissions, log.NewZerolog(zerolog.Disabled, false))
	return f
}

func (f *quizFixture) seedQuestion(t *testing.T, subject string, correctIndex int) string {
	t.Helper()
	q := &domain.Question{
		Subject:      subject,
		Year:         2024,
		Text:         "pick one",
		Options:      []string{"a", "b", "c", "d"},
		CorrectIndex: correctIndex,
	}
	require.NoError(t, f.svc.CreateQuestion(context.Background(), q))
	return q.ID
}

func TestQuizService_CreateQuestionValidation(t *testing.T) {
	f := newQuizFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		q    domain.Question
	}{
		{"missing text", domain.Question{Subject: "math", Options: []string{"a", "b"}}},
		{"single option", domain.Question{Subject: "math", Text: "t", Options: []string{"a"}}},
		{"correct index out of range", domain.Question{Subject: "math", Text: "t", Options: []string{"a", "b"}, CorrectIndex: 2}},
		{"negative correct index", domain.Question{Subject: "math", Text: "t", Options: []string{"a", "b"}, CorrectIndex: -1}},
		{"missing subject", domain.Question{Text: "t", Options: []string{"a", "b"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.svc.CreateQuestion(ctx, &tc.q)
			appErr := apperrors.AsError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, http.StatusBadRequest, appErr.Status())
		})
	}
}

func TestQuizService_ListQuestionsClampsLimit(t *testing.T) {
	f := newQuizFixture(t)
	ctx := context.Background()

	_, err := f.svc.ListQuestions(ctx, domain.QuestionFilter{Limit: 0})
	require.NoError(t, err)
	assert.Equal(t, int64(50), f.questions.lastFilter.Limit)

	_, err = f.svc.ListQuestions(ctx, domain.QuestionFilter{Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, int64(50), f.questions.lastFilter.Limit)

	_, err = f.svc.ListQuestions(ctx, domain.QuestionFilter{Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(20), f.questions.lastFilter.Limit)
}

func TestQuizService_SubmitTestScoring(t *testing.T) {
	f := newQuizFixture(t)
	ctx := context.Background()

	q1 := f.seedQuestion(t, "math", 0)
	q2 := f.seedQuestion(t, "math", 1)
	q3 := f.seedQuestion(t, "math", 2)

	sub, err := f.svc.SubmitTest(ctx, "u1", "math", 2024, []domain.Answer{
		{QuestionID: q1, ChosenIndex: 0},
		{QuestionID: q2, ChosenIndex: 1},
		{QuestionID: q3, ChosenIndex: 0},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, sub.Correct)
	assert.Equal(t, 3, sub.Total)
	assert.InDelta(t, 66.67, sub.Score, 0.01)
	assert.Equal(t, domain.TestStatusCompleted, sub.Status)
	assert.NotEmpty(t, sub.ID)

	// The rolling performance follows the submission.
	assert.InDelta(t, sub.Score, f.submissions.performance["u1"], 0.001)
}

func TestQuizService_SubmitTestValidation(t *testing.T) {
	f := newQuizFixture(t)
	ctx := context.Background()
	q1 := f.seedQuestion(t, "math", 0)

	_, err := f.svc.SubmitTest(ctx, "u1", "math", 2024, nil)
	appErr := apperrors.AsError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Status())

	_, err = f.svc.SubmitTest(ctx, "u1", "math", 2024, []domain.Answer{
		{QuestionID: q1, ChosenIndex: 0},
		{QuestionID: "ghost", ChosenIndex: 1},
	})
	appErr = apperrors.AsError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Status())
}

func TestQuizService_Dashboard(t *testing.T) {
	f := newQuizFixture(t)
	ctx := context.Background()

	empty, err := f.svc.Dashboard(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Attempts)
	assert.Zero(t, empty.AverageScore)

	q1 := f.seedQuestion(t, "math", 0)
	q2 := f.seedQuestion(t, "math", 1)

	// First attempt: 50%. Second attempt: 100%.
	_, err = f.svc.SubmitTest(ctx, "u1", "math", 2024, []domain.Answer{
		{QuestionID: q1, ChosenIndex: 0},
		{QuestionID: q2, ChosenIndex: 0},
	})
	require.NoError(t, err)
	_, err = f.svc.SubmitTest(ctx, "u1", "math", 2024, []domain.Answer{
		{QuestionID: q1, ChosenIndex: 0},
		{QuestionID: q2, ChosenIndex: 1},
	})
	require.NoError(t, err)

	summary, err := f.svc.Dashboard(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Attempts)
	assert.Equal(t, 100.0, summary.BestScore)
	assert.Equal(t, 100.0, summary.LastScore, "newest submission is the last score")
	assert.Equal(t, 75.0, summary.AverageScore)
}

func TestQuizService_AdminStats(t *testing.T) {
	f := newQuizFixture(t)
	ctx := context.Background()

	require.NoError(t, f.users.Create(ctx, &domain.User{Email: "a@x.com", IsActive: true}))
	require.NoError(t, f.users.Create(ctx, &domain.User{Email: "b@x.com", IsActive: false}))
	q1 := f.seedQuestion(t, "math", 0)
	_, err := f.svc.SubmitTest(ctx, "u1", "math", 2024, []domain.Answer{{QuestionID: q1, ChosenIndex: 0}})
	require.NoError(t, err)

	stats, err := f.svc.AdminStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.ActiveUsers)
	assert.Equal(t, int64(1), stats.TotalQuestions)
	assert.Equal(t, int64(1), stats.TotalSubmissions)
}

func TestQuizService_SetUserRole(t *testing.T) {
	f := newQuizFixture(t)
	ctx := context.Background()

	user := &domain.User{Email: "a@x.com", Role: domain.RoleStudent, IsActive: true}
	require.NoError(t, f.users.Create(ctx, user))

	err := f.svc.SetUserRole(ctx, user.ID, "SUPERUSER")
	appErr := apperrors.AsError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Status())

	err = f.svc.SetUserRole(ctx, "ghost", domain.RoleAdmin)
	appErr = apperrors.AsError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusNotFound, appErr.Status())

	require.NoError(t, f.svc.SetUserRole(ctx, user.ID, domain.RoleAdmin))
	assert.Equal(t, domain.RoleAdmin, user.Role)
}
