package domain

import "context"

// UserRepository is the credential store. Schema details are owned by
// the implementation; consumers only rely on these lookups.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	// FindActiveUserByID returns the user only when the active flag is
	// set; inactive or unknown ids yield (nil, nil).
	FindActiveUserByID(ctx context.Context, id string) (*User, error)
	// UpdateFields applies a partial update and reports how many
	// documents were modified.
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (int64, error)
	CountUsers(ctx context.Context, activeOnly bool) (int64, error)
}

// QuestionRepository stores the question bank.
type QuestionRepository interface {
	Create(ctx context.Context, q *Question) error
	GetByID(ctx context.Context, id string) (*Question, error)
	List(ctx context.Context, filter QuestionFilter) ([]Question, error)
	GetByIDs(ctx context.Context, ids []string) ([]Question, error)
	Count(ctx context.Context) (int64, error)
}

// SubmissionRepository stores test submissions and per-user performance.
type SubmissionRepository interface {
	Insert(ctx context.Context, s *Submission) error
	ListByUser(ctx context.Context, userID string) ([]Submission, error)
	Count(ctx context.Context) (int64, error)
	// UpdatePerformance overwrites a user's rolling score and reports
	// the number of modified documents. Zero means the user has no
	// performance record yet.
	UpdatePerformance(ctx context.Context, userID string, score float64) (int64, error)
	UpsertPerformance(ctx context.Context, userID string, score float64) error
	// UpdateTestStatus transitions a submission's status and reports the
	// number of modified documents.
	UpdateTestStatus(ctx context.Context, testID string, status TestStatus) (int64, error)
}
