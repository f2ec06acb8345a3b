package domain

import "time"

// TestStatus tracks the lifecycle of a submitted test.
type TestStatus string

const (
	TestStatusInProgress TestStatus = "IN_PROGRESS"
	TestStatusCompleted  TestStatus = "COMPLETED"
	TestStatusReviewed   TestStatus = "REVIEWED"
)

// Answer pairs a question with the option the user picked.
type Answer struct {
	QuestionID  string `bson:"question_id" json:"questionId"`
	ChosenIndex int    `bson:"chosen_index" json:"chosenIndex"`
}

// Submission records one completed test attempt and its score.
type Submission struct {
	ID        string     `bson:"_id,omitempty" json:"id"`
	UserID    string     `bson:"user_id" json:"userId"`
	Subject   string     `bson:"subject" json:"subject"`
	Year      int        `bson:"year" json:"year"`
	Answers   []Answer   `bson:"answers" json:"answers"`
	Correct   int        `bson:"correct" json:"correct"`
	Total     int        `bson:"total" json:"total"`
	Score     float64    `bson:"score" json:"score"`
	Status    TestStatus `bson:"status" json:"status"`
	CreatedAt time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updatedAt"`
}

// Performance is the rolling per-user score summary that the realtime
// layer pushes to connected clients.
type Performance struct {
	UserID    string    `bson:"user_id" json:"userId"`
	Score     float64   `bson:"score" json:"score"`
	Attempts  int       `bson:"attempts" json:"attempts"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// DashboardSummary aggregates a user's activity for the dashboard view.
type DashboardSummary struct {
	Attempts     int     `json:"attempts"`
	AverageScore float64 `json:"averageScore"`
	BestScore    float64 `json:"bestScore"`
	LastScore    float64 `json:"lastScore"`
}

// AdminStats is the admin analytics overview.
type AdminStats struct {
	TotalUsers       int64 `json:"totalUsers"`
	ActiveUsers      int64 `json:"activeUsers"`
	TotalQuestions   int64 `json:"totalQuestions"`
	TotalSubmissions int64 `json:"totalSubmissions"`
}
