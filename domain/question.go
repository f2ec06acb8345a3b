package domain

import "time"

// Question is a multiple-choice question. CorrectIndex points into
// Options and is never serialized to non-admin clients.
type Question struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Subject      string    `bson:"subject" json:"subject"`
	Year         int       `bson:"year" json:"year"`
	Text         string    `bson:"text" json:"text"`
	Options      []string  `bson:"options" json:"options"`
	CorrectIndex int       `bson:"correct_index" json:"-"`
	Explanation  string    `bson:"explanation,omitempty" json:"explanation,omitempty"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updatedAt"`
}

// QuestionFilter narrows question listings.
type QuestionFilter struct {
	Subject string
	Year    int
	Limit   int64
	Offset  int64
}
