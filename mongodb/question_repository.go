package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/quizdesk/quizdesk/domain"
)

// QuestionRepository implements domain.QuestionRepository on MongoDB.
type QuestionRepository struct {
	questions *mongo.Collection
}

// NewQuestionRepository creates the repository and the subject/year
// index backing filtered listings.
func NewQuestionRepository(ctx context.Context, db *mongo.Database) (*QuestionRepository, error) {
	repo := &QuestionRepository{questions: db.Collection(QuestionsCollection)}

	_, err := repo.questions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "subject", Value: 1}, {Key: "year", Value: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create subject/year index: %w", err)
	}

	return repo, nil
}

func (r *QuestionRepository) Create(ctx context.Context, q *domain.Question) error {
	now := time.Now().UTC()
	if q.ID == "" {
		q.ID = primitive.NewObjectID().Hex()
	}
	q.CreatedAt = now
	q.UpdatedAt = now

	if _, err := r.questions.InsertOne(ctx, q); err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (r *QuestionRepository) GetByID(ctx context.Context, id string) (*domain.Question, error) {
	var q domain.Question
	err := r.questions.FindOne(ctx, bson.M{"_id": id}).Decode(&q)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find question: %w", err)
	}
	return &q, nil
}

func (r *QuestionRepository) List(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	query := bson.M{}
	if filter.Subject != "" {
		query["subject"] = filter.Subject
	}
	if filter.Year != 0 {
		query["year"] = filter.Year
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}
	if filter.Offset > 0 {
		opts.SetSkip(filter.Offset)
	}

	cursor, err := r.questions.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer cursor.Close(ctx)

	var questions []domain.Question
	if err := cursor.All(ctx, &questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return questions, nil
}

func (r *QuestionRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Question, error) {
	cursor, err := r.questions.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find questions by ids: %w", err)
	}
	defer cursor.Close(ctx)

	var questions []domain.Question
	if err := cursor.All(ctx, &questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return questions, nil
}

func (r *QuestionRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.questions.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return n, nil
}

var _ domain.QuestionRepository = (*QuestionRepository)(nil)
