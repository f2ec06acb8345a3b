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

// SubmissionRepository implements domain.SubmissionRepository on
// MongoDB, covering submissions and the per-user performance summary
// the realtime layer mutates.
type SubmissionRepository struct {
	submissions  *mongo.Collection
	performances *mongo.Collection
}

// NewSubmissionRepository creates the repository and its indexes.
func NewSubmissionRepository(ctx context.Context, db *mongo.Database) (*SubmissionRepository, error) {
	repo := &SubmissionRepository{
		submissions:  db.Collection(SubmissionsCollection),
		performances: db.Collection(PerformancesCollection),
	}

	_, err := repo.submissions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create submission index: %w", err)
	}

	_, err = repo.performances.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create performance index: %w", err)
	}

	return repo, nil
}

func (r *SubmissionRepository) Insert(ctx context.Context, s *domain.Submission) error {
	now := time.Now().UTC()
	if s.ID == "" {
		s.ID = primitive.NewObjectID().Hex()
	}
	s.CreatedAt = now
	s.UpdatedAt = now

	if _, err := r.submissions.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (r *SubmissionRepository) ListByUser(ctx context.Context, userID string) ([]domain.Submission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.submissions.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer cursor.Close(ctx)

	var submissions []domain.Submission
	if err := cursor.All(ctx, &submissions); err != nil {
		return nil, fmt.Errorf("decode submissions: %w", err)
	}
	return submissions, nil
}

func (r *SubmissionRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.submissions.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}

// UpdatePerformance overwrites an existing performance record. No
// upsert: a user with no record yields zero modified documents, which
// the realtime layer turns into a targeted error.
func (r *SubmissionRepository) UpdatePerformance(ctx context.Context, userID string, score float64) (int64, error) {
	res, err := r.performances.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$set": bson.M{"score": score, "updated_at": time.Now().UTC()},
			"$inc": bson.M{"attempts": 1},
		},
	)
	if err != nil {
		return 0, fmt.Errorf("update performance: %w", err)
	}
	return res.ModifiedCount, nil
}

// UpsertPerformance seeds or refreshes the record; used by the
// submission flow so the realtime updates have something to mutate.
func (r *SubmissionRepository) UpsertPerformance(ctx context.Context, userID string, score float64) error {
	_, err := r.performances.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$set": bson.M{"score": score, "updated_at": time.Now().UTC()},
			"$inc": bson.M{"attempts": 1},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert performance: %w", err)
	}
	return nil
}

func (r *SubmissionRepository) UpdateTestStatus(ctx context.Context, testID string, status domain.TestStatus) (int64, error) {
	res, err := r.submissions.UpdateOne(ctx,
		bson.M{"_id": testID},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, fmt.Errorf("update test status: %w", err)
	}
	return res.ModifiedCount, nil
}

var _ domain.SubmissionRepository = (*SubmissionRepository)(nil)
