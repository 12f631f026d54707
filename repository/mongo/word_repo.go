package mongo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chat-server/models"
)

const collectionWords = "censor_words"

type WordRepository struct {
	col *mongo.Collection
}

func NewWordRepository(db *mongo.Database) *WordRepository {
	return &WordRepository{col: db.Collection(collectionWords)}
}

func (r *WordRepository) Add(ctx context.Context, word, createdBy string) (*models.CensorWord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	w := &models.CensorWord{
		ID:        uuid.NewString(),
		Word:      strings.ToLower(word),
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}
	if _, err := r.col.InsertOne(ctx, w); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, models.ErrConflict
		}
		return nil, err
	}
	return w, nil
}

func (r *WordRepository) Remove(ctx context.Context, word string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"word": strings.ToLower(word)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *WordRepository) List(ctx context.Context) ([]models.CensorWord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "word", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	words := make([]models.CensorWord, 0)
	if err := cur.All(ctx, &words); err != nil {
		return nil, err
	}
	return words, nil
}

// EnsureIndexes creates the unique word index.
func (r *WordRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "word", Value: 1}},
		Options: optionsUnique(),
	})
	return err
}
