package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chat-server/models"
)

const collectionGroups = "groups"

type GroupRepository struct {
	col *mongo.Collection
}

func NewGroupRepository(db *mongo.Database) *GroupRepository {
	return &GroupRepository{col: db.Collection(collectionGroups)}
}

func (r *GroupRepository) Create(ctx context.Context, name, createdBy string) (*models.Group, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	g := &models.Group{
		ID:        uuid.NewString(),
		Name:      name,
		Members:   []string{createdBy},
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}
	if _, err := r.col.InsertOne(ctx, g); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, models.ErrConflict
		}
		return nil, err
	}
	return g, nil
}

func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var g models.Group
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&g)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *GroupRepository) List(ctx context.Context) ([]models.Group, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	groups := make([]models.Group, 0)
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// AddMember joins username to the group with $addToSet, so concurrent
// joins cannot duplicate membership.
func (r *GroupRepository) AddMember(ctx context.Context, groupID, username string) (*models.Group, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var g models.Group
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": groupID},
		bson.M{"$addToSet": bson.M{"members": username}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&g)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// EnsureIndexes creates the unique group name index.
func (r *GroupRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: optionsUnique(),
	})
	return err
}
