// Package projects stores projects and applies project ownership rules.
package projects

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskhub/taskhub-api/internal/models"
)

var ErrNotFound = errors.New("project not found")

// Patch lists the mutable project fields; nil means unchanged.
type Patch struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

func (p Patch) set(now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.StartDate != nil {
		set["startDate"] = *p.StartDate
	}
	if p.EndDate != nil {
		set["endDate"] = *p.EndDate
	}
	return set
}

type Repository interface {
	Create(ctx context.Context, p *models.Project) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.Project, error)
	GetMany(ctx context.Context, ids []primitive.ObjectID) ([]models.Project, error)
	// ListForUser returns projects owned by userID or listing it as a member.
	ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Project, error)
	Update(ctx context.Context, id primitive.ObjectID, p Patch) (*models.Project, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	AddMembers(ctx context.Context, id primitive.ObjectID, userIDs []primitive.ObjectID) (*models.Project, error)
	RemoveMember(ctx context.Context, id, userID primitive.ObjectID) (*models.Project, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, p *models.Project) error {
	if p.Members == nil {
		p.Members = []primitive.ObjectID{}
	}
	res, err := r.col.InsertOne(ctx, p)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	var p models.Project
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *MongoRepository) find(ctx context.Context, filter bson.M) ([]models.Project, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	out := []models.Project{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoRepository) GetMany(ctx context.Context, ids []primitive.ObjectID) ([]models.Project, error) {
	if len(ids) == 0 {
		return []models.Project{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *MongoRepository) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Project, error) {
	return r.find(ctx, bson.M{"$or": bson.A{
		bson.M{"ownerId": userID},
		bson.M{"members": userID},
	}})
}

func (r *MongoRepository) findAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.M) (*models.Project, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Project
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *MongoRepository) Update(ctx context.Context, id primitive.ObjectID, p Patch) (*models.Project, error) {
	return r.findAndUpdate(ctx, id, bson.M{"$set": p.set(time.Now().UTC())})
}

func (r *MongoRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) AddMembers(ctx context.Context, id primitive.ObjectID, userIDs []primitive.ObjectID) (*models.Project, error) {
	return r.findAndUpdate(ctx, id, bson.M{
		"$addToSet": bson.M{"members": bson.M{"$each": userIDs}},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (r *MongoRepository) RemoveMember(ctx context.Context, id, userID primitive.ObjectID) (*models.Project, error) {
	return r.findAndUpdate(ctx, id, bson.M{
		"$pull": bson.M{"members": userID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
}
