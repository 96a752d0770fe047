// Package tasks stores tasks and their attachments.
package tasks

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

var ErrNotFound = errors.New("task not found")

// Filter narrows List; zero ids match everything.
type Filter struct {
	ProjectID  primitive.ObjectID
	AssigneeID primitive.ObjectID
}

func (f Filter) bson() bson.M {
	m := bson.M{}
	if !f.ProjectID.IsZero() {
		m["projectId"] = f.ProjectID
	}
	if !f.AssigneeID.IsZero() {
		m["assigneeId"] = f.AssigneeID
	}
	return m
}

func (f Filter) matches(t *models.Task) bool {
	if !f.ProjectID.IsZero() && t.ProjectID != f.ProjectID {
		return false
	}
	if !f.AssigneeID.IsZero() && t.AssigneeID != f.AssigneeID {
		return false
	}
	return true
}

// Patch lists the mutable task fields after validation; nil means unchanged.
type Patch struct {
	Description *string
	DueDate     *time.Time
	Status      *models.TaskStatus
	AssigneeID  *primitive.ObjectID
	ProjectID   *primitive.ObjectID
}

func (p Patch) set(now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.DueDate != nil {
		set["dueDate"] = *p.DueDate
	}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.AssigneeID != nil {
		set["assigneeId"] = *p.AssigneeID
	}
	if p.ProjectID != nil {
		set["projectId"] = *p.ProjectID
	}
	return set
}

type Repository interface {
	Create(ctx context.Context, t *models.Task) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.Task, error)
	List(ctx context.Context, f Filter) ([]models.Task, error)
	Update(ctx context.Context, id primitive.ObjectID, p Patch) (*models.Task, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	AddAttachment(ctx context.Context, id primitive.ObjectID, a models.Attachment) (*models.Task, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, t *models.Task) error {
	res, err := r.col.InsertOne(ctx, t)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		t.ID = oid
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	var t models.Task
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *MongoRepository) List(ctx context.Context, f Filter) ([]models.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "dueDate", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, f.bson(), opts)
	if err != nil {
		return nil, err
	}
	out := []models.Task{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoRepository) findAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.M) (*models.Task, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var t models.Task
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *MongoRepository) Update(ctx context.Context, id primitive.ObjectID, p Patch) (*models.Task, error) {
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

func (r *MongoRepository) AddAttachment(ctx context.Context, id primitive.ObjectID, a models.Attachment) (*models.Task, error) {
	return r.findAndUpdate(ctx, id, bson.M{
		"$push": bson.M{"attachments": a},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
}
