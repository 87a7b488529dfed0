package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tasknest/tasknest-go/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoTask struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      string             `bson:"userId"`
	Title       string             `bson:"title"`
	Description string             `bson:"description,omitempty"`
	Priority    string             `bson:"priority"`
	Status      string             `bson:"status"`
	DueDate     time.Time          `bson:"dueDate"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

func (d mongoTask) toModel() model.Task {
	return model.Task{
		ID:          d.ID.Hex(),
		OwnerID:     d.UserID,
		Title:       d.Title,
		Description: d.Description,
		Priority:    model.Priority(d.Priority),
		Status:      model.Status(d.Status),
		DueDate:     d.DueDate,
		CreatedAt:   d.CreatedAt,
	}
}

// MongoTaskRepository stores tasks in the "tasks" collection, one document
// per task, each carrying its owner's id in "userId".
type MongoTaskRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoTaskRepository(db *mongo.Database) *MongoTaskRepository {
	return &MongoTaskRepository{
		coll: db.Collection(tasksCollection),
		now:  mongoNow,
	}
}

func (r *MongoTaskRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetName("userId"),
	})
	if err != nil {
		return fmt.Errorf("creating tasks index: %w", err)
	}
	return nil
}

func (r *MongoTaskRepository) Insert(ctx context.Context, task *model.Task) error {
	task.CreatedAt = r.now()
	task.DueDate = task.DueDate.UTC().Truncate(time.Millisecond)

	doc := mongoTask{
		UserID:      task.OwnerID,
		Title:       task.Title,
		Description: task.Description,
		Priority:    string(task.Priority),
		Status:      string(task.Status),
		DueDate:     task.DueDate,
		CreatedAt:   task.CreatedAt,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return err
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	task.ID = oid.Hex()
	return nil
}

func (r *MongoTaskRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Task, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"userId": ownerID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []mongoTask
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	tasks := make([]model.Task, len(docs))
	for i, d := range docs {
		tasks[i] = d.toModel()
	}
	return tasks, nil
}

func (r *MongoTaskRepository) UpdateByOwnerAndID(ctx context.Context, ownerID, id string, patch model.TaskPatch) (*model.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrTaskNotFound
	}
	filter := bson.M{"_id": oid, "userId": ownerID}

	var doc mongoTask
	set := patchToSet(patch)
	if len(set) == 0 {
		err = r.coll.FindOne(ctx, filter).Decode(&doc)
	} else {
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		err = r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&doc)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	t := doc.toModel()
	return &t, nil
}

func (r *MongoTaskRepository) DeleteByOwnerAndID(ctx context.Context, ownerID, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrTaskNotFound
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid, "userId": ownerID})
	if err != nil {
		return err
	}
	if res.DeletedCount != 1 {
		return ErrTaskNotFound
	}
	return nil
}

// patchToSet builds the $set document; owner, id and createdAt can never
// appear in it.
func patchToSet(p model.TaskPatch) bson.M {
	set := bson.M{}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Priority != nil {
		set["priority"] = string(*p.Priority)
	}
	if p.Status != nil {
		set["status"] = string(*p.Status)
	}
	if p.DueDate != nil {
		set["dueDate"] = p.DueDate.UTC().Truncate(time.Millisecond)
	}
	return set
}
