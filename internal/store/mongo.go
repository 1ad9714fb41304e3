package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/todo-backend/internal/models"
	"github.com/AnshRaj112/todo-backend/pkg/utils"
)

const (
	accountsCollection = "accounts"
	todosCollection    = "todos"
	countersCollection = "counters"
)

// nextSequence atomically increments and returns the named counter. Values start at 1
// and are never handed out twice.
func nextSequence(ctx context.Context, db *mongo.Database, name string) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := db.Collection(countersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}
	return doc.Seq, nil
}

// EnsureMongoIndexes creates the unique email index and the owner index on todos.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(accountsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_email"),
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(todosCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "_id", Value: 1}},
		Options: options.Index().SetName("user_id_id"),
	})
	return err
}

// mongoNow truncates to the millisecond precision BSON dates keep.
func mongoNow(now func() time.Time) time.Time {
	return now().UTC().Truncate(time.Millisecond)
}

// MongoAccountStore stores accounts in the accounts collection.
type MongoAccountStore struct {
	db  *mongo.Database
	now func() time.Time
}

func NewMongoAccountStore(db *mongo.Database) *MongoAccountStore {
	return &MongoAccountStore{db: db, now: time.Now}
}

func (s *MongoAccountStore) Create(ctx context.Context, username, email, passwordHash string) (*models.Account, error) {
	email = utils.NormalizeEmail(email)

	// Cheap pre-check; the unique index is what actually guarantees uniqueness under races.
	if existing, err := s.FindByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("account %q: %w", email, utils.ErrConflict)
	}

	id, err := nextSequence(ctx, s.db, accountsCollection)
	if err != nil {
		return nil, err
	}

	a := models.Account{
		ID:        id,
		Username:  username,
		Email:     email,
		Password:  passwordHash,
		CreatedAt: mongoNow(s.now),
	}
	if _, err := s.db.Collection(accountsCollection).InsertOne(ctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("account %q: %w", email, utils.ErrConflict)
		}
		return nil, err
	}
	return &a, nil
}

func (s *MongoAccountStore) findOne(ctx context.Context, filter bson.M) (*models.Account, error) {
	var a models.Account
	err := s.db.Collection(accountsCollection).FindOne(ctx, filter).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (s *MongoAccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.findOne(ctx, bson.M{"email": utils.NormalizeEmail(email)})
}

func (s *MongoAccountStore) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoAccountStore) Count(ctx context.Context) (int, error) {
	n, err := s.db.Collection(accountsCollection).CountDocuments(ctx, bson.M{})
	return int(n), err
}

// MongoTaskStore stores tasks in the todos collection. Every filter includes user_id.
type MongoTaskStore struct {
	db  *mongo.Database
	now func() time.Time
}

func NewMongoTaskStore(db *mongo.Database) *MongoTaskStore {
	return &MongoTaskStore{db: db, now: time.Now}
}

func ownedFilter(id, ownerID int64) bson.M {
	return bson.M{"_id": id, "user_id": ownerID}
}

func (s *MongoTaskStore) Create(ctx context.Context, ownerID int64, title, description string) (*models.Task, error) {
	title, err := utils.ValidateTitle(title)
	if err != nil {
		return nil, err
	}

	id, err := nextSequence(ctx, s.db, todosCollection)
	if err != nil {
		return nil, err
	}

	now := mongoNow(s.now)
	t := models.Task{
		ID:          id,
		UserID:      ownerID,
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.db.Collection(todosCollection).InsertOne(ctx, t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *MongoTaskStore) ListByOwner(ctx context.Context, ownerID int64, filter models.TaskFilter) ([]models.Task, error) {
	filter = filter.Normalize()

	query := bson.M{"user_id": ownerID}
	if filter.Completed != nil {
		query["completed"] = *filter.Completed
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(filter.Skip)).
		SetLimit(int64(filter.Limit))

	cursor, err := s.db.Collection(todosCollection).Find(ctx, query, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	tasks := make([]models.Task, 0)
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *MongoTaskStore) FindByIDAndOwner(ctx context.Context, id, ownerID int64) (*models.Task, error) {
	var t models.Task
	err := s.db.Collection(todosCollection).FindOne(ctx, ownedFilter(id, ownerID)).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// findAndUpdate runs update against the owned task and returns the new document.
func (s *MongoTaskStore) findAndUpdate(ctx context.Context, id, ownerID int64, update interface{}) (*models.Task, error) {
	var t models.Task
	err := s.db.Collection(todosCollection).FindOneAndUpdate(ctx,
		ownedFilter(id, ownerID),
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("task %d: %w", id, utils.ErrNotFound)
		}
		return nil, err
	}
	return &t, nil
}

func (s *MongoTaskStore) Update(ctx context.Context, id, ownerID int64, patch models.TaskPatch) (*models.Task, error) {
	set := bson.M{"updated_at": mongoNow(s.now)}
	if patch.Title != nil {
		title, err := utils.ValidateTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		set["title"] = title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Completed != nil {
		set["completed"] = *patch.Completed
	}
	return s.findAndUpdate(ctx, id, ownerID, bson.M{"$set": set})
}

func (s *MongoTaskStore) Toggle(ctx context.Context, id, ownerID int64) (*models.Task, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "completed", Value: bson.D{{Key: "$not", Value: bson.A{"$completed"}}}},
			{Key: "updated_at", Value: mongoNow(s.now)},
		}}},
	}
	return s.findAndUpdate(ctx, id, ownerID, pipeline)
}

func (s *MongoTaskStore) SetAttachment(ctx context.Context, id, ownerID int64, url string) (*models.Task, error) {
	return s.findAndUpdate(ctx, id, ownerID, bson.M{"$set": bson.M{
		"attachment_url": url,
		"updated_at":     mongoNow(s.now),
	}})
}

func (s *MongoTaskStore) Delete(ctx context.Context, id, ownerID int64) (*models.Task, error) {
	var t models.Task
	err := s.db.Collection(todosCollection).FindOneAndDelete(ctx, ownedFilter(id, ownerID)).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("task %d: %w", id, utils.ErrNotFound)
		}
		return nil, err
	}
	return &t, nil
}

func (s *MongoTaskStore) Count(ctx context.Context) (int, error) {
	n, err := s.db.Collection(todosCollection).CountDocuments(ctx, bson.M{})
	return int(n), err
}

// NewMongoStores wraps a connected database. Close disconnects the client.
func NewMongoStores(client *mongo.Client, db *mongo.Database) *Stores {
	return &Stores{
		Accounts: NewMongoAccountStore(db),
		Tasks:    NewMongoTaskStore(db),
		Close:    client.Disconnect,
	}
}
