package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"reactive-user-service/internal/domain/user"
	pkgerrors "reactive-user-service/pkg/errors"
	"reactive-user-service/pkg/logger"
)

// EmailIndex is the name of the unique index on email. Duplicate inserts report
// "index: email dup key" with this name.
const EmailIndex = "email"

// userDocument is the stored shape of a user.
type userDocument struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Name     string             `bson:"name"`
	Email    string             `bson:"email"`
	Password string             `bson:"password"`
}

// UserRepoMongo implements the user repository on a MongoDB collection.
type UserRepoMongo struct {
	coll *mongodriver.Collection
	log  *zap.Logger
}

// NewUserRepoMongo creates a repository over coll. Indexes are expected to exist,
// see EnsureIndexes.
func NewUserRepoMongo(coll *mongodriver.Collection, log *zap.Logger) *UserRepoMongo {
	return &UserRepoMongo{coll: coll, log: log}
}

// indexOptionsConflict is returned when an index on the same keys already
// exists under another name or with other options.
const indexOptionsConflict = 85

// EnsureIndexes creates the unique email index. A unique index on email that
// already exists under another name, e.g. the default "email_1", is accepted.
// Duplicate messages then carry that name and no longer contain "email dup key".
func EnsureIndexes(ctx context.Context, coll *mongodriver.Collection) error {
	models := []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(EmailIndex).SetUnique(true),
		},
	}

	_, err := coll.Indexes().CreateMany(ctx, models)
	if err == nil {
		return nil
	}

	var ce mongodriver.CommandError
	if errors.As(err, &ce) && ce.HasErrorCode(indexOptionsConflict) {
		unique, listErr := hasUniqueEmailIndex(ctx, coll)
		if listErr != nil {
			return fmt.Errorf("mongo list indexes: %w", listErr)
		}
		if unique {
			return nil
		}
	}
	return fmt.Errorf("mongo ensure indexes: %w", err)
}

// hasUniqueEmailIndex reports whether a unique single-key index on email exists
func hasUniqueEmailIndex(ctx context.Context, coll *mongodriver.Collection) (bool, error) {
	cursor, err := coll.Indexes().List(ctx)
	if err != nil {
		return false, err
	}

	var specs []struct {
		Name   string `bson:"name"`
		Key    bson.D `bson:"key"`
		Unique bool   `bson:"unique"`
	}
	if err := cursor.All(ctx, &specs); err != nil {
		return false, err
	}

	for _, spec := range specs {
		if spec.Unique && len(spec.Key) == 1 && spec.Key[0].Key == "email" {
			return true, nil
		}
	}
	return false, nil
}

// Save inserts u when it has no id, otherwise replaces the document with u's id,
// inserting it if missing.
func (r *UserRepoMongo) Save(ctx context.Context, u *user.User) (*user.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	doc := userDocument{Name: u.Name, Email: u.Email, Password: u.Password}

	if u.ID == "" {
		doc.ID = primitive.NewObjectID()
		if _, err := r.coll.InsertOne(ctx, doc); err != nil {
			return nil, r.writeError(ctx, "insert", err)
		}
	} else {
		oid, err := primitive.ObjectIDFromHex(u.ID)
		if err != nil {
			return nil, fmt.Errorf("mongo save: invalid id %q: %w", u.ID, err)
		}
		doc.ID = oid
		opts := options.Replace().SetUpsert(true)
		if _, err := r.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: oid}}, doc, opts); err != nil {
			return nil, r.writeError(ctx, "replace", err)
		}
	}

	return toDomain(doc), nil
}

// FindByID returns (nil, nil) when no document matches or id is not an ObjectID.
func (r *UserRepoMongo) FindByID(ctx context.Context, id string) (*user.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var doc userDocument
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("mongo find one: %w", err)
	}
	return toDomain(doc), nil
}

// FindAll returns every user ordered by _id, which follows insertion time.
func (r *UserRepoMongo) FindAll(ctx context.Context) ([]user.User, error) {
	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}

	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo cursor: %w", err)
	}

	users := make([]user.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, *toDomain(d))
	}
	return users, nil
}

// FindAndRemove deletes the document with id and returns it, or (nil, nil) when
// nothing matches.
func (r *UserRepoMongo) FindAndRemove(ctx context.Context, id string) (*user.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var doc userDocument
	if err := r.coll.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("mongo find one and delete: %w", err)
	}

	logger.WithContext(ctx, r.log).Debug("user deleted in mongo", zap.String("id", id))
	return toDomain(doc), nil
}

// Ping checks the primary is reachable.
func (r *UserRepoMongo) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, readpref.Primary())
}

// writeError turns a unique index violation into a DuplicateKeyError that keeps
// the server message, e.g. "... index: email dup key: { email: ... }".
func (r *UserRepoMongo) writeError(ctx context.Context, op string, err error) error {
	if mongodriver.IsDuplicateKeyError(err) {
		return pkgerrors.NewDuplicateKeyError(EmailIndex, duplicateMessage(err), err)
	}
	logger.WithContext(ctx, r.log).Error("mongo write failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("mongo %s: %w", op, err)
}

func duplicateMessage(err error) string {
	var we mongodriver.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return e.Message
			}
		}
	}
	var ce mongodriver.CommandError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}

func toDomain(d userDocument) *user.User {
	return &user.User{
		ID:       d.ID.Hex(),
		Name:     d.Name,
		Email:    d.Email,
		Password: d.Password,
	}
}
