package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-email-verify/internal/domain"
	"github.com/go-email-verify/internal/pkg/id"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Document field names. Must match the bson tags on document.
const (
	fieldID         = "_id"
	fieldEmail      = "email"
	fieldToken      = "token"
	fieldVerified   = "verified"
	fieldVerifiedAt = "verified_at"
	fieldName       = "name"
	fieldPhone      = "phone"
	fieldCreatedAt  = "created_at"
	fieldUpdatedAt  = "updated_at"
)

// RecordRepo stores users and leads as documents in two collections of one database.
// The unique index on email (EnsureIndexes) keeps one document per address.
type RecordRepo struct {
	client      *mongo.Client
	collections map[domain.Collection]*mongo.Collection
}

func NewRecordRepo(client *mongo.Client, database string) *RecordRepo {
	db := client.Database(database)
	return &RecordRepo{
		client: client,
		collections: map[domain.Collection]*mongo.Collection{
			domain.CollectionUsers: db.Collection(string(domain.CollectionUsers)),
			domain.CollectionLeads: db.Collection(string(domain.CollectionLeads)),
		},
	}
}

func (r *RecordRepo) coll(c domain.Collection) (*mongo.Collection, error) {
	mc, ok := r.collections[c]
	if !ok {
		return nil, fmt.Errorf("no collection %q", c)
	}
	return mc, nil
}

func (r *RecordRepo) FindByEmail(ctx context.Context, c domain.Collection, email string) (*domain.Record, error) {
	return r.findOne(ctx, c, bson.D{{Key: fieldEmail, Value: email}})
}

func (r *RecordRepo) FindByEmailAndToken(ctx context.Context, c domain.Collection, email, token string) (*domain.Record, error) {
	return r.findOne(ctx, c, bson.D{
		{Key: fieldEmail, Value: email},
		{Key: fieldToken, Value: token},
	})
}

func (r *RecordRepo) findOne(ctx context.Context, c domain.Collection, filter bson.D) (*domain.Record, error) {
	mc, err := r.coll(c)
	if err != nil {
		return nil, err
	}
	var doc document
	if err := mc.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("record not found: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	rec := doc.record()
	return &rec, nil
}

func (r *RecordRepo) UpsertUnverified(ctx context.Context, c domain.Collection, fields domain.RecordFields, token string) (*domain.Record, error) {
	mc, err := r.coll(c)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	set := bson.D{
		{Key: fieldToken, Value: token},
		{Key: fieldVerified, Value: false},
		{Key: fieldUpdatedAt, Value: now},
	}
	if c == domain.CollectionLeads {
		set = append(set,
			bson.E{Key: fieldName, Value: fields.Name},
			bson.E{Key: fieldPhone, Value: fields.Phone},
		)
	}
	update := bson.D{
		{Key: "$set", Value: set},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: fieldID, Value: id.New()},
			{Key: fieldCreatedAt, Value: now},
		}},
		{Key: "$unset", Value: bson.D{{Key: fieldVerifiedAt, Value: ""}}},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc document
	err = mc.FindOneAndUpdate(ctx, bson.D{{Key: fieldEmail, Value: fields.Email}}, update, opts).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("upsert record: %w", err)
	}
	rec := doc.record()
	return &rec, nil
}

// MarkVerified flips the flag only while the stored document still carries rec.Token.
// Email is unique per collection, so it identifies the document whatever type its _id has.

func (r *RecordRepo) MarkVerified(ctx context.Context, c domain.Collection, rec *domain.Record) error {
	mc, err := r.coll(c)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := mc.UpdateOne(ctx,
		bson.D{
			{Key: fieldEmail, Value: rec.Email},
			{Key: fieldToken, Value: rec.Token},
			{Key: fieldVerified, Value: false},
		},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: fieldVerified, Value: true},
			{Key: fieldVerifiedAt, Value: now},
			{Key: fieldUpdatedAt, Value: now},
		}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}
	// Nothing unverified matched: fine if it was already verified through this token.
	// A re-issued token leaves nothing to count.
	n, err := mc.CountDocuments(ctx, bson.D{
		{Key: fieldEmail, Value: rec.Email},
		{Key: fieldToken, Value: rec.Token},
		{Key: fieldVerified, Value: true},
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("record %s: %w", rec.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *RecordRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}
