package repository

import (
	"context"
	"errors"
	"time"

	"flightcast-service/internal/domain/entity"
	"flightcast-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSubscriptionRepository implements SubscriptionRepository
type MongoSubscriptionRepository struct {
	collection *mongo.Collection
}

// NewMongoSubscriptionRepository creates a new subscription repository
func NewMongoSubscriptionRepository(db *mongo.Database) repository.SubscriptionRepository {
	collection := db.Collection("subscriptions")

	// Unique index on the (email, flightNumber, flightDate) triple
	ctx := context.Background()
	uniqueIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "email", Value: 1},
			{Key: "flightNumber", Value: 1},
			{Key: "flightDate", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	collection.Indexes().CreateOne(ctx, uniqueIndex)

	flightIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "flightNumber", Value: 1},
			{Key: "flightDate", Value: 1},
			{Key: "isActive", Value: 1},
		},
	}
	collection.Indexes().CreateOne(ctx, flightIndex)

	return &MongoSubscriptionRepository{
		collection: collection,
	}
}

// Create inserts a new subscription document
func (r *MongoSubscriptionRepository) Create(ctx context.Context, sub *entity.Subscription) error {
	if sub.ID == "" {
		sub.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.collection.InsertOne(ctx, sub)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &entity.ConflictError{Resource: "subscription", Key: sub.Email + "/" + sub.FlightNumber}
		}
		return &entity.DatabaseError{Op: "create subscription", Err: err}
	}
	return nil
}

// Save replaces the subscription document
func (r *MongoSubscriptionRepository) Save(ctx context.Context, sub *entity.Subscription) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": sub.ID}, sub)
	if err != nil {
		return &entity.DatabaseError{Op: "save subscription", Err: err}
	}
	if result.MatchedCount == 0 {
		return &entity.NotFoundError{Resource: "subscription", Key: sub.ID}
	}
	return nil
}

// FindByID finds a subscription by id
func (r *MongoSubscriptionRepository) FindByID(ctx context.Context, id string) (*entity.Subscription, error) {
	var sub entity.Subscription
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&sub)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &entity.NotFoundError{Resource: "subscription", Key: id}
		}
		return nil, &entity.DatabaseError{Op: "find subscription", Err: err}
	}
	return &sub, nil
}

// FindByEmail returns every subscription held by a recipient
func (r *MongoSubscriptionRepository) FindByEmail(ctx context.Context, email string) ([]*entity.Subscription, error) {
	return r.find(ctx, bson.M{"email": email})
}

// FindActiveByFlight returns the subscriptions eligible for dispatch: same
// flight, flight date inside the departure day, active, not unsubscribed
func (r *MongoSubscriptionRepository) FindActiveByFlight(ctx context.Context, flightNumber string, dayStart, dayEnd time.Time) ([]*entity.Subscription, error) {
	return r.find(ctx, bson.M{
		"flightNumber":               flightNumber,
		"flightDate":                 bson.M{"$gte": dayStart, "$lt": dayEnd},
		"isActive":                   true,
		"unsubscribe.isUnsubscribed": false,
	})
}

// FindForNotification narrows FindActiveByFlight to subscriptions whose
// preference for the type, or the status_changes catch-all, is enabled
func (r *MongoSubscriptionRepository) FindForNotification(ctx context.Context, flightNumber string, dayStart, dayEnd time.Time, notifType entity.NotificationType) ([]*entity.Subscription, error) {
	return r.find(ctx, bson.M{
		"flightNumber":               flightNumber,
		"flightDate":                 bson.M{"$gte": dayStart, "$lt": dayEnd},
		"isActive":                   true,
		"unsubscribe.isUnsubscribed": false,
		"$or": []bson.M{
			{"preferences." + string(notifType) + ".enabled": true},
			{"preferences." + string(entity.NotifyStatusChanges) + ".enabled": true},
		},
	})
}

// DeactivateExpired flips isActive off for every subscription past its expiry
func (r *MongoSubscriptionRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.collection.UpdateMany(ctx,
		bson.M{
			"isActive":  true,
			"expiresAt": bson.M{"$lt": now},
		},
		bson.M{"$set": bson.M{
			"isActive":  false,
			"updatedAt": now,
		}},
	)
	if err != nil {
		return 0, &entity.DatabaseError{Op: "deactivate expired subscriptions", Err: err}
	}
	return result.ModifiedCount, nil
}

func (r *MongoSubscriptionRepository) find(ctx context.Context, filter bson.M) ([]*entity.Subscription, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, &entity.DatabaseError{Op: "find subscriptions", Err: err}
	}
	defer cursor.Close(ctx)

	var subs []*entity.Subscription
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, &entity.DatabaseError{Op: "decode subscriptions", Err: err}
	}
	return subs, nil
}
