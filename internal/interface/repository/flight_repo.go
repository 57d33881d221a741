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

// MongoFlightRepository implements FlightRepository
type MongoFlightRepository struct {
	collection *mongo.Collection
}

// NewMongoFlightRepository creates a new flight repository
func NewMongoFlightRepository(db *mongo.Database) repository.FlightRepository {
	collection := db.Collection("flights")

	ctx := context.Background()
	indexModel := mongo.IndexModel{
		Keys:    bson.M{"flightNumber": 1},
		Options: options.Index().SetUnique(true),
	}
	collection.Indexes().CreateOne(ctx, indexModel)

	return &MongoFlightRepository{
		collection: collection,
	}
}

// FindByNumber finds a flight by its IATA flight number
func (r *MongoFlightRepository) FindByNumber(ctx context.Context, flightNumber string) (*entity.Flight, error) {
	var flight entity.Flight
	err := r.collection.FindOne(ctx, bson.M{"flightNumber": flightNumber}).Decode(&flight)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &entity.NotFoundError{Resource: "flight", Key: flightNumber}
		}
		return nil, &entity.DatabaseError{Op: "find flight", Err: err}
	}
	return &flight, nil
}

// Create inserts a new flight document
func (r *MongoFlightRepository) Create(ctx context.Context, flight *entity.Flight) error {
	now := time.Now()
	if flight.ID == "" {
		flight.ID = primitive.NewObjectID().Hex()
	}
	flight.Version = 1
	flight.CreatedAt = now
	flight.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, flight)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &entity.ConflictError{Resource: "flight", Key: flight.FlightNumber}
		}
		return &entity.DatabaseError{Op: "create flight", Err: err}
	}
	return nil
}

// Save replaces the flight document, guarded by a version compare-and-swap.
// A concurrent writer that bumped the version first makes this save fail with
// a ConflictError instead of silently losing its history entries.
func (r *MongoFlightRepository) Save(ctx context.Context, flight *entity.Flight) error {
	expectedVersion := flight.Version
	flight.Version++

	filter := bson.M{
		"flightNumber": flight.FlightNumber,
		"version":      expectedVersion,
	}
	update := bson.M{"$set": bson.M{
		"origin":             flight.Origin,
		"destination":        flight.Destination,
		"scheduledDeparture": flight.ScheduledDeparture,
		"scheduledArrival":   flight.ScheduledArrival,
		"estimatedDeparture": flight.EstimatedDeparture,
		"estimatedArrival":   flight.EstimatedArrival,
		"actualDeparture":    flight.ActualDeparture,
		"actualArrival":      flight.ActualArrival,
		"currentStatus":      flight.CurrentStatus,
		"statusHistory":      flight.StatusHistory,
		"delay":              flight.Delay,
		"version":            flight.Version,
		"updatedAt":          flight.UpdatedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		flight.Version = expectedVersion
		return &entity.DatabaseError{Op: "save flight", Err: err}
	}
	if result.MatchedCount == 0 {
		flight.Version = expectedVersion
		return &entity.ConflictError{Resource: "flight version", Key: flight.FlightNumber}
	}
	return nil
}
