package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fertilizer-advisor/internal/domain"
)

// MongoStore implements the Store interface using MongoDB, one document per
// recommendation.
type MongoStore struct {
	client     *mongo.Client
	database   *mongo.Database
	collection *mongo.Collection
}

type inputDocument struct {
	Nitrogen    float64 `bson:"nitrogen"`
	Phosphorus  float64 `bson:"phosphorus"`
	Potassium   float64 `bson:"potassium"`
	PH          float64 `bson:"ph"`
	Moisture    float64 `bson:"moisture"`
	Temperature float64 `bson:"temperature"`
	CropType    string  `bson:"cropType"`
}

type findingDocument struct {
	Nutrient       string  `bson:"nutrient"`
	Level          float64 `bson:"level"`
	Status         string  `bson:"status"`
	Severity       string  `bson:"severity"`
	Recommendation string  `bson:"recommendation"`
}

type recordDocument struct {
	ID                     string            `bson:"_id"`
	UserID                 string            `bson:"userId,omitempty"`
	FertilizerType         string            `bson:"fertilizerType"`
	QuantityKgPerAcre      float64           `bson:"quantityKgPerAcre"`
	SoilHealthScore        float64           `bson:"soilHealthScore"`
	DeficiencyAnalysis     []findingDocument `bson:"deficiencyAnalysis"`
	ImprovementSuggestions []string          `bson:"improvementSuggestions"`
	InputData              inputDocument     `bson:"inputData"`
	ModelVersion           string            `bson:"modelVersion"`
	CreatedAt              time.Time         `bson:"createdAt"`
}

// NewMongoStore connects to MongoDB and returns a store over the given
// database and collection.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if database == "" {
		database = "fertilizer_advisor"
	}
	if collection == "" {
		collection = "recommendations"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	coll := db.Collection(collection)
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &MongoStore{client: client, database: db, collection: coll}, nil
}

func toDocument(r *Record) recordDocument {
	in := r.Response.InputData
	findings := make([]findingDocument, len(r.Response.DeficiencyAnalysis))
	for i, f := range r.Response.DeficiencyAnalysis {
		findings[i] = findingDocument{
			Nutrient:       string(f.Nutrient),
			Level:          f.Level,
			Status:         string(f.Status),
			Severity:       string(f.Severity),
			Recommendation: f.Recommendation,
		}
	}

	return recordDocument{
		ID:                     r.ID,
		UserID:                 r.UserID,
		FertilizerType:         string(r.Response.FertilizerType),
		QuantityKgPerAcre:      r.Response.QuantityKgPerAcre,
		SoilHealthScore:        r.Response.SoilHealthScore,
		DeficiencyAnalysis:     findings,
		ImprovementSuggestions: r.Response.ImprovementSuggestions,
		InputData: inputDocument{
			Nitrogen:    in.Nitrogen,
			Phosphorus:  in.Phosphorus,
			Potassium:   in.Potassium,
			PH:          in.PH,
			Moisture:    in.Moisture,
			Temperature: in.Temperature,
			CropType:    string(in.Crop),
		},
		ModelVersion: r.ModelVersion,
		CreatedAt:    r.CreatedAt,
	}
}

func (d recordDocument) toRecord() *Record {
	findings := make([]domain.DeficiencyFinding, len(d.DeficiencyAnalysis))
	for i, f := range d.DeficiencyAnalysis {
		findings[i] = domain.DeficiencyFinding{
			Nutrient:       domain.Nutrient(f.Nutrient),
			Level:          f.Level,
			Status:         domain.FindingStatus(f.Status),
			Severity:       domain.Severity(f.Severity),
			Recommendation: f.Recommendation,
		}
	}
	suggestions := d.ImprovementSuggestions
	if suggestions == nil {
		suggestions = []string{}
	}

	return &Record{
		ID:     d.ID,
		UserID: d.UserID,
		Response: domain.RecommendationResponse{
			FertilizerType:         domain.FertilizerType(d.FertilizerType),
			QuantityKgPerAcre:      d.QuantityKgPerAcre,
			SoilHealthScore:        d.SoilHealthScore,
			DeficiencyAnalysis:     findings,
			ImprovementSuggestions: suggestions,
			InputData: domain.SoilSample{
				Nitrogen:    d.InputData.Nitrogen,
				Phosphorus:  d.InputData.Phosphorus,
				Potassium:   d.InputData.Potassium,
				PH:          d.InputData.PH,
				Moisture:    d.InputData.Moisture,
				Temperature: d.InputData.Temperature,
				Crop:        domain.CropID(d.InputData.CropType),
			},
		},
		ModelVersion: d.ModelVersion,
		CreatedAt:    d.CreatedAt,
	}
}

// Save stores a recommendation record.
func (s *MongoStore) Save(ctx context.Context, record *Record) error {
	prepare(record)
	// BSON dates carry millisecond precision.
	record.CreatedAt = record.CreatedAt.Truncate(time.Millisecond)

	if _, err := s.collection.InsertOne(ctx, toDocument(record)); err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *MongoStore) Get(ctx context.Context, id string) (*Record, error) {
	var doc recordDocument
	err := s.collection.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find: %w", err)
	}
	return doc.toRecord(), nil
}

func userFilter(userID string) bson.D {
	if userID == "" {
		return bson.D{}
	}
	return bson.D{{Key: "userId", Value: userID}}
}

// List returns records newest first with pagination.
func (s *MongoStore) List(ctx context.Context, userID string, limit, offset int) ([]*Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := s.collection.Find(ctx, userFilter(userID), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer cursor.Close(ctx)

	result := []*Record{}
	for cursor.Next(ctx) {
		var doc recordDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		result = append(result, doc.toRecord())
	}
	return result, cursor.Err()
}

// Count returns the number of records.
func (s *MongoStore) Count(ctx context.Context, userID string) (int64, error) {
	return s.collection.CountDocuments(ctx, userFilter(userID))
}

// Delete removes a record by ID.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	result, err := s.collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Database returns the database holding the collection, shared with the
// account store.
func (s *MongoStore) Database() *mongo.Database {
	return s.database
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
