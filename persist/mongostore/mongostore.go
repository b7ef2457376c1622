// Package mongostore is the MongoDB backend for persist.
//
// Profiles are keyed by user id (_id), so the conditional upsert used for the
// first symptom write either matches, inserts, or collides on _id.
package mongostore

import (
	"context"
	"time"

	"github.com/Abraxas-365/rxintake/persist"
	"github.com/Abraxas-365/rxintake/prescription"
	"github.com/Abraxas-365/rxintake/storex"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	profilesCollection  = "profiles"
	medicinesCollection = "medicines"
)

type profileDoc struct {
	UserID    string    `bson:"_id"`
	Symptoms  string    `bson:"symptoms"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type medicineDoc struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Name      string    `bson:"name"`
	Dosage    string    `bson:"dosage"`
	Duration  string    `bson:"duration"`
	IDMed     string    `bson:"idmed,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

func newMedicineDoc(userID string, m prescription.Medicine, at time.Time) medicineDoc {
	return medicineDoc{
		ID:        primitive.NewObjectID().Hex(),
		UserID:    userID,
		Name:      m.Name,
		Dosage:    m.Dosage,
		Duration:  m.Duration,
		IDMed:     m.IDMed,
		CreatedAt: at.UTC().Truncate(time.Millisecond),
	}
}

func (d medicineDoc) record() persist.MedicineRecord {
	return persist.MedicineRecord{
		ID:     d.ID,
		UserID: d.UserID,
		Medicine: prescription.Medicine{
			Name:     d.Name,
			Dosage:   d.Dosage,
			Duration: d.Duration,
			IDMed:    d.IDMed,
		},
		CreatedAt: d.CreatedAt,
	}
}

// swapFilter matches the profile only while it still holds prev. A missing
// symptoms field is treated like the empty string.
func swapFilter(userID, prev string) bson.M {
	if prev == "" {
		return bson.M{
			"_id": userID,
			"$or": bson.A{
				bson.M{"symptoms": ""},
				bson.M{"symptoms": bson.M{"$exists": false}},
			},
		}
	}
	return bson.M{"_id": userID, "symptoms": prev}
}

func swapUpdate(next string, at time.Time) bson.M {
	return bson.M{"$set": bson.M{"symptoms": next, "updated_at": at}}
}

// Store implements persist.Store
type Store struct {
	db        *mongo.Database
	profiles  *mongo.Collection
	medicines *mongo.Collection
	now       func() time.Time
}

var _ persist.Store = (*Store)(nil)

func New(db *mongo.Database) *Store {
	return &Store{
		db:        db,
		profiles:  db.Collection(profilesCollection),
		medicines: db.Collection(medicinesCollection),
		now:       time.Now,
	}
}

// Open connects, pings and returns a store on database name
func Open(ctx context.Context, uri, name string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, connectionFailed(err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, connectionFailed(err)
	}
	return New(client.Database(name)), nil
}

func connectionFailed(err error) error {
	return storex.ErrorRegistry.New(storex.ErrConnectionFailed).
		WithCause(err).
		WithDetail("driver", "mongo")
}

// Migrate creates the medicines listing index
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.medicines.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return storex.ErrorRegistry.New(storex.ErrMigrationFailed).WithCause(err)
	}
	return nil
}

func (s *Store) ReadSymptoms(ctx context.Context, userID string) (string, error) {
	var doc profileDoc
	err := s.profiles.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return "", nil
	}
	if err != nil {
		return "", queryFailed(err, profilesCollection)
	}
	return doc.Symptoms, nil
}

func (s *Store) SwapSymptoms(ctx context.Context, userID, prev, next string) (bool, error) {
	opts := options.Update().SetUpsert(prev == "")
	res, err := s.profiles.UpdateOne(ctx, swapFilter(userID, prev), swapUpdate(next, s.now().UTC()), opts)
	if mongo.IsDuplicateKeyError(err) {
		// the profile exists and no longer holds ""
		return false, nil
	}
	if err != nil {
		return false, storex.ErrorRegistry.New(storex.ErrUpdateFailed).
			WithCause(err).
			WithDetail("collection", profilesCollection)
	}
	return res.MatchedCount == 1 || res.UpsertedCount == 1, nil
}

func (s *Store) InsertMedicine(ctx context.Context, userID string, m prescription.Medicine) (persist.MedicineRecord, error) {
	doc := newMedicineDoc(userID, m, s.now())
	if _, err := s.medicines.InsertOne(ctx, doc); err != nil {
		return persist.MedicineRecord{}, createFailed(err)
	}
	return doc.record(), nil
}

// InsertMedicines runs in a multi-document transaction, which needs a
// replica set or sharded cluster.
func (s *Store) InsertMedicines(ctx context.Context, userID string, ms []prescription.Medicine) ([]persist.MedicineRecord, error) {
	docs := make([]any, len(ms))
	out := make([]persist.MedicineRecord, len(ms))
	at := s.now()
	for i, m := range ms {
		doc := newMedicineDoc(userID, m, at)
		docs[i] = doc
		out[i] = doc.record()
	}

	sess, err := s.db.Client().StartSession()
	if err != nil {
		return nil, storex.ErrorRegistry.New(storex.ErrTxBeginFailed).WithCause(err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return s.medicines.InsertMany(sc, docs)
	})
	if err != nil {
		return nil, createFailed(err)
	}
	return out, nil
}

func (s *Store) ListMedicines(ctx context.Context, userID string, page storex.PageRequest) (storex.Paginated[persist.MedicineRecord], error) {
	page = page.Normalize()
	filter := bson.M{"user_id": userID}

	total, err := s.medicines.CountDocuments(ctx, filter)
	if err != nil {
		return storex.Paginated[persist.MedicineRecord]{}, queryFailed(err, medicinesCollection)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(page.Offset())).
		SetLimit(int64(page.PageSize))
	cur, err := s.medicines.Find(ctx, filter, opts)
	if err != nil {
		return storex.Paginated[persist.MedicineRecord]{}, queryFailed(err, medicinesCollection)
	}
	defer cur.Close(ctx)

	var docs []medicineDoc
	if err := cur.All(ctx, &docs); err != nil {
		return storex.Paginated[persist.MedicineRecord]{}, queryFailed(err, medicinesCollection)
	}

	records := make([]persist.MedicineRecord, len(docs))
	for i, d := range docs {
		records[i] = d.record()
	}
	return storex.NewPaginated(records, page.Page, page.PageSize, int(total)), nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

func queryFailed(err error, collection string) error {
	return storex.ErrorRegistry.New(storex.ErrQueryFailed).
		WithCause(err).
		WithDetail("collection", collection)
}

func createFailed(err error) error {
	return storex.ErrorRegistry.New(storex.ErrCreateFailed).
		WithCause(err).
		WithDetail("collection", medicinesCollection)
}
