package purchase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
	"github.com/dmitrymomot/meterkit/pkg/catalog"
	"github.com/dmitrymomot/meterkit/pkg/identity"
	mongox "github.com/dmitrymomot/meterkit/pkg/mongo"
)

// PurchaseCollection is the default collection name.
const PurchaseCollection = "purchases"

// Session ids are the document _id, so the primary key enforces uniqueness.
type purchaseDocument struct {
	SessionID       string    `bson:"_id"`
	ID              string    `bson:"purchase_id"`
	IdentityKey     string    `bson:"identity_key,omitempty"`
	ProductID       string    `bson:"product_id,omitempty"`
	AmountPaid      int64     `bson:"amount_paid"`
	Currency        string    `bson:"currency"`
	PaymentIntentID string    `bson:"payment_intent_id,omitempty"`
	RecordedAt      time.Time `bson:"recorded_at"`
}

type MongoLedger struct {
	coll *mongo.Collection
}

func NewMongoLedger(db *mongo.Database) *MongoLedger {
	return &MongoLedger{coll: db.Collection(PurchaseCollection)}
}

// EnsureIndexes creates the per-identity lookup index.
func (l *MongoLedger) EnsureIndexes(ctx context.Context) error {
	_, err := l.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "identity_key", Value: 1}, {Key: "recorded_at", Value: -1}},
		Options: options.Index().SetSparse(true),
	})
	return mongox.Classify(err)
}

func (l *MongoLedger) InsertOrGet(ctx context.Context, r Record) (Record, bool, error) {
	if r.SessionID == "" {
		return Record{}, false, errors.Join(apperr.ErrValidation, ErrMissingSessionID)
	}
	doc := purchaseDocument{
		SessionID:       r.SessionID,
		ID:              r.ID.String(),
		IdentityKey:     r.Identity.Key(),
		ProductID:       r.ProductID,
		AmountPaid:      r.AmountPaid.Amount,
		Currency:        r.AmountPaid.Code(),
		PaymentIntentID: r.PaymentIntentID,
		RecordedAt:      r.RecordedAt,
	}
	_, err := l.coll.InsertOne(ctx, doc)
	if err == nil {
		return r, true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return Record{}, false, mongox.Classify(err)
	}

	existing, err := l.Get(ctx, r.SessionID)
	if err != nil {
		return Record{}, false, err
	}
	return existing, false, nil
}

func (l *MongoLedger) Get(ctx context.Context, sessionID string) (Record, error) {
	var doc purchaseDocument
	err := l.coll.FindOne(ctx, bson.D{{Key: "_id", Value: sessionID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, errors.Join(apperr.ErrNotFound, ErrRecordNotFound)
	}
	if err != nil {
		return Record{}, mongox.Classify(err)
	}

	r := Record{
		SessionID:       doc.SessionID,
		ProductID:       doc.ProductID,
		AmountPaid:      catalog.Money{Amount: doc.AmountPaid, Currency: doc.Currency},
		PaymentIntentID: doc.PaymentIntentID,
		RecordedAt:      doc.RecordedAt.UTC(),
	}
	if r.ID, err = uuid.Parse(doc.ID); err != nil {
		return Record{}, errors.Join(apperr.ErrValidation, err)
	}
	if doc.IdentityKey != "" {
		if r.Identity, err = identity.ParseKey(doc.IdentityKey); err != nil {
			return Record{}, errors.Join(apperr.ErrValidation, err)
		}
	}
	return r, nil
}
