package entitlement

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
	"github.com/dmitrymomot/meterkit/pkg/identity"
	mongox "github.com/dmitrymomot/meterkit/pkg/mongo"
)

// PlanCollection is the default collection name.
const PlanCollection = "plan_records"

type planDocument struct {
	IdentityKey      string     `bson:"_id"`
	PlanType         string     `bson:"plan_type"`
	IsPro            bool       `bson:"is_pro"`
	StripeCustomerID string     `bson:"stripe_customer_id,omitempty"`
	UpgradedAt       *time.Time `bson:"upgraded_at,omitempty"`
	UpdatedAt        time.Time  `bson:"updated_at"`
}

// MongoStore keeps one document per identity, keyed by identity key.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(PlanCollection)}
}

// EnsureIndexes creates the customer id lookup index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "stripe_customer_id", Value: 1}},
		Options: options.Index().SetSparse(true),
	})
	return mongox.Classify(err)
}

func (s *MongoStore) Get(ctx context.Context, id identity.Identity) (PlanRecord, error) {
	return s.one(ctx, bson.D{{Key: "_id", Value: id.Key()}})
}

func (s *MongoStore) FindByCustomerID(ctx context.Context, customerID string) (PlanRecord, error) {
	if customerID == "" {
		return PlanRecord{}, errors.Join(apperr.ErrNotFound, ErrPlanNotFound)
	}
	return s.one(ctx, bson.D{{Key: "stripe_customer_id", Value: customerID}})
}

func (s *MongoStore) Upsert(ctx context.Context, r PlanRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	doc := planDocument{
		IdentityKey:      r.Identity.Key(),
		PlanType:         string(r.PlanType),
		IsPro:            r.IsPro,
		StripeCustomerID: r.StripeCustomerID,
		UpgradedAt:       r.UpgradedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	_, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: doc.IdentityKey}}, doc, options.Replace().SetUpsert(true))
	return mongox.Classify(err)
}

func (s *MongoStore) one(ctx context.Context, filter bson.D) (PlanRecord, error) {
	var doc planDocument
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return PlanRecord{}, errors.Join(apperr.ErrNotFound, ErrPlanNotFound)
		}
		return PlanRecord{}, mongox.Classify(err)
	}

	id, err := identity.ParseKey(doc.IdentityKey)
	if err != nil {
		return PlanRecord{}, errors.Join(apperr.ErrValidation, err)
	}
	r := PlanRecord{
		Identity:         id,
		PlanType:         PlanType(doc.PlanType),
		IsPro:            doc.IsPro,
		StripeCustomerID: doc.StripeCustomerID,
		UpdatedAt:        doc.UpdatedAt.UTC(),
	}
	if doc.UpgradedAt != nil {
		t := doc.UpgradedAt.UTC()
		r.UpgradedAt = &t
	}
	return r, nil
}
