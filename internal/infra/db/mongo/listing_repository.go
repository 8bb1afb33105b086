package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "rentspace/internal/domain/listings"
)

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	col := db.Collection("agg_listing")
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{Keys: bson.D{{Key: "owner_id", Value: 1}}})
	return &ListingRepository{col: col}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainlistings.ErrListingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// ByIDForUpdate writes lock_seq on the listing inside the caller's
// transaction. Two transactions doing this for the same listing collide with
// a write conflict, so only one reservation per listing can commit at a time.
func (r *ListingRepository) ByIDForUpdate(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc listingDocument
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": string(id)}, bson.M{"$inc": bson.M{"lock_seq": 1}}, opts).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainlistings.ErrListingNotFound
		}
		return nil, translateWriteError(err)
	}
	return doc.toAggregate(), nil
}

func (r *ListingRepository) Save(ctx context.Context, l *domainlistings.Listing) error {
	doc := newListingDocument(l)
	filter := bson.M{"_id": doc.ID, "version": l.Version}
	doc.Version = l.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		return translateWriteError(err)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	l.Version = doc.Version
	return nil
}

func (r *ListingRepository) ListByOwner(ctx context.Context, owner domainlistings.OwnerID) ([]*domainlistings.Listing, error) {
	cur, err := r.col.Find(ctx, bson.M{"owner_id": string(owner)}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainlistings.Listing
	for cur.Next(ctx) {
		var doc listingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

type listingDocument struct {
	ID                string        `bson:"_id"`
	OwnerID           string        `bson:"owner_id"`
	Title             string        `bson:"title"`
	Description       string        `bson:"description"`
	RentalType        string        `bson:"rental_type"`
	Location          string        `bson:"location"`
	UnitPrice         moneyDocument `bson:"unit_price"`
	PricingUnit       string        `bson:"pricing_unit"`
	InstantBook       bool          `bson:"instant_book"`
	AvailabilityModel string        `bson:"availability_model"`
	Rating            float64       `bson:"rating"`
	CreatedAt         int64         `bson:"created_at"`
	UpdatedAt         int64         `bson:"updated_at"`
	Version           int64         `bson:"version"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	return listingDocument{
		ID:                string(l.ID),
		OwnerID:           string(l.Owner),
		Title:             l.Title,
		Description:       l.Description,
		RentalType:        string(l.RentalType),
		Location:          l.Location,
		UnitPrice:         newMoneyDocument(l.UnitPrice),
		PricingUnit:       string(l.PricingUnit),
		InstantBook:       l.InstantBook,
		AvailabilityModel: string(l.AvailabilityModel),
		Rating:            l.Rating,
		CreatedAt:         timeToTimestamp(l.CreatedAt),
		UpdatedAt:         timeToTimestamp(l.UpdatedAt),
		Version:           l.Version,
	}
}

func (d listingDocument) toAggregate() *domainlistings.Listing {
	return &domainlistings.Listing{
		ID:                domainlistings.ListingID(d.ID),
		Owner:             domainlistings.OwnerID(d.OwnerID),
		Title:             d.Title,
		Description:       d.Description,
		RentalType:        domainlistings.RentalType(d.RentalType),
		Location:          d.Location,
		UnitPrice:         d.UnitPrice.toMoney(),
		PricingUnit:       domainlistings.PricingUnit(d.PricingUnit),
		InstantBook:       d.InstantBook,
		AvailabilityModel: domainlistings.AvailabilityModel(d.AvailabilityModel),
		Rating:            d.Rating,
		CreatedAt:         timestampToTime(d.CreatedAt),
		UpdatedAt:         timestampToTime(d.UpdatedAt),
		Version:           d.Version,
	}
}

var _ domainlistings.ListingRepository = (*ListingRepository)(nil)
