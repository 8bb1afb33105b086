package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "rentspace/internal/domain/booking"
	domainlistings "rentspace/internal/domain/listings"
	"rentspace/internal/domain/shared/daterange"
)

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	col := db.Collection("agg_booking")
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "status", Value: 1}, {Key: "range.start", Value: 1}}},
		{Keys: bson.D{{Key: "renter_id", Value: 1}}},
	})
	return &BookingRepository{col: col}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return translateWriteError(err)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) FindOverlapping(ctx context.Context, listingID domainlistings.ListingID, probe daterange.DateRange, excludeID domainbooking.BookingID) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"listing_id":  string(listingID),
		"status":      bson.M{"$in": []string{string(domainbooking.StatusPending), string(domainbooking.StatusConfirmed)}},
		"range.start": bson.M{"$lt": probe.End.UnixMilli()},
		"range.end":   bson.M{"$gt": probe.Start.UnixMilli()},
	}
	if excludeID != "" {
		filter["_id"] = bson.M{"$ne": string(excludeID)}
	}
	return r.find(ctx, filter)
}

func (r *BookingRepository) ListByRenter(ctx context.Context, renterID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"renter_id": renterID})
}

func (r *BookingRepository) ListByListing(ctx context.Context, listingID domainlistings.ListingID) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"listing_id": string(listingID)})
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "range.start", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainbooking.Booking
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

type bookingDocument struct {
	ID            string        `bson:"_id"`
	ListingID     string        `bson:"listing_id"`
	OwnerID       string        `bson:"owner_id"`
	RenterID      string        `bson:"renter_id"`
	Range         rangeDocument `bson:"range"`
	Total         moneyDocument `bson:"total"`
	Status        string        `bson:"status"`
	PaymentStatus string        `bson:"payment_status"`
	PaymentRef    string        `bson:"payment_ref"`
	CreatedAt     int64         `bson:"created_at"`
	UpdatedAt     int64         `bson:"updated_at"`
	Version       int64         `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:            string(b.ID),
		ListingID:     string(b.ListingID),
		OwnerID:       string(b.OwnerID),
		RenterID:      b.RenterID,
		Range:         newRangeDocument(b.Range),
		Total:         newMoneyDocument(b.Total),
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		PaymentRef:    b.PaymentRef,
		CreatedAt:     timeToTimestamp(b.CreatedAt),
		UpdatedAt:     timeToTimestamp(b.UpdatedAt),
		Version:       b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:            domainbooking.BookingID(d.ID),
		ListingID:     domainlistings.ListingID(d.ListingID),
		OwnerID:       domainlistings.OwnerID(d.OwnerID),
		RenterID:      d.RenterID,
		Range:         d.Range.toRange(),
		Total:         d.Total.toMoney(),
		Status:        domainbooking.Status(d.Status),
		PaymentStatus: domainbooking.PaymentStatus(d.PaymentStatus),
		PaymentRef:    d.PaymentRef,
		CreatedAt:     timestampToTime(d.CreatedAt),
		UpdatedAt:     timestampToTime(d.UpdatedAt),
		Version:       d.Version,
	}
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
