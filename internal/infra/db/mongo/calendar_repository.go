package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "rentspace/internal/domain/availability"
	domainlistings "rentspace/internal/domain/listings"
)

// CalendarRepository keeps one document per listing holding its windows and day flags.
type CalendarRepository struct {
	col *mongo.Collection
}

func NewCalendarRepository(db *mongo.Database) *CalendarRepository {
	return &CalendarRepository{col: db.Collection("agg_calendar")}
}

func (r *CalendarRepository) Calendar(ctx context.Context, id domainlistings.ListingID, model domainlistings.AvailabilityModel) (*domainavailability.Calendar, error) {
	var doc calendarDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return domainavailability.NewCalendar(id, model), nil
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *CalendarRepository) Save(ctx context.Context, c *domainavailability.Calendar) error {
	doc := newCalendarDocument(c)
	filter := bson.M{"_id": doc.ID, "version": c.Version}
	doc.Version = c.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		return translateWriteError(err)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	c.Version = doc.Version
	return nil
}

type calendarDocument struct {
	ID      string                 `bson:"_id"`
	Model   string                 `bson:"model"`
	Windows []windowDocument       `bson:"windows"`
	Days    map[string]dayDocument `bson:"days"`
	Version int64                  `bson:"version"`
}

type windowDocument struct {
	Range     rangeDocument `bson:"range"`
	CreatedAt int64         `bson:"created_at"`
}

type dayDocument struct {
	Date      int64 `bson:"date"`
	Available bool  `bson:"available"`
	UpdatedAt int64 `bson:"updated_at"`
}

func newCalendarDocument(c *domainavailability.Calendar) calendarDocument {
	doc := calendarDocument{
		ID:      string(c.ListingID),
		Model:   string(c.Model),
		Windows: make([]windowDocument, 0, len(c.Windows)),
		Days:    make(map[string]dayDocument, len(c.Days)),
		Version: c.Version,
	}
	for _, w := range c.Windows {
		doc.Windows = append(doc.Windows, windowDocument{Range: newRangeDocument(w.Range), CreatedAt: timeToTimestamp(w.CreatedAt)})
	}
	for key, d := range c.Days {
		doc.Days[key] = dayDocument{Date: timeToTimestamp(d.Date), Available: d.Available, UpdatedAt: timeToTimestamp(d.UpdatedAt)}
	}
	return doc
}

func (d calendarDocument) toAggregate() *domainavailability.Calendar {
	c := domainavailability.NewCalendar(domainlistings.ListingID(d.ID), domainlistings.AvailabilityModel(d.Model))
	c.Version = d.Version
	for _, w := range d.Windows {
		c.Windows = append(c.Windows, domainavailability.Window{Range: w.Range.toRange(), CreatedAt: timestampToTime(w.CreatedAt)})
	}
	for key, day := range d.Days {
		c.Days[key] = domainavailability.DayFlag{Date: timestampToTime(day.Date), Available: day.Available, UpdatedAt: timestampToTime(day.UpdatedAt)}
	}
	return c
}

var _ domainavailability.Repository = (*CalendarRepository)(nil)
