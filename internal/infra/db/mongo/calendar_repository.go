package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"staysync/internal/app/uow"
	domainavailability "staysync/internal/domain/availability"
	domainproperty "staysync/internal/domain/property"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/money"
)

// CalendarRepository stores one document per property with the intervals
// embedded, so the version filter on Save covers every interval at once.
type CalendarRepository struct {
	col *mongo.Collection
}

func NewCalendarRepository(ctx context.Context, db *mongo.Database) (*CalendarRepository, error) {
	col := db.Collection("agg_calendar")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "intervals.id", Value: 1}}}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, err
	}
	return &CalendarRepository{col: col}, nil
}

func (r *CalendarRepository) Calendar(ctx context.Context, id domainproperty.PropertyID) (*domainavailability.Calendar, error) {
	var doc calendarDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domainavailability.NewCalendar(id), nil
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *CalendarRepository) CalendarByInterval(ctx context.Context, id domainavailability.IntervalID) (*domainavailability.Calendar, error) {
	var doc calendarDocument
	if err := r.col.FindOne(ctx, bson.M{"intervals.id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainavailability.ErrIntervalNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *CalendarRepository) Save(ctx context.Context, cal *domainavailability.Calendar) error {
	doc := newCalendarDocument(cal)
	doc.Version = cal.Version + 1
	filter := bson.M{"_id": doc.ID, "version": cal.Version}
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) || isWriteConflict(err) {
			return uow.ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return uow.ErrConcurrentUpdate
	}
	cal.Version = doc.Version
	return nil
}

// isWriteConflict matches the transient error two overlapping
// transactions get when they touch the same document.
func isWriteConflict(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.HasErrorLabel("TransientTransactionError") || cmdErr.Code == 112
	}
	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		return writeErr.HasErrorLabel("TransientTransactionError")
	}
	return false
}

type calendarDocument struct {
	ID        string             `bson:"_id"`
	Intervals []intervalDocument `bson:"intervals"`
	NextSeq   int64              `bson:"next_seq"`
	Version   int64              `bson:"version"`
}

type intervalDocument struct {
	ID           string      `bson:"id"`
	Start        int64       `bson:"start"`
	End          int64       `bson:"end"`
	Status       string      `bson:"status"`
	Source       string      `bson:"source"`
	GuestID      string      `bson:"guest_id,omitempty"`
	Guests       int         `bson:"guests,omitempty"`
	Total        money.Money `bson:"total"`
	PaymentRef   string      `bson:"payment_ref,omitempty"`
	CancelReason string      `bson:"cancel_reason,omitempty"`
	Seq          int64       `bson:"seq"`
	CreatedAt    int64       `bson:"created_at"`
	UpdatedAt    int64       `bson:"updated_at"`
}

func newCalendarDocument(cal *domainavailability.Calendar) calendarDocument {
	doc := calendarDocument{
		ID:        string(cal.PropertyID),
		Intervals: make([]intervalDocument, 0, len(cal.Intervals)),
		NextSeq:   cal.NextSeq,
		Version:   cal.Version,
	}
	for _, iv := range cal.Intervals {
		doc.Intervals = append(doc.Intervals, intervalDocument{
			ID:           string(iv.ID),
			Start:        iv.Range.Start.UnixMilli(),
			End:          iv.Range.End.UnixMilli(),
			Status:       string(iv.Status),
			Source:       string(iv.Source),
			GuestID:      iv.GuestID,
			Guests:       iv.Guests,
			Total:        iv.TotalPrice,
			PaymentRef:   iv.PaymentRef,
			CancelReason: iv.CancelReason,
			Seq:          iv.Seq,
			CreatedAt:    iv.CreatedAt.UnixMilli(),
			UpdatedAt:    iv.UpdatedAt.UnixMilli(),
		})
	}
	return doc
}

func (d calendarDocument) toAggregate() *domainavailability.Calendar {
	cal := domainavailability.NewCalendar(domainproperty.PropertyID(d.ID))
	cal.NextSeq = d.NextSeq
	cal.Version = d.Version
	cal.Intervals = make([]domainavailability.Interval, 0, len(d.Intervals))
	for _, iv := range d.Intervals {
		cal.Intervals = append(cal.Intervals, domainavailability.Interval{
			ID:           domainavailability.IntervalID(iv.ID),
			PropertyID:   cal.PropertyID,
			Range:        daterange.DateRange{Start: timestampToTime(iv.Start), End: timestampToTime(iv.End)},
			Status:       domainavailability.Status(iv.Status),
			Source:       domainavailability.Source(iv.Source),
			GuestID:      iv.GuestID,
			Guests:       iv.Guests,
			TotalPrice:   iv.Total,
			PaymentRef:   iv.PaymentRef,
			CancelReason: iv.CancelReason,
			Seq:          iv.Seq,
			CreatedAt:    timestampToTime(iv.CreatedAt),
			UpdatedAt:    timestampToTime(iv.UpdatedAt),
		})
	}
	return cal
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var _ domainavailability.Repository = (*CalendarRepository)(nil)
