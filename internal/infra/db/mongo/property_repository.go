package mongo

import (
	"context"
	"errors"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"staysync/internal/app/uow"
	domainproperty "staysync/internal/domain/property"
	"staysync/internal/domain/shared/money"
)

type PropertyRepository struct {
	col *mongo.Collection
}

func NewPropertyRepository(db *mongo.Database) *PropertyRepository {
	return &PropertyRepository{col: db.Collection("agg_property")}
}

func (r *PropertyRepository) ByID(ctx context.Context, id domainproperty.PropertyID) (*domainproperty.Property, error) {
	var doc propertyDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainproperty.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *PropertyRepository) Save(ctx context.Context, p *domainproperty.Property) error {
	doc := newPropertyDocument(p)
	doc.Version = p.Version + 1
	filter := bson.M{"_id": doc.ID, "version": p.Version}
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
	p.Version = doc.Version
	return nil
}

func (r *PropertyRepository) WithExternalCalendar(ctx context.Context) ([]*domainproperty.Property, error) {
	return r.find(ctx, bson.M{"external_calendar_url": bson.M{"$nin": bson.A{"", nil}}})
}

func (r *PropertyRepository) List(ctx context.Context) ([]*domainproperty.Property, error) {
	return r.find(ctx, bson.M{})
}

func (r *PropertyRepository) find(ctx context.Context, filter bson.M) ([]*domainproperty.Property, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []propertyDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainproperty.Property, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

type propertyDocument struct {
	ID                  string                 `bson:"_id"`
	HostID              string                 `bson:"host_id"`
	Title               string                 `bson:"title"`
	PricePerNight       money.Money            `bson:"price_per_night"`
	GuestPrices         map[string]money.Money `bson:"guest_prices,omitempty"`
	MaxGuests           int                    `bson:"max_guests"`
	ExternalCalendarURL string                 `bson:"external_calendar_url"`
	Version             int64                  `bson:"version"`
	CreatedAt           int64                  `bson:"created_at"`
	UpdatedAt           int64                  `bson:"updated_at"`
}

func newPropertyDocument(p *domainproperty.Property) propertyDocument {
	return propertyDocument{
		ID:                  string(p.ID),
		HostID:              string(p.HostID),
		Title:               p.Title,
		PricePerNight:       p.PricePerNight,
		GuestPrices:         encodeGuestPrices(p.GuestPrices),
		MaxGuests:           p.MaxGuests,
		ExternalCalendarURL: p.ExternalCalendarURL,
		Version:             p.Version,
		CreatedAt:           p.CreatedAt.UnixMilli(),
		UpdatedAt:           p.UpdatedAt.UnixMilli(),
	}
}

func (d propertyDocument) toAggregate() *domainproperty.Property {
	return &domainproperty.Property{
		ID:                  domainproperty.PropertyID(d.ID),
		HostID:              domainproperty.HostID(d.HostID),
		Title:               d.Title,
		PricePerNight:       d.PricePerNight,
		GuestPrices:         decodeGuestPrices(d.GuestPrices),
		MaxGuests:           d.MaxGuests,
		ExternalCalendarURL: d.ExternalCalendarURL,
		Version:             d.Version,
		CreatedAt:           timestampToTime(d.CreatedAt),
		UpdatedAt:           timestampToTime(d.UpdatedAt),
	}
}

// bson map keys must be strings.
func encodeGuestPrices(in map[int]money.Money) map[string]money.Money {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]money.Money, len(in))
	for k, v := range in {
		out[strconv.Itoa(k)] = v
	}
	return out
}

func decodeGuestPrices(in map[string]money.Money) map[int]money.Money {
	if len(in) == 0 {
		return nil
	}
	out := make(map[int]money.Money, len(in))
	for k, v := range in {
		n, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		out[n] = v
	}
	return out
}

var _ domainproperty.Repository = (*PropertyRepository)(nil)
