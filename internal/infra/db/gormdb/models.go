package gormdb

import (
	domainavailability "staysync/internal/domain/availability"
	domainproperty "staysync/internal/domain/property"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/money"
)

// Timestamps are stored as unix milliseconds to keep both drivers in agreement.

type propertyModel struct {
	ID                  string              `gorm:"primaryKey;size:64"`
	HostID              string              `gorm:"size:64;index;not null"`
	Title               string              `gorm:"not null"`
	PriceAmount         int64               `gorm:"not null"`
	PriceCurrency       string              `gorm:"size:3;not null"`
	GuestPrices         map[int]money.Money `gorm:"serializer:json"`
	MaxGuests           int                 `gorm:"not null"`
	ExternalCalendarURL string
	Version             int64 `gorm:"not null"`
	CreatedAt           int64 `gorm:"autoCreateTime:false"`
	UpdatedAt           int64 `gorm:"autoUpdateTime:false"`
}

func (propertyModel) TableName() string { return "properties" }

type calendarModel struct {
	PropertyID string `gorm:"primaryKey;size:64"`
	NextSeq    int64  `gorm:"not null"`
	Version    int64  `gorm:"not null"`
}

func (calendarModel) TableName() string { return "calendars" }

type intervalModel struct {
	ID            string `gorm:"primaryKey;size:64"`
	PropertyID    string `gorm:"size:64;index:idx_interval_property_seq,priority:1;not null"`
	StartAt       int64  `gorm:"not null"`
	EndAt         int64  `gorm:"not null"`
	Status        string `gorm:"size:16;not null"`
	Source        string `gorm:"size:24;not null"`
	GuestID       string `gorm:"size:64"`
	Guests        int
	TotalAmount   int64
	TotalCurrency string `gorm:"size:3"`
	PaymentRef    string `gorm:"size:128"`
	CancelReason  string
	Seq           int64 `gorm:"index:idx_interval_property_seq,priority:2;not null"`
	CreatedAt     int64 `gorm:"autoCreateTime:false"`
	UpdatedAt     int64 `gorm:"autoUpdateTime:false"`
}

func (intervalModel) TableName() string { return "calendar_intervals" }

type idempotencyModel struct {
	Key         string `gorm:"primaryKey;column:record_key;size:255"`
	Fingerprint string `gorm:"size:64"`
	Payload     []byte
	OccurredAt  int64 `gorm:"not null;index"`
}

func (idempotencyModel) TableName() string { return "idempotency_records" }

type outboxModel struct {
	ID          string `gorm:"primaryKey;size:64"`
	Name        string `gorm:"size:128;not null"`
	Payload     []byte
	OccurredAt  int64
	Aggregate   string            `gorm:"size:64"`
	Headers     map[string]string `gorm:"serializer:json"`
	State       string            `gorm:"size:16;index:idx_outbox_pending,priority:1;not null"`
	Attempts    int
	NextAttempt int64 `gorm:"index:idx_outbox_pending,priority:2"`
	ClaimedBy   string
	LastError   string
	CreatedAt   int64 `gorm:"autoCreateTime:false"`
}

func (outboxModel) TableName() string { return "outbox_events" }

type inboxModel struct {
	EventID    string `gorm:"primaryKey;size:128"`
	Consumer   string `gorm:"primaryKey;size:64"`
	ReceivedAt int64
}

func (inboxModel) TableName() string { return "inbox_events" }

func newPropertyModel(p *domainproperty.Property) propertyModel {
	return propertyModel{
		ID:                  string(p.ID),
		HostID:              string(p.HostID),
		Title:               p.Title,
		PriceAmount:         p.PricePerNight.Amount,
		PriceCurrency:       p.PricePerNight.Currency,
		GuestPrices:         p.GuestPrices,
		MaxGuests:           p.MaxGuests,
		ExternalCalendarURL: p.ExternalCalendarURL,
		Version:             p.Version,
		CreatedAt:           p.CreatedAt.UnixMilli(),
		UpdatedAt:           p.UpdatedAt.UnixMilli(),
	}
}

func (m propertyModel) toAggregate() *domainproperty.Property {
	return &domainproperty.Property{
		ID:                  domainproperty.PropertyID(m.ID),
		HostID:              domainproperty.HostID(m.HostID),
		Title:               m.Title,
		PricePerNight:       money.Money{Amount: m.PriceAmount, Currency: m.PriceCurrency},
		GuestPrices:         m.GuestPrices,
		MaxGuests:           m.MaxGuests,
		ExternalCalendarURL: m.ExternalCalendarURL,
		Version:             m.Version,
		CreatedAt:           millis(m.CreatedAt),
		UpdatedAt:           millis(m.UpdatedAt),
	}
}

func newIntervalModel(iv domainavailability.Interval) intervalModel {
	return intervalModel{
		ID:            string(iv.ID),
		PropertyID:    string(iv.PropertyID),
		StartAt:       iv.Range.Start.UnixMilli(),
		EndAt:         iv.Range.End.UnixMilli(),
		Status:        string(iv.Status),
		Source:        string(iv.Source),
		GuestID:       iv.GuestID,
		Guests:        iv.Guests,
		TotalAmount:   iv.TotalPrice.Amount,
		TotalCurrency: iv.TotalPrice.Currency,
		PaymentRef:    iv.PaymentRef,
		CancelReason:  iv.CancelReason,
		Seq:           iv.Seq,
		CreatedAt:     iv.CreatedAt.UnixMilli(),
		UpdatedAt:     iv.UpdatedAt.UnixMilli(),
	}
}

func (m intervalModel) toInterval() domainavailability.Interval {
	return domainavailability.Interval{
		ID:           domainavailability.IntervalID(m.ID),
		PropertyID:   domainproperty.PropertyID(m.PropertyID),
		Range:        daterange.DateRange{Start: millis(m.StartAt), End: millis(m.EndAt)},
		Status:       domainavailability.Status(m.Status),
		Source:       domainavailability.Source(m.Source),
		GuestID:      m.GuestID,
		Guests:       m.Guests,
		TotalPrice:   money.Money{Amount: m.TotalAmount, Currency: m.TotalCurrency},
		PaymentRef:   m.PaymentRef,
		CancelReason: m.CancelReason,
		Seq:          m.Seq,
		CreatedAt:    millis(m.CreatedAt),
		UpdatedAt:    millis(m.UpdatedAt),
	}
}
