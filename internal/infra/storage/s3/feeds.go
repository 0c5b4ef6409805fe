package s3

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"net/url"

	"golang.org/x/crypto/blake2b"

	"staysync/internal/app/policies"
)

const (
	feedPrefix          = "calendars/"
	calendarContentType = "text/calendar; charset=utf-8"
)

// FeedKey is the object key a property's export feed is stored under.
func FeedKey(propertyID string) string {
	return feedPrefix + url.PathEscape(propertyID) + ".ics"
}

// FeedPublisher stores rendered calendar feeds in the bucket. The body hash
// travels as object metadata so pollers can compare without downloading.
type FeedPublisher struct {
	Uploader Uploader
}

func (p FeedPublisher) PublishFeed(ctx context.Context, propertyID string, body []byte) error {
	if p.Uploader == nil {
		return errors.New("s3: uploader is not configured")
	}
	sum := blake2b.Sum256(body)
	_, err := p.Uploader.Upload(ctx, Object{
		Key:         FeedKey(propertyID),
		Body:        bytes.NewReader(body),
		Size:        int64(len(body)),
		ContentType: calendarContentType,
		Metadata: map[string]string{
			"property-id":  propertyID,
			"content-hash": hex.EncodeToString(sum[:]),
		},
	})
	return err
}

var _ policies.FeedPublisher = FeedPublisher{}
