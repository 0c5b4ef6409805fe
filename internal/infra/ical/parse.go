package ical

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"staysync/internal/domain/shared/daterange"
)

var (
	ErrMalformedFeed       = errors.New("ical: malformed calendar feed")
	ErrUpstreamUnavailable = errors.New("ical: upstream calendar unavailable")

	errMissingBound = errors.New("ical: event boundary missing")
)

const (
	layoutDate     = "20060102"
	layoutDateTime = "20060102T150405"
)

// ParseResult holds the ranges of usable events and the number of events
// that were dropped.
type ParseResult struct {
	Ranges  []daterange.DateRange
	Skipped int
}

// Parser reads feeds leniently: a broken event is skipped, only a document
// that is not a calendar at all is an error.
type Parser struct {
	// Location applies to floating date-times without TZID. Nil means UTC.
	Location *time.Location
}

func (p Parser) Parse(r io.Reader) (ParseResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ParseResult{}, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}
	doc := normalize(data)
	if !strings.Contains(strings.ToUpper(doc), "BEGIN:VCALENDAR") {
		return ParseResult{}, fmt.Errorf("%w: missing BEGIN:VCALENDAR", ErrMalformedFeed)
	}
	cal, err := ics.ParseCalendar(strings.NewReader(doc))
	if err != nil {
		// A single unreadable content line fails the whole document.
		return p.parseEach(doc), nil
	}
	var result ParseResult
	for _, ev := range cal.Events() {
		p.collect(&result, ev)
	}
	return result, nil
}

// parseEach reads every VEVENT block as a calendar of its own.
func (p Parser) parseEach(doc string) ParseResult {
	var (
		result ParseResult
		block  []string
	)
	for _, line := range strings.Split(doc, "\r\n") {
		marker := strings.ToUpper(strings.TrimSpace(line))
		if marker == "BEGIN:VEVENT" {
			if block != nil {
				result.Skipped++
			}
			block = []string{line}
			continue
		}
		if block == nil {
			continue
		}
		block = append(block, line)
		if marker == "END:VEVENT" {
			p.collectBlock(&result, block)
			block = nil
		}
	}
	if block != nil {
		result.Skipped++
	}
	return result
}

func (p Parser) collectBlock(result *ParseResult, block []string) {
	var b bytes.Buffer
	b.WriteString("BEGIN:VCALENDAR\r\n")
	for _, line := range block {
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	b.WriteString("END:VCALENDAR\r\n")
	cal, err := ics.ParseCalendar(&b)
	if err != nil {
		result.Skipped++
		return
	}
	events := cal.Events()
	if len(events) != 1 {
		result.Skipped++
		return
	}
	p.collect(result, events[0])
}

func (p Parser) collect(result *ParseResult, ev *ics.VEvent) {
	r, err := p.eventRange(ev)
	if err != nil {
		result.Skipped++
		return
	}
	result.Ranges = append(result.Ranges, r)
}

func (p Parser) eventRange(ev *ics.VEvent) (daterange.DateRange, error) {
	if status := ev.GetProperty(ics.ComponentPropertyStatus); status != nil &&
		strings.EqualFold(strings.TrimSpace(status.Value), string(ics.ObjectStatusCancelled)) {
		return daterange.DateRange{}, errors.New("ical: event cancelled")
	}
	start, err := p.propertyTime(ev.GetProperty(ics.ComponentPropertyDtStart))
	if err != nil {
		return daterange.DateRange{}, err
	}
	end, err := p.propertyTime(ev.GetProperty(ics.ComponentPropertyDtEnd))
	if err != nil {
		return daterange.DateRange{}, err
	}
	return daterange.New(start, end)
}

// propertyTime reads DATE (midnight UTC), UTC DATE-TIME and local DATE-TIME
// values; local ones use TZID when it loads, else the parser location.
func (p Parser) propertyTime(prop *ics.IANAProperty) (time.Time, error) {
	if prop == nil {
		return time.Time{}, errMissingBound
	}
	value := strings.TrimSpace(prop.Value)
	switch {
	case len(value) == len(layoutDate):
		return time.ParseInLocation(layoutDate, value, time.UTC)
	case len(value) == len(layoutDateTime)+1 && strings.HasSuffix(value, "Z"):
		return time.ParseInLocation(layoutDateTime, strings.TrimSuffix(value, "Z"), time.UTC)
	case len(value) == len(layoutDateTime):
		return time.ParseInLocation(layoutDateTime, value, p.locationFor(tzidOf(prop)))
	}
	return time.Time{}, fmt.Errorf("ical: unsupported date value %q", value)
}

func tzidOf(prop *ics.IANAProperty) string {
	for name, values := range prop.ICalParameters {
		if strings.EqualFold(name, string(ics.ParameterTzid)) && len(values) > 0 {
			return strings.Trim(values[0], `"`)
		}
	}
	return ""
}

func (p Parser) locationFor(tzid string) *time.Location {
	if tzid != "" {
		if loc, err := time.LoadLocation(tzid); err == nil {
			return loc
		}
	}
	if p.Location != nil {
		return p.Location
	}
	return time.UTC
}

// normalize strips a BOM, rewrites CR and LF endings as CRLF and drops
// blank lines, which some exporters emit between components.
func normalize(data []byte) string {
	doc := strings.TrimPrefix(string(data), "\ufeff")
	doc = strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(doc)
	var b strings.Builder
	b.Grow(len(doc) + len(doc)/32)
	for _, line := range strings.Split(doc, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	return b.String()
}
