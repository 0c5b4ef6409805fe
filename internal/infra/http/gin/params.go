package ginserver

import (
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"staysync/internal/domain/shared/daterange"
)

// optionalDate reads a date query parameter; an absent one is the zero time.
func optionalDate(c *gin.Context, name string) (time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return time.Time{}, nil
	}
	return daterange.ParseBound(raw)
}

// parseDates reads request bounds in YYYY-MM-DD or RFC 3339 form.
func parseDates(start, end string) (time.Time, time.Time, error) {
	s, err := daterange.ParseBound(strings.TrimSpace(start))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	e, err := daterange.ParseBound(strings.TrimSpace(end))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return s, e, nil
}

func statusesFromQuery(c *gin.Context) []string {
	var out []string
	for _, raw := range c.QueryArray("status") {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
