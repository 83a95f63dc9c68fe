package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/example/attendance-tracker/internal/calendar"
)

// RequestClock resolves the caller's civil "today". The optional X-Timezone
// header names the IANA zone the wall clock is read in; without it the
// configured default applies. The resulting day marker is zone-less, matching
// how dates are stored.
type RequestClock struct {
	now             func() time.Time
	defaultLocation *time.Location
}

func NewRequestClock(now func() time.Time, defaultLocation *time.Location) RequestClock {
	if now == nil {
		now = time.Now
	}
	if defaultLocation == nil {
		defaultLocation = time.UTC
	}
	return RequestClock{now: now, defaultLocation: defaultLocation}
}

func (c RequestClock) referenceToday(r *http.Request) (time.Time, error) {
	location := c.defaultLocation
	if name := strings.TrimSpace(r.Header.Get("X-Timezone")); name != "" {
		loc, err := time.LoadLocation(name)
		if err != nil {
			return time.Time{}, errInvalidTimezone
		}
		location = loc
	}
	return calendar.ToStorageDate(c.now().In(location)), nil
}
