package chrono

import (
	"time"
)

// the portal runs on Japan time, which has no daylight saving
var jst = time.FixedZone("JST", 9*60*60)

// JST returns a [*time.Location] for Japan standard time.
func JST() *time.Location {
	return jst
}

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in JST.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (StandardTime) Now() time.Time {
	return time.Now().In(jst)
}

// FixedTime always reports the same instant.
type FixedTime struct {
	At time.Time
}

func (f FixedTime) Now() time.Time {
	return f.At.In(jst)
}

// OrDefault returns api, or StandardTime when api is nil.
func OrDefault(api TimeAPI) TimeAPI {
	if api == nil {
		return StandardTime{}
	}
	return api
}
