package chrono

import "time"

var shanghai = time.FixedZone("CST", 8*60*60)

// Shanghai returns the [*time.Location] the metering server reports its dates in.
// China has not observed daylight saving since 1991 so a fixed zone is exact.
func Shanghai() *time.Location {
	return shanghai
}

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in the Shanghai timezone.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (StandardTime) Now() time.Time {
	return time.Now().In(shanghai)
}

// FixedTime always reports the same instant, for tests.
type FixedTime time.Time

func (f FixedTime) Now() time.Time {
	return time.Time(f).In(shanghai)
}
