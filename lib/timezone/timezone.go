package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/Los_Angeles")
	if err != nil {
		panic(err)
	}
}

// the district's schools all run on pacific time, but the servers
// don't necessarily; date math on Year()/Month()/Day() must happen
// in the school's timezone or due dates drift by a day
func Now() time.Time {
	return time.Now().In(Location)
}
