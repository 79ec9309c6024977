package forecast

import "time"

// isoDate is the YYYY-MM-DD layout used throughout forecast dates.
const isoDate = "2006-01-02"

// IsCurrent reports whether a cached aggregate is still usable: the provider
// emits forecasts beginning at today, so an aggregate whose first date is not
// today is stale and must be treated as a cache miss even when its storage
// TTL has not expired.
func IsCurrent(resp *Response, now time.Time) bool {
	if resp == nil || len(resp.Dates) == 0 {
		return false
	}
	first := resp.Dates[0]
	if len(first) > len(isoDate) {
		first = first[:len(isoDate)]
	}
	return first == now.Format(isoDate)
}
