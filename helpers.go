// Copyright (c) 2025 Neomantra Corp

package backtest

import "time"

// TimestampToTime converts UNIX epoch nanoseconds to a time.Time in UTC.
func TimestampToTime(tsNs int64) time.Time {
	secs := tsNs / 1e9
	nano := tsNs - secs*1e9
	return time.Unix(secs, nano).UTC()
}

// TimeToTimestamp converts a time.Time to UNIX epoch nanoseconds.
// A zero time returns a 0 value.
func TimeToTimestamp(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
