package clock

import "time"

// NowFunc returns the current time. Tests replace it to freeze audit timestamps.
var NowFunc = func() time.Time { return time.Now().UTC() }

// Now returns NowFunc().
func Now() time.Time { return NowFunc() }

// Since returns the elapsed time from t measured with NowFunc.
func Since(t time.Time) time.Duration { return Now().Sub(t) }
