package timeutil

import "time"

// NowUnix returns the current time in unix milliseconds, the unit of every ctime/mtime column.
func NowUnix() int64 {
	return time.Now().UnixMilli()
}
