package repository

import "time"

func toUnix(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func nullUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toUnix(*t)
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
