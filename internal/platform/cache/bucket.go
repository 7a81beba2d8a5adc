package cache

import (
	"time"

	"travel-time-service/internal/domain"
)

// BucketLayout renders bucketed instants, e.g. 2026-01-14T12:05:00.000Z.
const BucketLayout = "2006-01-02T15:04:05.000Z"

// BucketTimestamp floors an ISO-8601 timestamp to a bucketMinutes-wide interval
// and renders it in UTC with millisecond precision. Zoneless input is read in
// time.Local. Unparseable input, or a non-positive width, is returned unchanged.
func BucketTimestamp(iso string, bucketMinutes int) string {
	if bucketMinutes <= 0 {
		return iso
	}
	t, err := domain.ParseTimestamp(iso, time.Local)
	if err != nil {
		return iso
	}
	return BucketTime(t, bucketMinutes).UTC().Format(BucketLayout)
}

// BucketTime floors t to a bucketMinutes-wide interval on the Unix epoch.
func BucketTime(t time.Time, bucketMinutes int) time.Time {
	bucketMs := int64(bucketMinutes) * int64(time.Minute/time.Millisecond)
	ms := t.UnixMilli()
	floored := ms / bucketMs * bucketMs
	// Integer division truncates toward zero; correct pre-epoch instants.
	if ms < 0 && ms%bucketMs != 0 {
		floored -= bucketMs
	}
	return time.UnixMilli(floored).UTC()
}
