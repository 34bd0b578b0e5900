// Package models holds the MongoDB documents and their JSON renderings.
package models

import "time"

// isoLayout renders naive UTC timestamps the way the web client has always
// received them.
const isoLayout = "2006-01-02T15:04:05.000000"

// ISOTime formats t in UTC; a zero time renders as now.
func ISOTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(isoLayout)
}
