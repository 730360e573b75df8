package entities

import "time"

// RedirectEdge records that journey From was merged into journey To.
type RedirectEdge struct {
	From      string
	To        string
	UpdatedAt time.Time
}
