package models

// RatingAggregate summarises visible reviews received by a user.
// Count == 0 means the user has no rating at all.
type RatingAggregate struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

func (r RatingAggregate) Rated() bool { return r.Count > 0 }
