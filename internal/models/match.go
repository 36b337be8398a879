package models

// MatchResult is one scored candidate for a subject user.
type MatchResult struct {
	User                Profile  `json:"user"`
	Score               int      `json:"match_score"`
	Reasons             []string `json:"match_reasons"`
	CommonSkills        []string `json:"common_skills"`
	ComplementarySkills []string `json:"complementary_skills"`
	Rating              *float64 `json:"average_rating,omitempty"`
	ReviewCount         *int     `json:"total_reviews,omitempty"`
}
