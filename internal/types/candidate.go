package types

// SourceType tags where a candidate item was discovered.
type SourceType string

const (
	SourceWeb    SourceType = "web"
	SourceReddit SourceType = "reddit"
)

// CandidateItem is one discovered article or discussion. The pipeline only
// reads it; every derived record is a new value.
type CandidateItem struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Domain      string     `json:"domain"`
	PublishedAt string     `json:"publishedAt"`
	SourceType  SourceType `json:"sourceType"`
	Upvotes     *int       `json:"upvotes,omitempty"`
	Comments    *int       `json:"comments,omitempty"`
	Selected    bool       `json:"selected"`
}

// HasEngagement reports whether Reddit engagement metrics are present.
func (c CandidateItem) HasEngagement() bool {
	return c.SourceType == SourceReddit && (c.Upvotes != nil || c.Comments != nil)
}
