package model

// SessionPage is one page of a session listing.
type SessionPage struct {
	Data       []*Session `json:"data"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"total_pages"`
}

// NewSessionPage fills in the page count for total results split by limit.
func NewSessionPage(data []*Session, total, page, limit int) *SessionPage {
	if data == nil {
		data = []*Session{}
	}
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return &SessionPage{Data: data, Total: total, Page: page, Limit: limit, TotalPages: pages}
}
