package dto

import (
	"time"

	"github.com/Massy-Haddad/Lucid/internal/domain"
)

// QuoteResponse is the API representation of a feed quote.
type QuoteResponse struct {
	ID              string   `json:"id"`
	Text            string   `json:"text"`
	Author          string   `json:"author,omitempty"`
	Source          string   `json:"source,omitempty"`
	Category        string   `json:"category"`
	Tags            []string `json:"tags"`
	BackgroundImage string   `json:"backgroundImage,omitempty"`
}

// SavedQuoteResponse is a QuoteResponse plus persistence metadata.
type SavedQuoteResponse struct {
	QuoteResponse
	UserID    string    `json:"userId"`
	SavedAt   time.Time `json:"savedAt"`
	SaveState string    `json:"saveState"`
}

// FeedResponse is the payload for a single category feed.
type FeedResponse struct {
	Category      string          `json:"category"`
	Quotes        []QuoteResponse `json:"quotes"`
	Cursor        int             `json:"cursor"`
	IsLoading     bool            `json:"isLoading"`
	IsLoadingMore bool            `json:"isLoadingMore"`
}

// SaveQuoteRequest is the body for saving a quote.
type SaveQuoteRequest struct {
	ID              string   `json:"id"              validate:"required,notempty"`
	Text            string   `json:"text"            validate:"required,notempty"`
	Author          string   `json:"author"`
	Source          string   `json:"source"`
	Category        string   `json:"category"        validate:"required,oneof=movie anime philosophy"`
	Tags            []string `json:"tags"`
	BackgroundImage string   `json:"backgroundImage"`
}

// ToDomain converts the request body into a domain quote.
func (r *SaveQuoteRequest) ToDomain() domain.Quote {
	return domain.Quote{
		ID:              r.ID,
		Text:            r.Text,
		Author:          r.Author,
		Source:          r.Source,
		Category:        domain.Category(r.Category),
		Tags:            r.Tags,
		BackgroundImage: r.BackgroundImage,
	}
}

// SetCursorRequest is the body for moving the feed cursor.
type SetCursorRequest struct {
	Cursor int `json:"cursor" validate:"gte=0"`
}

// FeedQuery holds query parameters for feed fetches.
type FeedQuery struct {
	Force bool `form:"force"`
}

// AnimeSearchQuery holds query parameters for anime quote search.
// At least one of Show or Character must be set; the handler enforces it.
type AnimeSearchQuery struct {
	Show      string `form:"show"`
	Character string `form:"character"`
	Count     int    `form:"count" validate:"omitempty,gte=1,lte=50"`
}

// NewQuoteResponse maps a domain quote to its API representation.
func NewQuoteResponse(q *domain.Quote) QuoteResponse {
	tags := q.Tags
	if tags == nil {
		tags = []string{}
	}

	return QuoteResponse{
		ID:              q.ID,
		Text:            q.Text,
		Author:          q.Author,
		Source:          q.Source,
		Category:        string(q.Category),
		Tags:            tags,
		BackgroundImage: q.BackgroundImage,
	}
}

// NewQuoteResponses maps a slice of domain quotes.
func NewQuoteResponses(quotes []domain.Quote) []QuoteResponse {
	out := make([]QuoteResponse, 0, len(quotes))
	for i := range quotes {
		out = append(out, NewQuoteResponse(&quotes[i]))
	}

	return out
}

// NewSavedQuoteResponse maps a domain saved quote to its API representation.
func NewSavedQuoteResponse(s *domain.SavedQuote) SavedQuoteResponse {
	return SavedQuoteResponse{
		QuoteResponse: NewQuoteResponse(&s.Quote),
		UserID:        s.UserID,
		SavedAt:       s.SavedAt,
		SaveState:     s.SaveState.String(),
	}
}

// NewSavedQuoteResponses maps a slice of domain saved quotes.
func NewSavedQuoteResponses(saved []domain.SavedQuote) []SavedQuoteResponse {
	out := make([]SavedQuoteResponse, 0, len(saved))
	for i := range saved {
		out = append(out, NewSavedQuoteResponse(&saved[i]))
	}

	return out
}
