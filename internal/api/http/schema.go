package http

import (
	"time"

	"github.com/dmarchuk/shorturls/internal/models"
	"github.com/dmarchuk/shorturls/internal/service"
)

// createShortURLRequest represents the request payload for shortening a URL.
// Validity is in minutes; validity and shortcode are optional.
type createShortURLRequest struct {
	URL       string `json:"url" validate:"required,http_url"`
	Validity  int    `json:"validity" validate:"omitempty,gt=0"`
	Shortcode string `json:"shortcode" validate:"omitempty,shortcode"`
}

// createShortURLResponse represents the response payload for a successful
// shortening. Expiry is an ISO-8601 UTC timestamp with a Z suffix.
type createShortURLResponse struct {
	ShortLink string `json:"shortLink"`
	Expiry    string `json:"expiry"`
}

func toCreateShortURLResponse(created *service.CreatedURL) createShortURLResponse {
	return createShortURLResponse{
		ShortLink: created.ShortLink,
		Expiry:    created.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// clickData represents one recorded visit in the statistics report.
type clickData struct {
	Timestamp time.Time `json:"timestamp"`
	Referrer  string    `json:"referrer,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	Location  string    `json:"location,omitempty"`
}

// urlStatsResponse represents the full statistics report for a shortcode.
// TotalClicks is the mapping's counter, not a recount of ClickData.
type urlStatsResponse struct {
	Shortcode   string      `json:"shortcode"`
	OriginalURL string      `json:"original_url"`
	CreatedAt   time.Time   `json:"created_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
	TotalClicks int64       `json:"total_clicks"`
	ClickData   []clickData `json:"click_data"`
}

func toURLStatsResponse(stats *models.URLStats) urlStatsResponse {
	clicks := make([]clickData, 0, len(stats.Clicks))
	for _, click := range stats.Clicks {
		clicks = append(clicks, clickData{
			Timestamp: click.ClickedAt,
			Referrer:  click.Referrer,
			UserAgent: click.UserAgent,
			IPAddress: click.IPAddress,
			Location:  click.Location,
		})
	}

	return urlStatsResponse{
		Shortcode:   stats.Mapping.Shortcode,
		OriginalURL: stats.Mapping.OriginalURL,
		CreatedAt:   stats.Mapping.CreatedAt,
		ExpiresAt:   stats.Mapping.ExpiresAt,
		TotalClicks: stats.Mapping.ClickCount,
		ClickData:   clicks,
	}
}
