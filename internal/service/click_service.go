package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmarchuk/shorturls/internal/models"
)

const localLocation = "Local"

// ClickRepository defines the interface for working with click records at the business logic layer.
type ClickRepository interface {
	// Create appends one click record.
	Create(ctx context.Context, click *models.Click) error

	// ListByShortcode returns every click for the shortcode in a stable order.
	ListByShortcode(ctx context.Context, shortcode string) ([]models.Click, error)
}

// mappingReader is the slice of the mapping store the statistics report needs.
type mappingReader interface {
	GetByShortcode(ctx context.Context, shortcode string) (*models.URLMapping, error)
}

// ClickService owns recording and retrieval of click events per shortcode.
type ClickService struct {
	clicks ClickRepository
	urls   mappingReader
	logger *slog.Logger
	now    func() time.Time
}

// NewClickService creates a new ClickService over the click store and the
// mapping store the statistics report reads from.
func NewClickService(clicks ClickRepository, urls mappingReader, logger *slog.Logger) *ClickService {
	return &ClickService{
		clicks: clicks,
		urls:   urls,
		logger: logger,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Record appends one click record for the shortcode. Recording is
// best-effort by contract: a persistence failure is logged and discarded,
// never reported to the caller, so a redirect can't be denied by analytics.
func (s *ClickService) Record(ctx context.Context, shortcode string, meta models.ClickMetadata) {
	click := &models.Click{
		Shortcode: shortcode,
		ClickedAt: s.now().UTC(),
		Referrer:  meta.Referrer,
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
		Location:  ExtractLocation(meta.IPAddress),
	}

	if err := s.clicks.Create(ctx, click); err != nil {
		s.logger.Error("failed to record click", slog.String("shortcode", shortcode), slog.Any("err", err))
	}
}

// ListClicks returns every recorded click for the shortcode.
func (s *ClickService) ListClicks(ctx context.Context, shortcode string) ([]models.Click, error) {
	const op = "service.ClickService.ListClicks"

	clicks, err := s.clicks.ListByShortcode(ctx, shortcode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list clicks: %w", op, err)
	}

	return clicks, nil
}

// GetStatistics composes the mapping and its full click history into one
// report. Statistics remain available after the mapping expires.
func (s *ClickService) GetStatistics(ctx context.Context, shortcode string) (*models.URLStats, error) {
	const op = "service.ClickService.GetStatistics"

	mapping, err := s.urls.GetByShortcode(ctx, shortcode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url mapping: %w", op, err)
	}

	clicks, err := s.clicks.ListByShortcode(ctx, shortcode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list clicks: %w", op, err)
	}

	return &models.URLStats{
		Mapping: *mapping,
		Clicks:  clicks,
	}, nil
}

// ExtractLocation derives a coarse placeholder location from an IP address:
// "Location-" plus the first dot-separated segment, or "Local" when the
// address is absent or the loopback. It is not a real geolocation lookup.
func ExtractLocation(ipAddress string) string {
	if ipAddress == "" || ipAddress == "127.0.0.1" {
		return localLocation
	}

	return "Location-" + strings.SplitN(ipAddress, ".", 2)[0]
}
