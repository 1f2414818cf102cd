package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/dmarchuk/shorturls/internal/database"
	"github.com/dmarchuk/shorturls/internal/models"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	defaultAlphabet        = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	defaultShortcodeLength = 6
	defaultValidity        = 30 * time.Minute

	// maxRandomAttempts bounds the insert-and-retry loop for generated
	// shortcodes before switching to the time-derived fallback.
	maxRandomAttempts    = 3
	fallbackPrefixLength = 4

	mappingCacheTTL = 24 * time.Hour
)

var (
	shortcodeRegexp = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)
	// The TLD label follows the same 63-char DNS bound as any other label.
	domainRegexp = regexp.MustCompile(`(?i)^(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,63}\.?$`)
)

// URLRepository defines the interface for working with URL mappings at the business logic layer.
type URLRepository interface {
	// Create inserts a new mapping. It must rely on a storage-level unique
	// constraint for the shortcode and return database.ErrShortcodeExists
	// when another mapping already holds it.
	Create(ctx context.Context, shortcode, originalURL string, createdAt, expiresAt time.Time) (*models.URLMapping, error)

	// GetByShortcode retrieves a mapping by its shortcode.
	// Returns database.ErrURLNotFound if no mapping exists.
	GetByShortcode(ctx context.Context, shortcode string) (*models.URLMapping, error)

	// IncrementClickCount durably increments the mapping's click counter.
	// Concurrent calls must not lose increments.
	IncrementClickCount(ctx context.Context, shortcode string) error
}

// ClickRecorder records one visit to a shortened URL. Recording is
// best-effort: implementations contain their own failures and never
// report them to the caller.
type ClickRecorder interface {
	Record(ctx context.Context, shortcode string, meta models.ClickMetadata)
}

// MappingCache is an optional read-through cache for the redirect path.
// A miss is reported as (nil, nil).
type MappingCache interface {
	GetMapping(ctx context.Context, shortcode string) (*models.URLMapping, error)
	SetMapping(ctx context.Context, mapping *models.URLMapping, ttl time.Duration) error
}

// Settings configures short link construction and shortcode generation.
type Settings struct {
	// BaseURL is the externally visible prefix for short links.
	BaseURL string
	// DefaultValidity is applied when a creation request carries no validity.
	DefaultValidity time.Duration
	// ShortcodeLength is the length of generated shortcodes.
	ShortcodeLength int
	// ShortcodeAlphabet is the character set generated shortcodes draw from.
	ShortcodeAlphabet string
}

// CreateURLParams describes one shortening request. Shortcode and
// ValidityMinutes are optional; the zero values mean "generate one" and
// "use the default validity".
type CreateURLParams struct {
	OriginalURL     string
	Shortcode       string
	ValidityMinutes int
}

// CreatedURL is the outcome of a successful shortening request.
type CreatedURL struct {
	Shortcode string
	ShortLink string
	ExpiresAt time.Time
}

// URLService owns the shortcode lifecycle: creation, uniqueness, lookup and
// expiry of shortcode-to-URL mappings.
type URLService struct {
	repo     URLRepository
	recorder ClickRecorder
	cache    MappingCache
	logger   *slog.Logger
	settings Settings
	now      func() time.Time
}

type Option func(*URLService)

// WithCache attaches a mapping cache to the redirect path.
// Cache failures are logged and never affect the outcome.
func WithCache(cache MappingCache) Option {
	return func(s *URLService) {
		s.cache = cache
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *URLService) {
		s.now = now
	}
}

// NewURLService creates a new URLService. Zero-valued settings fall back to
// the defaults: 30 minute validity, 6-character codes over [a-zA-Z0-9].
func NewURLService(repo URLRepository, recorder ClickRecorder, logger *slog.Logger, settings Settings, opts ...Option) *URLService {
	if settings.DefaultValidity <= 0 {
		settings.DefaultValidity = defaultValidity
	}
	if settings.ShortcodeLength <= 0 {
		settings.ShortcodeLength = defaultShortcodeLength
	}
	if settings.ShortcodeAlphabet == "" {
		settings.ShortcodeAlphabet = defaultAlphabet
	}

	s := &URLService{
		repo:     repo,
		recorder: recorder,
		logger:   logger,
		settings: settings,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateShortURL validates the request, allocates or validates a shortcode
// and persists the mapping with its expiry.
func (s *URLService) CreateShortURL(ctx context.Context, params CreateURLParams) (*CreatedURL, error) {
	const op = "service.URLService.CreateShortURL"

	if err := validateURL(params.OriginalURL); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if params.Shortcode != "" && !shortcodeRegexp.MatchString(params.Shortcode) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidShortcode)
	}
	if params.ValidityMinutes < 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidValidity)
	}

	validity := s.settings.DefaultValidity
	if params.ValidityMinutes > 0 {
		validity = time.Duration(params.ValidityMinutes) * time.Minute
	}

	createdAt := s.now().UTC()
	expiresAt := createdAt.Add(validity)

	var (
		mapping *models.URLMapping
		err     error
	)

	if params.Shortcode != "" {
		mapping, err = s.repo.Create(ctx, params.Shortcode, params.OriginalURL, createdAt, expiresAt)
		if err != nil {
			if errors.Is(err, database.ErrShortcodeExists) {
				return nil, fmt.Errorf("%s: %w", op, database.ErrShortcodeExists)
			}

			return nil, fmt.Errorf("%s: failed to create url mapping: %w", op, err)
		}
	} else {
		mapping, err = s.createWithGeneratedShortcode(ctx, params.OriginalURL, createdAt, expiresAt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	s.cacheMapping(ctx, mapping)

	return &CreatedURL{
		Shortcode: mapping.Shortcode,
		ShortLink: strings.TrimSuffix(s.settings.BaseURL, "/") + "/" + mapping.Shortcode,
		ExpiresAt: mapping.ExpiresAt,
	}, nil
}

// createWithGeneratedShortcode draws random candidates and lets the storage
// unique constraint arbitrate collisions: insert, catch the conflict, retry.
// After maxRandomAttempts collisions it falls back to a shorter random prefix
// plus the last six digits of the current unix-millis timestamp, which is
// inserted once and treated as collision-free.
func (s *URLService) createWithGeneratedShortcode(ctx context.Context, originalURL string, createdAt, expiresAt time.Time) (*models.URLMapping, error) {
	for i := 0; i < maxRandomAttempts; i++ {
		shortcode, err := gonanoid.Generate(s.settings.ShortcodeAlphabet, s.settings.ShortcodeLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate shortcode: %w", err)
		}

		mapping, err := s.repo.Create(ctx, shortcode, originalURL, createdAt, expiresAt)
		if err != nil {
			if errors.Is(err, database.ErrShortcodeExists) {
				continue
			}

			return nil, fmt.Errorf("failed to create url mapping: %w", err)
		}

		return mapping, nil
	}

	prefix, err := gonanoid.Generate(s.settings.ShortcodeAlphabet, fallbackPrefixLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate shortcode: %w", err)
	}
	shortcode := fmt.Sprintf("%s%06d", prefix, s.now().UnixMilli()%1_000_000)

	mapping, err := s.repo.Create(ctx, shortcode, originalURL, createdAt, expiresAt)
	if err != nil {
		if errors.Is(err, database.ErrShortcodeExists) {
			return nil, ErrGenerationExhausted
		}

		return nil, fmt.Errorf("failed to create url mapping: %w", err)
	}

	return mapping, nil
}

// ResolveShortcode returns the original URL for the shortcode, increments the
// click counter and records the visit. Click recording is a dependent,
// best-effort side effect: its failure never denies the redirect.
func (s *URLService) ResolveShortcode(ctx context.Context, shortcode string, meta models.ClickMetadata) (string, error) {
	const op = "service.URLService.ResolveShortcode"

	mapping, err := s.lookupMapping(ctx, shortcode)
	if err != nil {
		return "", fmt.Errorf("%s: failed to resolve shortcode: %w", op, err)
	}

	if s.now().UTC().After(mapping.ExpiresAt) {
		return "", fmt.Errorf("%s: %w", op, ErrLinkExpired)
	}

	if err := s.repo.IncrementClickCount(ctx, shortcode); err != nil {
		return "", fmt.Errorf("%s: failed to count click: %w", op, err)
	}

	s.recorder.Record(ctx, shortcode, meta)

	return mapping.OriginalURL, nil
}

// GetMapping retrieves the mapping for a shortcode without touching its
// click counter. Used by the statistics report.
func (s *URLService) GetMapping(ctx context.Context, shortcode string) (*models.URLMapping, error) {
	const op = "service.URLService.GetMapping"

	mapping, err := s.repo.GetByShortcode(ctx, shortcode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url mapping: %w", op, err)
	}

	return mapping, nil
}

func (s *URLService) lookupMapping(ctx context.Context, shortcode string) (*models.URLMapping, error) {
	if s.cache != nil {
		mapping, err := s.cache.GetMapping(ctx, shortcode)
		if err != nil {
			s.logger.Warn("failed to get mapping from cache", slog.String("shortcode", shortcode), slog.Any("err", err))
		}
		if mapping != nil {
			return mapping, nil
		}
	}

	mapping, err := s.repo.GetByShortcode(ctx, shortcode)
	if err != nil {
		return nil, err
	}

	s.cacheMapping(ctx, mapping)

	return mapping, nil
}

func (s *URLService) cacheMapping(ctx context.Context, mapping *models.URLMapping) {
	if s.cache == nil {
		return
	}

	// Mappings are immutable, so a cached entry only needs to die when the
	// mapping expires.
	ttl := mappingCacheTTL
	if until := mapping.ExpiresAt.Sub(s.now().UTC()); until < ttl {
		ttl = until
	}
	if ttl <= 0 {
		return
	}

	if err := s.cache.SetMapping(ctx, mapping, ttl); err != nil {
		s.logger.Warn("failed to cache mapping", slog.String("shortcode", mapping.Shortcode), slog.Any("err", err))
	}
}

// validateURL accepts absolute HTTP or HTTPS URLs whose host is a domain
// name, "localhost" or an IP address, with an optional port, path and query.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidURL
	}

	host := u.Hostname()
	switch {
	case strings.EqualFold(host, "localhost"):
	case net.ParseIP(host) != nil:
	case domainRegexp.MatchString(host):
	default:
		return ErrInvalidURL
	}

	return nil
}
