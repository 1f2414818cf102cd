package http

import (
	"context"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"

	"github.com/dmarchuk/shorturls/internal/models"
	"github.com/dmarchuk/shorturls/internal/service"
)

// URLService defines the interface for the shortcode lifecycle logic the API depends on.
type URLService interface {
	// CreateShortURL allocates or validates a shortcode and persists the
	// mapping. It returns the shortcode, the full short link and the expiry.
	CreateShortURL(ctx context.Context, params service.CreateURLParams) (*service.CreatedURL, error)

	// ResolveShortcode returns the original URL for a shortcode, counting
	// the click and recording the visit metadata along the way.
	ResolveShortcode(ctx context.Context, shortcode string, meta models.ClickMetadata) (string, error)
}

// ClickService defines the interface for the click analytics logic the API depends on.
type ClickService interface {
	// GetStatistics returns the mapping and its full click history.
	GetStatistics(ctx context.Context, shortcode string) (*models.URLStats, error)
}

var shortcodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)

// getValidate initializes a validator for incoming request payloads.
// Field names in validation errors follow the JSON tags, and the custom
// "shortcode" tag enforces the shortcode charset and length.
func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := validate.RegisterValidation("shortcode", func(fl validator.FieldLevel) bool {
		return shortcodePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}

	return validate
}

// NewRouter initializes and returns a new HTTP router with all routes and middleware configured.
func NewRouter(logger *httplog.Logger, urlSvc URLService, clickSvc ClickService) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	validate := getValidate()

	r.Get("/ping", handlePing)

	r.Route("/shorturls", func(r chi.Router) {
		r.Post("/", handleCreateShortURL(urlSvc, validate))
		r.Get("/{shortcode}", handleGetURLStats(clickSvc))
	})

	r.Get("/{shortcode}", handleRedirect(urlSvc))

	return r
}
