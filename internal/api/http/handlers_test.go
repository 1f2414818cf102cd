package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/httplog/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/dmarchuk/shorturls/internal/database"
	"github.com/dmarchuk/shorturls/internal/models"
	"github.com/dmarchuk/shorturls/internal/service"
	"github.com/dmarchuk/shorturls/pkg/response"
)

type MockURLService struct {
	mock.Mock
}

func (s *MockURLService) CreateShortURL(ctx context.Context, params service.CreateURLParams) (*service.CreatedURL, error) {
	args := s.Called(ctx, params)
	created, _ := args.Get(0).(*service.CreatedURL)
	return created, args.Error(1)
}

func (s *MockURLService) ResolveShortcode(ctx context.Context, shortcode string, meta models.ClickMetadata) (string, error) {
	args := s.Called(ctx, shortcode, meta)
	return args.String(0), args.Error(1)
}

type MockClickService struct {
	mock.Mock
}

func (s *MockClickService) GetStatistics(ctx context.Context, shortcode string) (*models.URLStats, error) {
	args := s.Called(ctx, shortcode)
	stats, _ := args.Get(0).(*models.URLStats)
	return stats, args.Error(1)
}

type HandlersTestSuite struct {
	suite.Suite
	logger       *httplog.Logger
	urlSvcMock   *MockURLService
	clickSvcMock *MockClickService
	server       *httptest.Server
	e            *httpexpect.Expect
}

func (suite *HandlersTestSuite) SetupSuite() {
	suite.logger = httplog.NewLogger("", httplog.Options{Writer: io.Discard})
}

func (suite *HandlersTestSuite) SetupSubTest() {
	suite.urlSvcMock = new(MockURLService)
	suite.clickSvcMock = new(MockClickService)
	router := NewRouter(suite.logger, suite.urlSvcMock, suite.clickSvcMock)
	suite.server = httptest.NewServer(router)

	// Redirects stay unfollowed so the 302 and its Location header can be
	// asserted directly.
	suite.e = httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  suite.server.URL,
		Reporter: httpexpect.NewAssertReporter(suite.T()),
		Client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	})
}

func (suite *HandlersTestSuite) TearDownSubTest() {
	suite.urlSvcMock.AssertExpectations(suite.T())
	suite.clickSvcMock.AssertExpectations(suite.T())
	suite.server.Close()
}

func (suite *HandlersTestSuite) TestPing() {
	const path = "/ping"

	suite.Run("success", func() {
		suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			Text().IsEqual("pong\n")
	})
}

func (suite *HandlersTestSuite) TestCreateShortURL() {
	const path = "/shorturls"

	expiresAt := time.Date(2025, time.March, 14, 12, 30, 0, 0, time.UTC)

	suite.Run("empty request body", func() {
		suite.e.POST(path).
			Expect().
			Status(http.StatusBadRequest).
			HasContentType("application/json").
			JSON().Object().
			HasValue("error", response.CategoryBadRequest).
			HasValue("message", "Request body is empty. Please provide necessary data.").
			ContainsKey("timestamp")
	})

	suite.Run("invalid request body", func() {
		suite.e.POST(path).
			WithJSON("invalid body").
			Expect().
			Status(http.StatusBadRequest).
			HasContentType("application/json").
			JSON().Object().
			HasValue("error", response.CategoryBadRequest).
			HasValue("message", "Invalid request body.")
	})

	suite.Run("validation error", func() {
		suite.e.POST(path).
			WithJSON(map[string]any{
				"url":      "not a url",
				"validity": -5,
			}).
			Expect().
			Status(http.StatusBadRequest).
			HasContentType("application/json").
			JSON().Object().
			HasValue("error", response.CategoryBadRequest).
			HasValue("message", "Validation failed.").
			ContainsKey("details")
	})

	suite.Run("invalid shortcode charset", func() {
		suite.e.POST(path).
			WithJSON(map[string]string{
				"url":       "https://example.com",
				"shortcode": "bad code!",
			}).
			Expect().
			Status(http.StatusBadRequest).
			HasContentType("application/json").
			JSON().Object().
			HasValue("error", response.CategoryBadRequest).
			ContainsKey("details")
	})

	suite.Run("shortcode conflict", func() {
		suite.urlSvcMock.
			On("CreateShortURL", mock.Anything, service.CreateURLParams{
				OriginalURL: "https://example.com",
				Shortcode:   "taken1",
			}).
			Times(1).
			Return(nil, database.ErrShortcodeExists)

		suite.e.POST(path).
			WithJSON(map[string]string{
				"url":       "https://example.com",
				"shortcode": "taken1",
			}).
			Expect().
			Status(http.StatusConflict).
			HasContentType("application/json").
			JSON().Object().
			HasValue("error", response.CategoryConflict).
			HasValue("message", "Shortcode already exists.")

		suite.urlSvcMock.AssertNumberOfCalls(suite.T(), "CreateShortURL", 1)
	})

	suite.Run("rejected url", func() {
		suite.urlSvcMock.
			On("CreateShortURL", mock.Anything, mock.Anything).
			Times(1).
			Return(nil, fmt.Errorf("service.URLService.CreateShortURL: %w", service.ErrInvalidURL))

		suite.e.POST(path).
			WithJSON(map[string]string{
				"url": "https://example.com",
			}).
			Expect().
			Status(http.StatusBadRequest).
			HasContentType("application/json").
			JSON().Object().
			HasValue("error", response.CategoryBadRequest).
			HasValue("message", "Invalid URL.")
	})

	suite.Run("rejected validity", func() {
		suite.urlSvcMock.
			On("CreateShortURL", mock.Anything, mock.Anything).
			Times(1).
			Return(nil, fmt.Errorf("service.URLService.CreateShortURL: %w", service.ErrInvalidValidity))

		suite.e.POST(path).
			WithJSON(map[string]string{
				"url": "https://example.com",
			}).
			Expect().
			Status(http.StatusBadRequest).
			HasContentType("application/json").
			JSON().Object().
			HasValue("error", response.CategoryBadRequest).
			HasValue("message", "Validity must be a positive integer.")
	})

	suite.Run("server error", func() {
		suite.urlSvcMock.
			On("CreateShortURL", mock.Anything, mock.Anything).
			Times(1).
			Return(nil, errors.New("unknown error"))

		suite.e.POST(path).
			WithJSON(map[string]string{
				"url": "https://example.com",
			}).
			Expect().
			Status(http.StatusInternalServerError).
			HasContentType("application/json").
			JSON().Object().
			HasValue("error", response.CategoryServerError).
			HasValue("message", "An internal server error occurred. Please try again later.")
	})

	suite.Run("success", func() {
		suite.urlSvcMock.
			On("CreateShortURL", mock.Anything, service.CreateURLParams{
				OriginalURL:     "https://example.com",
				ValidityMinutes: 60,
			}).
			Times(1).
			Return(&service.CreatedURL{
				Shortcode: "abc123",
				ShortLink: "http://localhost:8080/abc123",
				ExpiresAt: expiresAt,
			}, nil)

		suite.e.POST(path).
			WithJSON(map[string]any{
				"url":      "https://example.com",
				"validity": 60,
			}).
			Expect().
			Status(http.StatusCreated).
			HasContentType("application/json").
			JSON().Object().
			HasValue("shortLink", "http://localhost:8080/abc123").
			HasValue("expiry", "2025-03-14T12:30:00Z")

		suite.urlSvcMock.AssertNumberOfCalls(suite.T(), "CreateShortURL", 1)
	})
}

func (suite *HandlersTestSuite) TestRedirect() {
	const path = "/%s"

	suite.Run("not found", func() {
		suite.urlSvcMock.
			On("ResolveShortcode", mock.Anything, "abc123", mock.Anything).
			Times(1).
			Return("", database.ErrURLNotFound)

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusNotFound).
			HasContentType("application/json").
			JSON().Object().
			HasValue("error", response.CategoryNotFound).
			HasValue("message", "Shortcode not found.")
	})

	suite.Run("expired", func() {
		suite.urlSvcMock.
			On("ResolveShortcode", mock.Anything, "abc123", mock.Anything).
			Times(1).
			Return("", service.ErrLinkExpired)

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusGone).
			HasContentType("application/json").
			JSON().Object().
			HasValue("error", response.CategoryGone).
			HasValue("message", "Short link has expired.")
	})

	suite.Run("server error", func() {
		suite.urlSvcMock.
			On("ResolveShortcode", mock.Anything, "abc123", mock.Anything).
			Times(1).
			Return("", errors.New("unknown error"))

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusInternalServerError).
			HasContentType("application/json").
			JSON().Object().
			HasValue("error", response.CategoryServerError)
	})

	suite.Run("success", func() {
		suite.urlSvcMock.
			On("ResolveShortcode", mock.Anything, "abc123", mock.Anything).
			Times(1).
			Return("https://example.com/page", nil)

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusFound).
			Header("Location").IsEqual("https://example.com/page")

		suite.urlSvcMock.AssertNumberOfCalls(suite.T(), "ResolveShortcode", 1)
	})

	suite.Run("request metadata is forwarded", func() {
		suite.urlSvcMock.
			On("ResolveShortcode", mock.Anything, "abc123", mock.MatchedBy(func(meta models.ClickMetadata) bool {
				return meta.Referrer == "https://referrer.example.com" &&
					meta.UserAgent == "test-agent" &&
					meta.IPAddress != ""
			})).
			Times(1).
			Return("https://example.com/page", nil)

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			WithHeader("Referer", "https://referrer.example.com").
			WithHeader("User-Agent", "test-agent").
			Expect().
			Status(http.StatusFound)
	})
}

func (suite *HandlersTestSuite) TestGetURLStats() {
	const path = "/shorturls/%s"

	suite.Run("not found", func() {
		suite.clickSvcMock.
			On("GetStatistics", mock.Anything, "abc123").
			Times(1).
			Return(nil, database.ErrURLNotFound)

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusNotFound).
			HasContentType("application/json").
			JSON().Object().
			HasValue("error", response.CategoryNotFound).
			HasValue("message", "Shortcode not found.")
	})

	suite.Run("server error", func() {
		suite.clickSvcMock.
			On("GetStatistics", mock.Anything, "abc123").
			Times(1).
			Return(nil, errors.New("unknown error"))

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusInternalServerError).
			HasContentType("application/json").
			JSON().Object().
			HasValue("error", response.CategoryServerError)
	})

	suite.Run("success", func() {
		createdAt := time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)

		suite.clickSvcMock.
			On("GetStatistics", mock.Anything, "abc123").
			Times(1).
			Return(&models.URLStats{
				Mapping: models.URLMapping{
					Shortcode:   "abc123",
					OriginalURL: "https://example.com/page",
					ClickCount:  2,
					CreatedAt:   createdAt,
					ExpiresAt:   createdAt.Add(30 * time.Minute),
				},
				Clicks: []models.Click{
					{ClickedAt: createdAt.Add(time.Minute), IPAddress: "203.0.113.7", Location: "Location-203"},
					{ClickedAt: createdAt.Add(2 * time.Minute), Location: "Local"},
				},
			}, nil)

		obj := suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusOK).
			HasContentType("application/json").
			JSON().Object()

		obj.HasValue("shortcode", "abc123").
			HasValue("original_url", "https://example.com/page").
			HasValue("total_clicks", int64(2))

		clicks := obj.Value("click_data").Array()
		clicks.Length().IsEqual(2)
		clicks.Value(0).Object().
			HasValue("ip_address", "203.0.113.7").
			HasValue("location", "Location-203")
		clicks.Value(1).Object().
			HasValue("location", "Local").
			NotContainsKey("ip_address")

		suite.clickSvcMock.AssertNumberOfCalls(suite.T(), "GetStatistics", 1)
	})

	suite.Run("statistics survive expiry", func() {
		createdAt := time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)

		suite.clickSvcMock.
			On("GetStatistics", mock.Anything, "abc123").
			Times(1).
			Return(&models.URLStats{
				Mapping: models.URLMapping{
					Shortcode:   "abc123",
					OriginalURL: "https://example.com/page",
					ClickCount:  1,
					CreatedAt:   createdAt,
					ExpiresAt:   createdAt.Add(time.Minute),
				},
				Clicks: []models.Click{
					{ClickedAt: createdAt, Location: "Local"},
				},
			}, nil)

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			HasValue("total_clicks", int64(1))
	})
}

func TestAPI(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}
