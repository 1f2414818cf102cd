package http

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/dmarchuk/shorturls/internal/database"
	"github.com/dmarchuk/shorturls/internal/models"
	"github.com/dmarchuk/shorturls/internal/service"
	"github.com/dmarchuk/shorturls/pkg/response"
)

// handlePing handles health check requests to ensure the server is running.
func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

// handleCreateShortURL handles POST requests to shorten a URL.
//
// The request must contain a valid absolute HTTP/HTTPS URL and may carry a
// custom shortcode and a validity in minutes. On success it returns the full
// short link and the expiry timestamp.
func handleCreateShortURL(svc URLService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleCreateShortURL"

	return func(w http.ResponseWriter, r *http.Request) {
		var req createShortURLRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBody())
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequest())
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationFailed(err))
			return
		}

		created, err := svc.CreateShortURL(r.Context(), service.CreateURLParams{
			OriginalURL:     req.URL,
			Shortcode:       req.Shortcode,
			ValidityMinutes: req.Validity,
		})
		if err != nil {
			switch {
			case errors.Is(err, database.ErrShortcodeExists):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.Conflict("Shortcode already exists."))
			case errors.Is(err, service.ErrInvalidURL):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.New(response.CategoryBadRequest, "Invalid URL."))
			case errors.Is(err, service.ErrInvalidShortcode):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.New(response.CategoryBadRequest, "Invalid shortcode."))
			case errors.Is(err, service.ErrInvalidValidity):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.New(response.CategoryBadRequest, "Validity must be a positive integer."))
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerError())
			}
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, toCreateShortURLResponse(created))
	}
}

// handleRedirect handles GET requests on a bare shortcode and redirects the
// visitor to the original URL, forwarding the request metadata into click
// recording.
func handleRedirect(svc URLService) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		shortcode := chi.URLParam(r, "shortcode")

		meta := models.ClickMetadata{
			Referrer:  r.Referer(),
			UserAgent: r.UserAgent(),
			IPAddress: clientIP(r),
		}

		originalURL, err := svc.ResolveShortcode(r.Context(), shortcode, meta)
		if err != nil {
			switch {
			case errors.Is(err, database.ErrURLNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.NotFound("Shortcode not found."))
			case errors.Is(err, service.ErrLinkExpired):
				render.Status(r, http.StatusGone)
				render.JSON(w, r, response.Gone("Short link has expired."))
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerError())
			}
			return
		}

		http.Redirect(w, r, originalURL, http.StatusFound)
	}
}

// handleGetURLStats handles GET requests to retrieve usage statistics for a
// shortened URL: the mapping metadata, the total click count and the full
// click history. Statistics stay available after expiry.
func handleGetURLStats(svc ClickService) http.HandlerFunc {
	const op = "api.http.handleGetURLStats"

	return func(w http.ResponseWriter, r *http.Request) {
		shortcode := chi.URLParam(r, "shortcode")

		stats, err := svc.GetStatistics(r.Context(), shortcode)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.NotFound("Shortcode not found."))
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerError())
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, toURLStatsResponse(stats))
	}
}

// clientIP strips the port from the remote address. With middleware.RealIP
// the address is already a bare IP and is returned as is.
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
