package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"prayer-times-ics/internal/apperr"
	"prayer-times-ics/internal/awqaf"
	"prayer-times-ics/internal/emirates"
	"prayer-times-ics/internal/generator"
)

// Builder renders a calendar for a request without writing it to disk.
type Builder interface {
	Build(ctx context.Context, req awqaf.Request) (generator.Output, error)
}

// Handler holds the HTTP handlers and their dependencies.
type Handler struct {
	builder Builder
	timeout time.Duration
}

// New creates a new Handler.
func New(builder Builder, timeout time.Duration) *Handler {
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &Handler{
		builder: builder,
		timeout: timeout,
	}
}

// RegisterRoutes registers all HTTP routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /emirates", h.noCache(h.handleEmirates))
	mux.HandleFunc("GET /emirates/{emirate}/cities", h.noCache(h.handleCities))
	mux.HandleFunc("GET /calendar/{emirate}/{city}/{year}/{month}", h.noCache(h.handleCalendar))
	mux.HandleFunc("GET /health", h.handleHealth)
}

func (h *Handler) noCache(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		next(w, r)
	}
}

func (h *Handler) handleEmirates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, emirates.All())
}

func (h *Handler) handleCities(w http.ResponseWriter, r *http.Request) {
	cities, err := emirates.Cities(r.PathValue("emirate"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cities)
}

func (h *Handler) handleCalendar(w http.ResponseWriter, r *http.Request) {
	req, err := parseCalendarRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, _, err := emirates.Lookup(req.Emirate, req.City); err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	out, err := h.builder.Build(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("emirate", req.Emirate).Str("city", req.City).Msg("calendar request failed")
		writeError(w, err)
		return
	}

	name := fmt.Sprintf("%s-%04d-%02d.ics", out.City, req.Year, req.Month)
	if req.Day != 0 {
		name = fmt.Sprintf("%s-%04d-%02d-%02d.ics", out.City, req.Year, req.Month, req.Day)
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	if len(out.Skipped) > 0 {
		w.Header().Set("X-Skipped-Days", strconv.Itoa(len(out.Skipped)))
	}
	w.Write(out.Data)
}

func parseCalendarRequest(r *http.Request) (awqaf.Request, error) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		return awqaf.Request{}, fmt.Errorf("invalid year %q", r.PathValue("year"))
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil {
		return awqaf.Request{}, fmt.Errorf("invalid month %q", r.PathValue("month"))
	}
	var day int
	if v := r.URL.Query().Get("day"); v != "" {
		if day, err = strconv.Atoi(v); err != nil {
			return awqaf.Request{}, fmt.Errorf("invalid day %q", v)
		}
	}

	req := awqaf.Request{
		Emirate: r.PathValue("emirate"),
		City:    r.PathValue("city"),
		Year:    year,
		Month:   month,
		Day:     day,
	}
	if err := req.Validate(); err != nil {
		return awqaf.Request{}, err
	}
	return req, nil
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps an error kind to an HTTP status.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindLookup:
		status = http.StatusNotFound
	case apperr.KindAuth, apperr.KindNetwork:
		status = http.StatusBadGateway
	case apperr.KindData:
		status = http.StatusUnprocessableEntity
	}
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	http.Error(w, err.Error(), status)
}
