package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"energy-tariffs/internal/derivation"
	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/logging"
	"energy-tariffs/internal/observability"
	"energy-tariffs/internal/pricing"
	"energy-tariffs/internal/storage"
	"energy-tariffs/internal/tariff"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

// ErrorBody is the response body of a failed request.
type ErrorBody struct {
	Error string `json:"ERROR"`
}

// Handler serves the tariff routes.
type Handler struct {
	svc    *Service
	mux    *http.ServeMux
	logger *zap.Logger
}

// NewHandler creates a Handler for svc.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	h := &Handler{svc: svc, mux: http.NewServeMux(), logger: logging.OrNop(logger)}

	for _, route := range []string{
		RouteIndexingSetting,
		RouteEndPrice,
		RouteEndPrices,
		RouteGridCost,
		RouteExcise,
		RouteDerive,
	} {
		h.mux.HandleFunc("POST /"+route, h.serve(route))
	}
	h.mux.HandleFunc("GET /"+RouteList, h.serve(RouteList))
	h.mux.HandleFunc("POST /"+RouteList, h.serve(RouteList))
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) serve(route string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		status, body := h.handle(r, route)
		observability.RecordAPIRequest(r.Method, status, started)

		if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
			h.logger.Error("request failed", zap.String("route", route), zap.Any("error", body))
		} else {
			h.logger.Debug("request served",
				zap.String("route", route),
				zap.Int("status", status),
				zap.Duration("took", time.Since(started)),
			)
		}
		writeJSON(w, status, body)
	}
}

func (h *Handler) handle(r *http.Request, route string) (int, any) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
	if err != nil {
		return http.StatusBadRequest, ErrorBody{Error: err.Error()}
	}

	req, err := Decode(route, raw, h.svc.Location)
	if err != nil {
		return StatusFor(err), ErrorBody{Error: err.Error()}
	}
	resp, err := h.svc.Dispatch(r.Context(), req)
	if err != nil {
		return StatusFor(err), ErrorBody{Error: err.Error()}
	}
	return http.StatusOK, resp
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, pricing.ErrIndexNotFound),
		errors.Is(err, pricing.ErrTariffNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidInput),
		errors.Is(err, domain.ErrNaiveTimestamp),
		errors.Is(err, pricing.ErrTooManyRequests):
		return http.StatusBadRequest
	case errors.Is(err, tariff.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, derivation.ErrDataNotYetAvailable):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
