package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/facility-reservations/internal/application"
)

type locationService interface {
	CreateLocation(ctx context.Context, input application.LocationInput) (application.Location, error)
	UpdateLocation(ctx context.Context, params application.UpdateLocationParams) (application.Location, error)
	GetLocation(ctx context.Context, locationID string) (application.Location, error)
	DeleteLocation(ctx context.Context, locationID string) error
	ListLocations(ctx context.Context) ([]application.Location, error)
}

type LocationHandler struct {
	service   locationService
	responder responder
	logger    *slog.Logger
}

func NewLocationHandler(service locationService, logger *slog.Logger) *LocationHandler {
	base := defaultLogger(logger)
	return &LocationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *LocationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "LocationHandler", operation, attrs...)
}

func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode location request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "rejected location request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Create")

	location, err := h.service.CreateLocation(r.Context(), input)
	if err != nil {
		logger.ErrorContext(r.Context(), "location creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("location_id", location.ID).InfoContext(r.Context(), "location created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, locationResponse{Location: toLocationDTO(location)})
}

func (h *LocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	locationID, ok := LocationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(locationID) == "" {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing location id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidLocationID)
		return
	}

	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "location_id", locationID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode location update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.log(r.Context(), "Update", "location_id", locationID, "error_kind", "bad_request").ErrorContext(r.Context(), "rejected location update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Update", "location_id", locationID)

	location, err := h.service.UpdateLocation(r.Context(), application.UpdateLocationParams{
		LocationID: locationID,
		Input:      input,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "location update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "location updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, locationResponse{Location: toLocationDTO(location)})
}

func (h *LocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	locationID, ok := LocationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(locationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidLocationID)
		return
	}

	location, err := h.service.GetLocation(r.Context(), locationID)
	if err != nil {
		h.log(r.Context(), "Get", "location_id", locationID).ErrorContext(r.Context(), "location fetch failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, locationResponse{Location: toLocationDTO(location)})
}

func (h *LocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	locationID, ok := LocationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(locationID) == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing location id for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidLocationID)
		return
	}

	logger := h.log(r.Context(), "Delete", "location_id", locationID)
	if err := h.service.DeleteLocation(r.Context(), locationID); err != nil {
		logger.ErrorContext(r.Context(), "location delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "location deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")
	locations, err := h.service.ListLocations(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "location list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(locations)).InfoContext(r.Context(), "locations listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listLocationsResponse{Locations: toLocationDTOs(locations)})
}

type hoursDTO struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type locationRequest struct {
	Name        string              `json:"name"`
	WeeklyHours map[string]hoursDTO `json:"weekly_hours"`
}

func (r locationRequest) toInput() (application.LocationInput, error) {
	input := application.LocationInput{Name: strings.TrimSpace(r.Name)}
	if len(r.WeeklyHours) == 0 {
		return input, nil
	}

	input.WeeklyHours = make(map[time.Weekday]application.HoursInput, len(r.WeeklyHours))
	for name, hours := range r.WeeklyHours {
		day, ok := parseWeekday(name)
		if !ok {
			return application.LocationInput{}, fmt.Errorf("unknown weekday %q in weekly_hours", name)
		}
		input.WeeklyHours[day] = application.HoursInput{Start: hours.Start, End: hours.End}
	}
	return input, nil
}

type locationResponse struct {
	Location locationDTO `json:"location"`
}

type listLocationsResponse struct {
	Locations []locationDTO `json:"locations"`
}

type locationDTO struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	WeeklyHours map[string]hoursDTO `json:"weekly_hours,omitempty"`
	CreatedAt   string              `json:"created_at"`
	UpdatedAt   string              `json:"updated_at"`
}

func toLocationDTO(location application.Location) locationDTO {
	dto := locationDTO{
		ID:        location.ID,
		Name:      location.Name,
		CreatedAt: location.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: location.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if len(location.WeeklyHours) > 0 {
		dto.WeeklyHours = make(map[string]hoursDTO, len(location.WeeklyHours))
		for day, hours := range location.WeeklyHours {
			dto.WeeklyHours[weekdayName(day)] = hoursDTO{Start: int(hours.Start), End: int(hours.End)}
		}
	}
	return dto
}

func toLocationDTOs(locations []application.Location) []locationDTO {
	if len(locations) == 0 {
		return nil
	}
	out := make([]locationDTO, 0, len(locations))
	for _, location := range locations {
		out = append(out, toLocationDTO(location))
	}
	return out
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekday(name string) (time.Weekday, bool) {
	day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	return day, ok
}

func weekdayName(day time.Weekday) string {
	return strings.ToLower(day.String())
}
