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
	"github.com/example/facility-reservations/internal/availability"
)

type reservationService interface {
	CreateReservation(ctx context.Context, input application.ReservationInput) (application.Reservation, error)
	UpdateReservation(ctx context.Context, params application.UpdateReservationParams) (application.Reservation, error)
	GetReservation(ctx context.Context, reservationID string) (application.Reservation, error)
	ListReservations(ctx context.Context, params application.ListReservationsParams) ([]application.Reservation, error)
	DeleteReservation(ctx context.Context, reservationID string) error
	Approve(ctx context.Context, reservationID string) (application.Reservation, error)
	Deny(ctx context.Context, reservationID string) (application.Reservation, error)
	Cancel(ctx context.Context, reservationID string) (application.Reservation, error)
	Request(ctx context.Context, reservationID string) (application.Reservation, error)
}

type ReservationHandler struct {
	service   reservationService
	responder responder
	logger    *slog.Logger
}

func NewReservationHandler(service reservationService, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reservation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "rejected reservation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Create", "room_id", input.RoomID, "user_id", input.UserID)

	reservation, err := h.service.CreateReservation(r.Context(), input)
	if err != nil {
		logger.ErrorContext(r.Context(), "reservation creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("reservation_id", reservation.ID, "status", string(reservation.Status)).InfoContext(r.Context(), "reservation created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := ReservationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(reservationID) == "" {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing reservation id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "reservation_id", reservationID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reservation update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.log(r.Context(), "Update", "reservation_id", reservationID, "error_kind", "bad_request").ErrorContext(r.Context(), "rejected reservation update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Update", "reservation_id", reservationID)

	reservation, err := h.service.UpdateReservation(r.Context(), application.UpdateReservationParams{
		ReservationID: reservationID,
		Input:         input,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "reservation update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := ReservationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(reservationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	reservation, err := h.service.GetReservation(r.Context(), reservationID)
	if err != nil {
		h.log(r.Context(), "Get", "reservation_id", reservationID).ErrorContext(r.Context(), "reservation fetch failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := ReservationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(reservationID) == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing reservation id for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	logger := h.log(r.Context(), "Delete", "reservation_id", reservationID)
	if err := h.service.DeleteReservation(r.Context(), reservationID); err != nil {
		logger.ErrorContext(r.Context(), "reservation delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// List filters reservations by the room, user, status, starts_after, and
// ends_before query parameters. The status parameter may repeat.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	params, err := parseListReservationsQuery(r)
	if err != nil {
		h.log(r.Context(), "List", "error_kind", "bad_request").ErrorContext(r.Context(), "rejected reservation list query", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "List", "room_id", params.RoomID, "user_id", params.UserID)

	reservations, err := h.service.ListReservations(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "reservation list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(reservations)).InfoContext(r.Context(), "reservations listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listReservationsResponse{Reservations: toReservationDTOs(reservations)})
}

// Transition applies a workflow action resolved from the request path:
// approve, deny, cancel, or request.
func (h *ReservationHandler) Transition(w http.ResponseWriter, r *http.Request, action string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := ReservationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(reservationID) == "" {
		h.log(r.Context(), "Transition", "error_kind", "bad_request").ErrorContext(r.Context(), "missing reservation id for transition")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	logger := h.log(r.Context(), "Transition", "reservation_id", reservationID, "action", action)

	var (
		reservation application.Reservation
		err         error
	)
	switch action {
	case "approve":
		reservation, err = h.service.Approve(r.Context(), reservationID)
	case "deny":
		reservation, err = h.service.Deny(r.Context(), reservationID)
	case "cancel":
		reservation, err = h.service.Cancel(r.Context(), reservationID)
	case "request":
		reservation, err = h.service.Request(r.Context(), reservationID)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "reservation transition failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("status", string(reservation.Status)).InfoContext(r.Context(), "reservation transitioned")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func parseListReservationsQuery(r *http.Request) (application.ListReservationsParams, error) {
	query := r.URL.Query()
	params := application.ListReservationsParams{
		RoomID: strings.TrimSpace(query.Get("room")),
		UserID: strings.TrimSpace(query.Get("user")),
	}

	for _, raw := range query["status"] {
		status, err := parseStatus(raw)
		if err != nil {
			return application.ListReservationsParams{}, err
		}
		params.Statuses = append(params.Statuses, status)
	}

	if raw := strings.TrimSpace(query.Get("starts_after")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return application.ListReservationsParams{}, fmt.Errorf("starts_after must be an RFC 3339 timestamp")
		}
		params.StartsAfter = &t
	}
	if raw := strings.TrimSpace(query.Get("ends_before")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return application.ListReservationsParams{}, fmt.Errorf("ends_before must be an RFC 3339 timestamp")
		}
		params.EndsBefore = &t
	}

	return params, nil
}

func parseStatus(raw string) (availability.Status, error) {
	switch availability.Status(strings.ToLower(strings.TrimSpace(raw))) {
	case availability.StatusRequested:
		return availability.StatusRequested, nil
	case availability.StatusApproved:
		return availability.StatusApproved, nil
	case availability.StatusDenied:
		return availability.StatusDenied, nil
	case availability.StatusCanceled:
		return availability.StatusCanceled, nil
	default:
		return "", fmt.Errorf("unknown reservation status %q", raw)
	}
}

type reservationRequest struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

func (r reservationRequest) toInput() (application.ReservationInput, error) {
	input := application.ReservationInput{
		RoomID: strings.TrimSpace(r.RoomID),
		UserID: strings.TrimSpace(r.UserID),
	}

	if raw := strings.TrimSpace(r.Start); raw != "" {
		start, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return application.ReservationInput{}, fmt.Errorf("start must be an RFC 3339 timestamp")
		}
		input.Start = start
	}
	if raw := strings.TrimSpace(r.End); raw != "" {
		end, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return application.ReservationInput{}, fmt.Errorf("end must be an RFC 3339 timestamp")
		}
		input.End = end
	}

	return input, nil
}

type reservationResponse struct {
	Reservation reservationDTO `json:"reservation"`
}

type listReservationsResponse struct {
	Reservations []reservationDTO `json:"reservations"`
}

type reservationDTO struct {
	ID        string `json:"id"`
	RoomID    string `json:"room_id"`
	UserID    string `json:"user_id"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toReservationDTO(reservation application.Reservation) reservationDTO {
	return reservationDTO{
		ID:        reservation.ID,
		RoomID:    reservation.RoomID,
		UserID:    reservation.UserID,
		Start:     reservation.Start.UTC().Format(time.RFC3339Nano),
		End:       reservation.End.UTC().Format(time.RFC3339Nano),
		Status:    string(reservation.Status),
		CreatedAt: reservation.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: reservation.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toReservationDTOs(reservations []application.Reservation) []reservationDTO {
	if len(reservations) == 0 {
		return nil
	}
	out := make([]reservationDTO, 0, len(reservations))
	for _, reservation := range reservations {
		out = append(out, toReservationDTO(reservation))
	}
	return out
}
