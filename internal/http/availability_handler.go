package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/facility-reservations/internal/application"
	"github.com/example/facility-reservations/internal/availability"
	"github.com/example/facility-reservations/internal/recurrence"
)

type availabilityService interface {
	Check(ctx context.Context, params application.AvailabilityParams) (application.AvailabilityReport, error)
	CheckSeries(ctx context.Context, params application.SeriesAvailabilityParams) ([]application.CandidateAvailability, error)
}

type AvailabilityHandler struct {
	service   availabilityService
	responder responder
	logger    *slog.Logger
}

func NewAvailabilityHandler(service availabilityService, logger *slog.Logger) *AvailabilityHandler {
	base := defaultLogger(logger)
	return &AvailabilityHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AvailabilityHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AvailabilityHandler", operation, attrs...)
}

// Check answers one availability question from query parameters. The debug
// parameter adds the formatted schedule rows to the response.
func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	params, err := parseAvailabilityQuery(r)
	if err != nil {
		h.log(r.Context(), "Check", "error_kind", "bad_request").ErrorContext(r.Context(), "rejected availability query", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Check", "room_id", params.RoomID)

	report, err := h.service.Check(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "availability check failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With(
		"reservation_conflict", report.Result.HasReservationConflict,
		"open_hours_conflict", report.Result.HasOpenHoursConflict,
	).InfoContext(r.Context(), "availability checked")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAvailabilityReportDTO(report))
}

// CheckSeries answers the availability question for every candidate slot of
// a recurrence rule, across one or more rooms.
func (h *AvailabilityHandler) CheckSeries(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req seriesAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CheckSeries", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode series request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	params, err := req.toParams()
	if err != nil {
		h.log(r.Context(), "CheckSeries", "error_kind", "bad_request").ErrorContext(r.Context(), "rejected series request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "CheckSeries", "room_count", len(params.RoomIDs))

	results, err := h.service.CheckSeries(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "series availability check failed", "error", err, "error_kind", application.ErrorKind(err))
		if errors.Is(err, recurrence.ErrInvalidFrequency) || errors.Is(err, recurrence.ErrInvalidWindow) || errors.Is(err, recurrence.ErrInvalidDuration) {
			h.responder.writeError(r.Context(), w, http.StatusUnprocessableEntity, err)
			return
		}
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(results)).InfoContext(r.Context(), "series availability checked")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, seriesAvailabilityResponse{Results: toCandidateDTOs(results)})
}

func parseAvailabilityQuery(r *http.Request) (application.AvailabilityParams, error) {
	query := r.URL.Query()

	params := application.AvailabilityParams{
		RoomID:               strings.TrimSpace(query.Get("room")),
		DisplayZone:          strings.TrimSpace(query.Get("timezone")),
		ExcludeReservationID: strings.TrimSpace(query.Get("exclude")),
	}
	if params.RoomID == "" {
		return application.AvailabilityParams{}, fmt.Errorf("the room query parameter is required")
	}

	windowStart, err := parseQueryTime(query.Get("window_start"), "window_start", true)
	if err != nil {
		return application.AvailabilityParams{}, err
	}
	windowEnd, err := parseQueryTime(query.Get("window_end"), "window_end", true)
	if err != nil {
		return application.AvailabilityParams{}, err
	}
	params.WindowStart = *windowStart
	params.WindowEnd = *windowEnd

	if params.Start, err = parseQueryTime(query.Get("start"), "start", false); err != nil {
		return application.AvailabilityParams{}, err
	}
	if params.End, err = parseQueryTime(query.Get("end"), "end", false); err != nil {
		return application.AvailabilityParams{}, err
	}

	if raw := strings.TrimSpace(query.Get("duration")); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			return application.AvailabilityParams{}, fmt.Errorf("duration must be a positive number of minutes")
		}
		params.DurationMinutes = minutes
	}

	if raw := strings.TrimSpace(query.Get("debug")); raw != "" {
		debug, err := strconv.ParseBool(raw)
		if err != nil {
			return application.AvailabilityParams{}, fmt.Errorf("debug must be a boolean")
		}
		params.Debug = debug
	}
	return params, nil
}

func parseQueryTime(raw, name string, required bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if required {
			return nil, fmt.Errorf("the %s query parameter is required", name)
		}
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an RFC 3339 timestamp", name)
	}
	return &t, nil
}

type seriesAvailabilityRequest struct {
	RoomIDs         []string `json:"room_ids"`
	SeriesID        string   `json:"series_id"`
	Frequency       string   `json:"frequency"`
	Weekdays        []string `json:"weekdays"`
	StartsOn        string   `json:"starts_on"`
	EndsOn          string   `json:"ends_on"`
	BaseStart       string   `json:"base_start"`
	BaseEnd         string   `json:"base_end"`
	RangeStart      string   `json:"range_start"`
	RangeEnd        string   `json:"range_end"`
	DurationMinutes int      `json:"duration_minutes"`
	Timezone        string   `json:"timezone"`
}

func (r seriesAvailabilityRequest) toParams() (application.SeriesAvailabilityParams, error) {
	if len(r.RoomIDs) == 0 {
		return application.SeriesAvailabilityParams{}, fmt.Errorf("at least one room id is required")
	}

	rule := recurrence.Rule{SeriesID: strings.TrimSpace(r.SeriesID)}

	// A request naming only a series replays its stored rule; otherwise the
	// rule fields are required inline.
	if strings.TrimSpace(r.Frequency) != "" || rule.SeriesID == "" {
		frequency, err := parseFrequency(r.Frequency)
		if err != nil {
			return application.SeriesAvailabilityParams{}, err
		}
		rule.Frequency = frequency

		for _, name := range r.Weekdays {
			day, ok := parseWeekday(name)
			if !ok {
				return application.SeriesAvailabilityParams{}, fmt.Errorf("unknown weekday %q", name)
			}
			rule.Weekdays = append(rule.Weekdays, day)
		}

		if t, err := parseQueryTime(r.StartsOn, "starts_on", true); err != nil {
			return application.SeriesAvailabilityParams{}, err
		} else {
			rule.StartsOn = *t
		}
		if t, err := parseQueryTime(r.EndsOn, "ends_on", false); err != nil {
			return application.SeriesAvailabilityParams{}, err
		} else if t != nil {
			rule.EndsOn = t
		}
	}

	params := application.SeriesAvailabilityParams{
		RoomIDs:         r.RoomIDs,
		DurationMinutes: r.DurationMinutes,
		DisplayZone:     strings.TrimSpace(r.Timezone),
	}

	if t, err := parseQueryTime(r.BaseStart, "base_start", true); err != nil {
		return application.SeriesAvailabilityParams{}, err
	} else {
		params.BaseStart = *t
	}
	if t, err := parseQueryTime(r.BaseEnd, "base_end", true); err != nil {
		return application.SeriesAvailabilityParams{}, err
	} else {
		params.BaseEnd = *t
	}

	if t, err := parseQueryTime(r.RangeStart, "range_start", false); err != nil {
		return application.SeriesAvailabilityParams{}, err
	} else if t != nil {
		params.RangeStart = *t
	}
	if t, err := parseQueryTime(r.RangeEnd, "range_end", false); err != nil {
		return application.SeriesAvailabilityParams{}, err
	} else if t != nil {
		params.RangeEnd = *t
	}

	params.Rule = rule
	return params, nil
}

func parseFrequency(raw string) (recurrence.Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "daily":
		return recurrence.FrequencyDaily, nil
	case "weekly":
		return recurrence.FrequencyWeekly, nil
	default:
		return recurrence.FrequencyUnspecified, fmt.Errorf("frequency must be daily or weekly")
	}
}

type openIntervalDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type segmentDTO struct {
	Start           string   `json:"start"`
	End             string   `json:"end"`
	Kind            string   `json:"kind"`
	DurationMinutes int      `json:"duration_minutes"`
	ReservationIDs  []string `json:"reservation_ids,omitempty"`
}

type rowDTO struct {
	Start           string   `json:"start"`
	End             string   `json:"end"`
	Label           string   `json:"label"`
	DurationMinutes int      `json:"duration_minutes"`
	Duration        string   `json:"duration"`
	Eligible        bool     `json:"eligible"`
	ReservationIDs  []string `json:"reservation_ids,omitempty"`
}

type availabilityReportDTO struct {
	RoomID                string           `json:"room_id"`
	RoomName              string           `json:"room_name"`
	LocationID            string           `json:"location_id"`
	LocationName          string           `json:"location_name,omitempty"`
	Available             bool             `json:"available"`
	ReservationConflict   bool             `json:"reservation_conflict"`
	OpenHoursConflict     bool             `json:"open_hours_conflict"`
	HoursFellBack         bool             `json:"hours_fell_back"`
	RequestedDurationMins int              `json:"requested_duration_minutes"`
	OpenInterval          *openIntervalDTO `json:"open_interval,omitempty"`
	Schedule              []segmentDTO     `json:"schedule"`
	ScheduleByOpenHours   []segmentDTO     `json:"schedule_by_open_hours"`
	Rows                  []rowDTO         `json:"rows,omitempty"`
	OpenHoursRows         []rowDTO         `json:"open_hours_rows,omitempty"`
}

func toAvailabilityReportDTO(report application.AvailabilityReport) availabilityReportDTO {
	result := report.Result
	dto := availabilityReportDTO{
		RoomID:                report.RoomID,
		RoomName:              report.RoomName,
		LocationID:            report.LocationID,
		LocationName:          report.LocationName,
		Available:             !result.HasReservationConflict && !result.HasOpenHoursConflict,
		ReservationConflict:   result.HasReservationConflict,
		OpenHoursConflict:     result.HasOpenHoursConflict,
		HoursFellBack:         result.HoursFellBack,
		RequestedDurationMins: result.RequestedDurationMins,
		Schedule:              toSegmentDTOs(result.Schedule),
		ScheduleByOpenHours:   toSegmentDTOs(result.ScheduleByOpenHours),
		Rows:                  toRowDTOs(report.Rows),
		OpenHoursRows:         toRowDTOs(report.OpenHoursRows),
	}
	if result.OpenInterval != nil {
		dto.OpenInterval = &openIntervalDTO{
			Start: result.OpenInterval.Start.UTC().Format(time.RFC3339Nano),
			End:   result.OpenInterval.End.UTC().Format(time.RFC3339Nano),
		}
	}
	return dto
}

func toSegmentDTOs(segments []availability.ScheduleSegment) []segmentDTO {
	if len(segments) == 0 {
		return nil
	}
	out := make([]segmentDTO, 0, len(segments))
	for _, segment := range segments {
		out = append(out, segmentDTO{
			Start:           segment.Start.UTC().Format(time.RFC3339Nano),
			End:             segment.End.UTC().Format(time.RFC3339Nano),
			Kind:            string(segment.Kind),
			DurationMinutes: segment.DurationMinutes,
			ReservationIDs:  segment.ReservationIDs,
		})
	}
	return out
}

func toRowDTOs(rows []availability.Row) []rowDTO {
	if len(rows) == 0 {
		return nil
	}
	out := make([]rowDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowDTO{
			Start:           row.Start,
			End:             row.End,
			Label:           row.Label,
			DurationMinutes: row.DurationMinutes,
			Duration:        row.Duration,
			Eligible:        row.Eligible,
			ReservationIDs:  row.ReservationIDs,
		})
	}
	return out
}

type seriesAvailabilityResponse struct {
	Results []candidateAvailabilityDTO `json:"results"`
}

type candidateAvailabilityDTO struct {
	RoomID string                 `json:"room_id"`
	Start  string                 `json:"start"`
	End    string                 `json:"end"`
	Report *availabilityReportDTO `json:"report,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

func toCandidateDTOs(results []application.CandidateAvailability) []candidateAvailabilityDTO {
	if len(results) == 0 {
		return nil
	}
	out := make([]candidateAvailabilityDTO, 0, len(results))
	for _, result := range results {
		dto := candidateAvailabilityDTO{
			RoomID: result.RoomID,
			Start:  result.Candidate.Start.UTC().Format(time.RFC3339Nano),
			End:    result.Candidate.End.UTC().Format(time.RFC3339Nano),
		}
		if result.Err != nil {
			dto.Error = result.Err.Error()
		} else {
			report := toAvailabilityReportDTO(result.Report)
			dto.Report = &report
		}
		out = append(out, dto)
	}
	return out
}
