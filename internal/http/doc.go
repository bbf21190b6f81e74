// Package http provides HTTP handlers and middleware for the reservations API.
//
// The router exposes the following endpoints:
//   - GET /locations, POST /locations, GET /locations/{id}, PUT /locations/{id},
//     DELETE /locations/{id}: location management endpoints exchanging the
//     `locationDTO` payload defined in location_handler.go. Weekly operating
//     hours are keyed by lowercase weekday name with 24-hour HHMM clocks.
//   - GET /rooms, POST /rooms, GET /rooms/{id}, PUT /rooms/{id},
//     DELETE /rooms/{id}: room catalog endpoints exchanging the `roomDTO`
//     payload defined in room_handler.go. Listing accepts a `location` query
//     parameter to filter by owning location.
//   - GET /reservations, POST /reservations, GET /reservations/{id},
//     PUT /reservations/{id}, DELETE /reservations/{id}: reservation
//     endpoints exchanging the `reservationDTO` payload defined in
//     reservation_handler.go. Listing accepts `room`, `user`, repeatable
//     `status`, `starts_after`, and `ends_before` query parameters.
//   - POST /reservations/{id}/approve, POST /reservations/{id}/deny,
//     POST /reservations/{id}/cancel, POST /reservations/{id}/request:
//     workflow transitions on a reservation's status.
//   - GET /availability: answers one availability question from query
//     parameters (`room`, `window_start`, `window_end`, optional `start`,
//     `end`, `duration`, `timezone`, `exclude`, `debug`). The debug flag
//     accepts any strconv.ParseBool form (`1`, `true`, ...) and adds human
//     readable schedule rows to the response.
//   - POST /availability/series: expands a recurrence rule into candidate
//     slots and answers the availability question for each slot across the
//     requested rooms. When the request carries a `series_id` with an inline
//     rule the rule is stored under that series; a later request naming only
//     the `series_id` replays the stored rule.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
