// Package http provides HTTP handlers and middleware for the attendance API.
//
// Every endpoint identifies the acting user through the `X-User-ID` header
// (enforced by the RequireUser middleware) and resolves the caller's civil
// "today" from the optional `X-Timezone` header. The router exposes:
//   - GET /subjects, POST /subjects, DELETE /subjects/{id}: subject catalog
//     endpoints exchanging the `subjectDTO` payload defined in
//     subject_handler.go. Deleting a subject removes its time-slots and
//     occurrences.
//   - GET /schedules, POST /schedules, DELETE /schedules/{id}: weekly
//     time-slot endpoints exchanging the `scheduleDTO` payload defined in
//     schedule_handler.go. POST creates a slot, or reshapes an existing one
//     when the body carries a `rule_id`; responses report how many
//     materialized occurrences the change deleted and created.
//   - POST /schedules/regenerate: re-materializes every time-slot of the
//     acting user and reports the number of occurrences created.
//   - GET /occurrences?from&to&subject_id: materialized class instances
//     within the inclusive date window, ordered by date then start time.
//   - GET /occurrences/today: today's classes, each paired with its subject
//     summary.
//   - PUT /occurrences/{id}/status: records attendance. Body: {"status"}
//     with one of attended, missed, cancelled. Returns the updated
//     occurrence and the fresh summary of its subject.
//   - GET /summary, GET /summary?subject_id=: attendance aggregates up to
//     today, overall and per subject, with the dashboard indicator color.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
