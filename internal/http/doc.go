// Package http exposes the skill swap services as a JSON API.
//
// Every route except /health and /metrics requires a bearer token issued by
// the identity provider (see JWTVerifier). Bodies and responses use the
// camelCase field names of the application entities; list endpoints return
// {"items", "page", "size", "totalMatches", "totalPages", "filters"} and read
// page and size from the query string.
//
//   - GET /me, POST /me, PUT /me, PUT /me/presence: the caller's profile.
//   - GET /users?q=&skill=&location=&availability=, GET /users/{id},
//     POST and DELETE /users/{id}/connection: the member directory.
//   - GET /listings, POST /listings, DELETE /listings/{id}: advertised skills.
//   - GET /requests?direction=&status=&q=, POST /requests, GET /requests/stats,
//     POST /requests/{id}/accept, POST /requests/{id}/reject.
//   - GET /swaps?status=&q=, GET /swaps/stats, GET /swaps/{id},
//     POST /swaps/{id}/sessions|complete|cancel.
//   - GET /schedule?date=, POST /schedule, POST /schedule/series,
//     GET /schedule/upcoming?limit=, GET /schedule/history?limit=,
//     POST /schedule/{id}/complete|cancel.
//   - GET /events/ws: WebSocket stream of the caller's events; the token may
//     be passed as ?access_token=.
//
// Errors carry {"error_code", "message"} plus "errors" (field messages) for
// 422 responses and "conflicts" for double-booked slots.
package http
