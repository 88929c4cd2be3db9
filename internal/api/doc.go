// Package api exposes the HTTP surface of the worksheet service: request
// decoding and validation, role-gated handlers for generation, lifecycle,
// assignments, community feedback, and analytics, and the mapping from
// service errors to HTTP status codes.
package api
