// Package service contains the application use cases: worksheet generation
// and lifecycle, assignments and completions, community reviews, moderation,
// and analytics. Each service coordinates domain entities and the repository
// interfaces from internal/store, and translates domain errors into the
// sentinel errors the API layer maps to HTTP status codes.
//
// Services receive their dependencies through constructor injection and
// depend only on interfaces, never on concrete infrastructure, so they can
// be tested against in-memory fakes.
package service
