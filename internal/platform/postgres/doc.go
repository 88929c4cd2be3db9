// Package postgres implements the repository interfaces from internal/store
// on top of PostgreSQL. It owns the SQL for worksheets, images, assignments,
// completions, reviews, flags, screening scores, and background tasks, and
// maps between domain entities and database rows.
package postgres
