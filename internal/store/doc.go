// Package store defines the persistence interfaces for worksheets and the
// records that hang off them: images, assignments, completions, reviews,
// flags, and screening scores. Implementations live under internal/platform;
// services depend only on these interfaces.
package store
