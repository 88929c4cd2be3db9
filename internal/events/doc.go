// Package events decouples services from the background task machinery.
// Services emit TaskRequestEvents (for example when a worksheet generation
// is requested) without knowing which handlers persist or schedule them.
package events
