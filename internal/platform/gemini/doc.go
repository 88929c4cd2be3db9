// Package gemini implements the generation interfaces against Google's
// Gemini and Imagen models via the google.golang.org/genai SDK.
//
// This package is an infrastructure adapter in the hexagonal architecture,
// connecting the application's domain logic to the external AI service.
// It translates between the application's domain models and the API without
// exposing external service details to the core application.
//
// Key components:
//
// 1. ContentGenerator:
//   - Implements generation.ContentGenerator
//   - Renders the worksheet prompt from the generation request and
//     optional screening scores
//   - Retries transient API failures with exponential backoff and jitter
//   - Validates the structured JSON envelope returned by the model
//
// 2. ImageGenerator:
//   - Implements generation.ImageGenerator
//   - Styles illustration prompts per the requested color mode
//   - Returns produced images as data URLs
//
// Safety blocks and malformed responses are permanent failures; network and
// server-side errors are treated as transient and retried.
package gemini
