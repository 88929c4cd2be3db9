// Package config loads and validates application settings from environment
// variables and optional config files, giving the rest of the application
// typed access to server, database, auth, LLM, and task runner settings.
package config
