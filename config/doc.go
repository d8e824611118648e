// Package config loads coursesearch settings from TOML files.
//
// Values are layered: built-in defaults, then each file in order, then
// COURSESEARCH_* environment variables. The vendor key variables
// OPENAI_API_KEY and GEMINI_API_KEY are honored for the matching provider.
// Command line flags are applied on top by the caller.
//
// Example:
//
//	[catalog]
//	raw = "data/courses.json"
//	embedded = "data/embedded_courses.json"
//
//	[embedding]
//	provider = "gemini"
//	model = "gemini-embedding-001"
//
//	[server]
//	addr = ":8080"
//	frontend = "frontend/dist"
package config
