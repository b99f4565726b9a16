// Package generation provides interfaces and types for interacting with
// external model backends for article generation. It abstracts the details of
// the inference API integration (Ollama, Gemini), allowing the scheduler to
// execute generation tasks without coupling to a specific backend service.
package generation
