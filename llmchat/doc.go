// Package llmchat is a small provider-agnostic chat client. It exposes a
// single blocking Complete call over an ordered message history, routes
// requests to registered provider adapters through a middleware chain, and
// classifies provider failures into a typed, retryability-aware error
// hierarchy.
//
// The only adapter shipped here drives a local Ollama server through gollm;
// additional providers register the same way.
package llmchat
