// Package embedder turns query and content text into dense vectors.
//
// Three providers implement the Embedder interface: Jina AI and OpenAI
// (both speaking the OpenAI-compatible /v1/embeddings wire format) and a
// local feature-hashing provider that works offline.
//
// # Provider Selection
//
// New and NewFromEnv resolve the provider in this order:
//
//  1. CONTENTSEARCH_EMBEDDING_PROVIDER (jina, openai, local)
//  2. JINA_API_KEY set → Jina AI
//  3. OPENAI_API_KEY set → OpenAI
//  4. otherwise the local provider
//
// # Caching
//
// Every provider memoizes vectors by the SHA-256 of the input text in a
// bounded LRU with an optional TTL. Concurrent requests for the same text
// share a single upstream call. Cached vectors are copied on read so callers
// may mutate what they receive.
//
// # Errors
//
// Upstream failures are reported as *EmbeddingError, which matches
// ErrProviderFailed with errors.Is. Transport errors, 429 and 5xx responses
// are retried with exponential backoff; other 4xx responses are not.
package embedder
