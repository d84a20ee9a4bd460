package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	// For the persisted index this means no index directory is present.
	ErrNotFound = errors.New("not found")

	// ErrConfiguration indicates required configuration is missing,
	// such as embedding credentials or any documents to index.
	ErrConfiguration = errors.New("configuration error")

	// ErrIndexCorrupt indicates a persisted index exists but cannot be read
	// or was built with a different embedding dimensionality.
	// Callers treat it like ErrNotFound and rebuild.
	ErrIndexCorrupt = errors.New("index corrupt")

	// ErrSourceParse indicates a single source record could not be parsed.
	// It is reported as a skip and never aborts a build.
	ErrSourceParse = errors.New("source parse error")

	// ErrNoDocuments indicates both source categories produced nothing.
	ErrNoDocuments = errors.New("no documents available")

	// ErrIndexNotLoaded indicates retrieval was attempted before any index was loaded.
	ErrIndexNotLoaded = errors.New("index not loaded")

	// ErrBuildInProgress indicates a non-blocking rebuild found another build running.
	ErrBuildInProgress = errors.New("build in progress")

	// ErrInvalidRequest indicates malformed or invalid input.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrLLMResponse indicates the LLM returned nothing usable.
	ErrLLMResponse = errors.New("unusable LLM response")

	// ErrDeckLimit indicates the owner already has the maximum number of decks.
	ErrDeckLimit = errors.New("deck limit reached")

	// ErrDuplicateDeck indicates a deck with the same owner and name exists.
	ErrDuplicateDeck = errors.New("deck already exists")
)
