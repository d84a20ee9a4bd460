package retrieve

import "errors"

// ErrNoRetriever indicates that no retriever was provided.
var ErrNoRetriever = errors.New("retriever is required")
