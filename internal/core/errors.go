package core

import "github.com/m-mizutani/goerr/v2"

// Failure taxonomy. Every one of these is absorbed into a fallback response
// path before it reaches the transport boundary; only ErrMalformedRequest
// becomes a client-visible error.
var (
	ErrConfigMissing          = goerr.New("no datastore configuration for creator")
	ErrEmbeddingUnavailable   = goerr.New("embedding engine unavailable")
	ErrSearchFailed           = goerr.New("knowledge search failed")
	ErrCollaboratorCallFailed = goerr.New("chat completion call failed")
	ErrMalformedRequest       = goerr.New("malformed request")
)
