package models

import "errors"

var (
	// ErrDocumentParse marks a malformed or unreadable PDF.
	ErrDocumentParse = errors.New("document parse error")
	// ErrRetrieval marks an empty or unreachable vector store.
	ErrRetrieval = errors.New("retrieval error")
	// ErrModel marks a failed call to the embedding or generation model.
	ErrModel = errors.New("model error")
	// ErrConfig marks an unusable configuration at startup.
	ErrConfig = errors.New("config error")
	// ErrValidation marks caller input rejected before any external call.
	ErrValidation = errors.New("validation error")
)
