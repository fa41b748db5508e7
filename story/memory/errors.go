package memory

import "errors"

// ErrInvalidMaxTokens is returned when a budget below one token is requested.
// The store keeps its previous valid budget.
var ErrInvalidMaxTokens = errors.New("memory: max tokens must be at least 1")
