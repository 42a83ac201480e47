package embedding

import "fmt"

// ProviderError wraps a failure from an embedding provider (rate limit,
// network, auth). Callers fail closed on it: chunking persists nothing and
// query answering fabricates nothing.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
