package social

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// ProviderError captures normalized provider response details.
type ProviderError struct {
	Provider    string
	Operation   string
	Status      int
	Code        string
	Description string
	Err         error
	Raw         map[string]any
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}

	scope := "provider"
	if e.Provider != "" && e.Operation != "" {
		scope = fmt.Sprintf("%s %s", e.Provider, e.Operation)
	} else if e.Provider != "" {
		scope = e.Provider
	} else if e.Operation != "" {
		scope = e.Operation
	}

	if e.Description != "" {
		return fmt.Sprintf("%s failed: %s", scope, e.Description)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s failed: %s", scope, e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", scope, e.Err)
	}

	return fmt.Sprintf("%s failed", scope)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// logFields returns key/value pairs describing the provider failure in err,
// or nil when err carries no ProviderError.
func logFields(err error) []any {
	var pe *ProviderError
	if !errors.As(err, &pe) || pe == nil {
		return nil
	}

	fields := []any{"operation", pe.Operation}
	if pe.Provider != "" {
		fields = append(fields, "provider", pe.Provider)
	}
	if pe.Status != 0 {
		fields = append(fields, "status", pe.Status)
	}
	if pe.Code != "" {
		fields = append(fields, "code", pe.Code)
	}
	if pe.Description != "" {
		fields = append(fields, "description", pe.Description)
	}
	if len(pe.Raw) > 0 {
		fields = append(fields, "raw", pe.Raw)
	}
	return fields
}

// wrapProviderError keeps base matchable with errors.Is and err reachable
// with errors.As.
func wrapProviderError(base *goerrors.Error, provider, operation string, err error) error {
	if base == nil {
		return err
	}
	if err == nil {
		return fmt.Errorf("%w: %s %s", base, provider, operation)
	}
	return fmt.Errorf("%w: %s %s: %w", base, provider, operation, err)
}
