// internal/clinical/errors.go
package clinical

import (
	"fmt"

	"github.com/meditrek/clinpilot/api/schemas"
)

// AnalysisUnavailableError is the engine-level wrapper presented to callers
// when the router could not produce any raw response (chain exhausted). It
// never wraps content validation failures; those propagate unwrapped so the
// caller can distinguish "no provider answered" from "a provider answered
// garbage".
type AnalysisUnavailableError struct {
	Operation schemas.Operation
	Err       error
}

func (e *AnalysisUnavailableError) Error() string {
	return fmt.Sprintf("analysis unavailable for %s: %v", e.Operation, e.Err)
}

func (e *AnalysisUnavailableError) Unwrap() error { return e.Err }
