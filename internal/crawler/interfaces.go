package crawler

import (
	"context"
	"time"

	"github.com/JakeFAU/experience-hoarder/internal/code"
)

// Prober asks the lookup service whether a code resolves to a resource. It
// returns StatusFound or StatusNotFound, or an error for transport failures
// and ErrUnexpectedResponse for responses it cannot classify.
type Prober interface {
	Probe(ctx context.Context, c code.Code) (Status, error)
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, c code.Code) (Status, error)

// Probe calls f.
func (f ProberFunc) Probe(ctx context.Context, c code.Code) (Status, error) {
	return f(ctx, c)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator issues sweep identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
