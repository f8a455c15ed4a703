package observability

import "go.uber.org/zap"

// NewLogger builds the process-wide structured logger. Production gets
// JSON output, everything else the human-readable development encoder.
func NewLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
