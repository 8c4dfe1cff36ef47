package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds the process logger. Production environments get JSON
// output; everything else gets the development console encoder.
func New(env string) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	switch env {
	case "production", "prod":
		logger, err = zap.NewProduction()
	default:
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
