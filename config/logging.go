package config

import (
	"go.uber.org/zap"
)

// setLogger picks the zap flavour for the given environment
func setLogger(environment string) (*zap.Logger, error) {
	switch environment {
	case "production":
		return zap.NewProduction()
	case "development":
		return zap.NewDevelopment()
	default:
		return zap.NewExample(), nil
	}
}
