//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"workitems/infrastructure/config"
)

// SuperSet is the provider set wire would use to regenerate Container's
// construction if the manual wiring in container.go ever needed codegen
// (e.g. once more than one environment/backend wiring exists). Retained per
// the teacher's infrastructure/di.wire.go build-tag pattern.
var SuperSet = wire.NewSet(
	ProvideLogger,
	NewContainer,
)

// InitializeContainer is the wire entrypoint; `wire` replaces this body
// with generated code when run against this file.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}
