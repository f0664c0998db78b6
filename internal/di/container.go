// Package di wires aicleaner's services with samber/do v2. Every long-lived
// component (config, logger, cache, providers, health monitor,
// orchestrator, API server) is a lazily built singleton; shutdown runs in
// reverse dependency order.
package di

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"
)

// ConfigPathKey is the named key for the config path string.
const ConfigPathKey = "config.path"

// Container wraps the do.Injector.
type Container struct {
	injector *do.RootScope
}

// NewContainer creates the container and loads the configuration eagerly,
// so a bad config file fails here rather than on first use.
func NewContainer(configPath string) (*Container, error) {
	injector := do.New()
	do.ProvideNamedValue(injector, ConfigPathKey, configPath)
	RegisterSingletons(injector)

	c := &Container{injector: injector}
	if _, err := do.Invoke[*ConfigService](injector); err != nil {
		if shutdownErr := c.Shutdown(); shutdownErr != nil {
			return nil, fmt.Errorf("%w (shutdown: %v)", err, shutdownErr)
		}
		return nil, err
	}
	return c, nil
}

// Injector returns the underlying injector.
func (c *Container) Injector() *do.RootScope {
	return c.injector
}

// Invoke resolves a service from the container.
func Invoke[T any](c *Container) (T, error) {
	return do.Invoke[T](c.injector)
}

// MustInvoke resolves a service or panics. Use only during startup.
func MustInvoke[T any](c *Container) T {
	return do.MustInvoke[T](c.injector)
}

// InvokeNamed resolves a named service from the container.
func InvokeNamed[T any](c *Container, name string) (T, error) {
	return do.InvokeNamed[T](c.injector, name)
}

// Shutdown shuts down every built service that implements do.Shutdowner,
// in reverse order of construction.
func (c *Container) Shutdown() error {
	report := c.injector.Shutdown()
	if report != nil && !report.Succeed {
		return fmt.Errorf("shutdown failed: %s", report.Error())
	}
	return nil
}

// ShutdownWithContext is Shutdown bounded by ctx.
func (c *Container) ShutdownWithContext(ctx context.Context) error {
	done := make(chan *do.ShutdownReport, 1)
	go func() {
		done <- c.injector.ShutdownWithContext(ctx)
	}()

	select {
	case report := <-done:
		if report != nil && !report.Succeed {
			return fmt.Errorf("shutdown failed: %s", report.Error())
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
