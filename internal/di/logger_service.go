package di

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"github.com/omarluq/aicleaner/internal/api"
)

// LoggerService wraps the process logger.
type LoggerService struct {
	Logger *zerolog.Logger
	closer io.Closer
}

// NewLogger builds the logger from the logging section.
func NewLogger(i do.Injector) (*LoggerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)

	logger, closer, err := api.NewLogger(cfgSvc.Get().Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return &LoggerService{Logger: &logger, closer: closer}, nil
}

// Shutdown implements do.Shutdowner; it closes a file output.
func (l *LoggerService) Shutdown() error {
	return l.closer.Close()
}
