// Package logging adapts zap to the service-layer logger port.
package logging

import (
	"go.uber.org/zap"

	"github.com/billfold/checkout-service/internal/domain/ports"
)

// ZapAdapter adapts zap.Logger to the ports.Logger interface
type ZapAdapter struct {
	logger *zap.Logger
}

// NewZapAdapter wraps an existing zap logger
func NewZapAdapter(logger *zap.Logger) *ZapAdapter {
	return &ZapAdapter{logger: logger}
}

// Info logs an info message
func (z *ZapAdapter) Info(msg string, fields ...ports.Field) {
	z.logger.Info(msg, convertFields(fields)...)
}

// Error logs an error message
func (z *ZapAdapter) Error(msg string, fields ...ports.Field) {
	z.logger.Error(msg, convertFields(fields)...)
}

// Warn logs a warning message
func (z *ZapAdapter) Warn(msg string, fields ...ports.Field) {
	z.logger.Warn(msg, convertFields(fields)...)
}

// Debug logs a debug message
func (z *ZapAdapter) Debug(msg string, fields ...ports.Field) {
	z.logger.Debug(msg, convertFields(fields)...)
}

func convertFields(fields []ports.Field) []zap.Field {
	zapFields := make([]zap.Field, len(fields))
	for i, f := range fields {
		if err, ok := f.Value.(error); ok {
			zapFields[i] = zap.NamedError(f.Key, err)
			continue
		}
		zapFields[i] = zap.Any(f.Key, f.Value)
	}
	return zapFields
}

var _ ports.Logger = (*ZapAdapter)(nil)
