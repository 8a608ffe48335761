package logger

import (
	"time"
)

// OperationLogger logs the steps of one reconciliation request with timing.
type OperationLogger struct {
	logger    Logger
	operation string
	fields    Fields
	startTime time.Time
	stepStart time.Time
}

// NewOperationLogger creates a new operation logger
func NewOperationLogger(operation string, logger Logger) *OperationLogger {
	if logger == nil {
		logger = GetGlobalLogger()
	}

	now := time.Now()
	ol := &OperationLogger{
		logger:    logger.WithComponent("operation"),
		operation: operation,
		fields:    make(Fields),
		startTime: now,
		stepStart: now,
	}

	ol.logger.WithField("operation", operation).Info("Starting operation")
	return ol
}

// WithField adds a field to the operation context
func (ol *OperationLogger) WithField(key string, value interface{}) *OperationLogger {
	ol.fields[key] = value
	return ol
}

// Step logs the completion of a named step with its result counters.
func (ol *OperationLogger) Step(step string, counters Fields) {
	now := time.Now()
	fields := ol.baseFields()
	fields["step"] = step
	fields["step_duration"] = now.Sub(ol.stepStart).String()
	for k, v := range counters {
		fields[k] = v
	}
	ol.stepStart = now

	ol.logger.WithFields(fields).Info("Operation step")
}

// Success completes the operation successfully
func (ol *OperationLogger) Success(message string) {
	fields := ol.baseFields()
	fields["duration"] = time.Since(ol.startTime).String()
	fields["status"] = "success"

	ol.logger.WithFields(fields).Info(message)
}

// Error completes the operation with an error
func (ol *OperationLogger) Error(err error, message string) {
	fields := ol.baseFields()
	fields["duration"] = time.Since(ol.startTime).String()
	fields["status"] = "error"

	ol.logger.WithError(err).WithFields(fields).Error(message)
}

func (ol *OperationLogger) baseFields() Fields {
	fields := Fields{"operation": ol.operation}
	for k, v := range ol.fields {
		fields[k] = v
	}
	return fields
}
