package logger

import (
	"time"
)

// OperationLogger logs the lifecycle of a single named operation with
// a shared set of fields and the elapsed time on completion.
type OperationLogger struct {
	logger    Logger
	operation string
	fields    Fields
	startTime time.Time
}

// NewOperationLogger starts an operation and logs its beginning.
func NewOperationLogger(operation string, logger Logger) *OperationLogger {
	if logger == nil {
		logger = GetGlobalLogger()
	}

	ol := &OperationLogger{
		logger:    logger,
		operation: operation,
		fields:    Fields{"operation": operation},
		startTime: time.Now(),
	}

	ol.logger.WithFields(ol.fields).Debug("operation started")
	return ol
}

// WithField adds a field to every subsequent log line of the operation.
func (ol *OperationLogger) WithField(key string, value interface{}) *OperationLogger {
	ol.fields[key] = value
	return ol
}

// Step logs an intermediate step.
func (ol *OperationLogger) Step(step string) {
	ol.logger.WithFields(ol.fields).WithField("step", step).Debug("operation step")
}

// Elapsed returns the time since the operation started.
func (ol *OperationLogger) Elapsed() time.Duration {
	return time.Since(ol.startTime)
}

// Success logs the successful completion of the operation.
func (ol *OperationLogger) Success(message string) {
	ol.logger.WithFields(ol.fields).WithFields(Fields{
		"duration": ol.Elapsed().String(),
		"status":   "success",
	}).Info(message)
}

// Error logs the failed completion of the operation.
func (ol *OperationLogger) Error(err error, message string) {
	ol.logger.WithError(err).WithFields(ol.fields).WithFields(Fields{
		"duration": ol.Elapsed().String(),
		"status":   "error",
	}).Error(message)
}

// TimedOperation runs fn inside an OperationLogger.
func TimedOperation(operation string, logger Logger, fn func() error) error {
	ol := NewOperationLogger(operation, logger)

	if err := fn(); err != nil {
		ol.Error(err, "operation failed")
		return err
	}

	ol.Success("operation completed")
	return nil
}
