// Package logger wraps logrus so that gateway packages share a single import
// and the underlying library can be swapped or reconfigured in one place.
package logger

import (
	log "github.com/sirupsen/logrus"
)

// Fields type, used to pass to WithFields
type Fields = log.Fields

// Entry is a logging context that can be passed around to long-lived services
type Entry = log.Entry

// Level type
type Level = log.Level

// available logging levels
const (
	TraceLevel = log.TraceLevel
	DebugLevel = log.DebugLevel
	InfoLevel  = log.InfoLevel
	WarnLevel  = log.WarnLevel
	ErrorLevel = log.ErrorLevel
	FatalLevel = log.FatalLevel
	PanicLevel = log.PanicLevel
)

// SetLevel sets the level for the global logger
func SetLevel(level Level) {
	log.SetLevel(level)
}

// ParseLevel takes a string level and returns the logrus log level constant
func ParseLevel(level string) (Level, error) {
	return log.ParseLevel(level)
}

// WithFields adds a map of fields to the Entry
func WithFields(fields Fields) *Entry {
	return log.WithFields(fields)
}

// WithField adds a single field to the Entry
func WithField(key string, value interface{}) *Entry {
	return log.WithField(key, value)
}

// Trace logs a message at level Trace on the global logger
func Trace(args ...interface{}) {
	log.Trace(args...)
}

// Tracef logs a formatted message at level Trace on the global logger
func Tracef(format string, args ...interface{}) {
	log.Tracef(format, args...)
}

// Debug logs a message at level Debug on the global logger
func Debug(args ...interface{}) {
	log.Debug(args...)
}

// Debugf logs a formatted message at level Debug on the global logger
func Debugf(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

// Info logs a message at level Info on the global logger
func Info(args ...interface{}) {
	log.Info(args...)
}

// Infof logs a formatted message at level Info on the global logger
func Infof(format string, args ...interface{}) {
	log.Infof(format, args...)
}

// Warn logs a message at level Warn on the global logger
func Warn(args ...interface{}) {
	log.Warn(args...)
}

// Warnf logs a formatted message at level Warn on the global logger
func Warnf(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

// Error logs a message at level Error on the global logger
func Error(args ...interface{}) {
	log.Error(args...)
}

// Errorf logs a formatted message at level Error on the global logger
func Errorf(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

// Panicf logs a formatted message at level Panic on the global logger
func Panicf(format string, args ...interface{}) {
	log.Panicf(format, args...)
}
