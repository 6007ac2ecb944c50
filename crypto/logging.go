package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/sirupsen/logrus"
)

// LoggerHelper accumulates logrus fields for one operation so that its
// progress and failure lines share the same context.
type LoggerHelper struct {
	fields logrus.Fields
}

// NewComponentLogger starts a logger tagged with package and function.
func NewComponentLogger(pkg, function string) *LoggerHelper {
	return &LoggerHelper{fields: logrus.Fields{
		"package":  pkg,
		"function": function,
	}}
}

// WithField adds one field.
func (l *LoggerHelper) WithField(key string, value any) *LoggerHelper {
	l.fields[key] = value
	return l
}

// WithFields adds every field in fields.
func (l *LoggerHelper) WithFields(fields logrus.Fields) *LoggerHelper {
	for k, v := range fields {
		l.fields[k] = v
	}
	return l
}

// WithError records err with a coarse error class and the failing step.
func (l *LoggerHelper) WithError(err error, errorType, operation string) *LoggerHelper {
	l.fields["error"] = err.Error()
	l.fields["error_type"] = errorType
	l.fields["operation"] = operation
	return l
}

func (l *LoggerHelper) Debug(message string) { logrus.WithFields(l.fields).Debug(message) }
func (l *LoggerHelper) Info(message string)  { logrus.WithFields(l.fields).Info(message) }
func (l *LoggerHelper) Warn(message string)  { logrus.WithFields(l.fields).Warn(message) }

// SecureFieldHash describes secret material for logs without revealing it:
// a short SHA-256 fingerprint and the length.
func SecureFieldHash(data []byte, name string) logrus.Fields {
	fingerprint := "none"
	if len(data) > 0 {
		sum := sha256.Sum256(data)
		fingerprint = hex.EncodeToString(sum[:4])
	}
	return logrus.Fields{
		name + "_fingerprint": fingerprint,
		name + "_size":        len(data),
	}
}
