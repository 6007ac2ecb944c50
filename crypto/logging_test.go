package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut := logrus.StandardLogger().Out
	prevLevel := logrus.GetLevel()
	logrus.SetOutput(&buf)
	logrus.SetLevel(logrus.DebugLevel)
	t.Cleanup(func() {
		logrus.SetOutput(prevOut)
		logrus.SetLevel(prevLevel)
	})
	return &buf
}

func TestNewComponentLogger_Fields(t *testing.T) {
	buf := captureLogs(t)

	NewComponentLogger("groupkey", "resolve").
		WithField("group_id", 42).
		WithFields(logrus.Fields{"kind": "admin"}).
		WithError(errors.New("boom"), "network", "fetch").
		Warn("rebuild failed")

	out := buf.String()
	for _, want := range []string{"package=groupkey", "function=resolve", "group_id=42", "kind=admin", "error=boom", "error_type=network", "operation=fetch", "rebuild failed"} {
		assert.Contains(t, out, want)
	}
}

func TestSecureFieldHash(t *testing.T) {
	secret := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	fields := SecureFieldHash(secret, "seed")

	assert.Len(t, fields["seed_fingerprint"], 8)
	assert.Equal(t, 10, fields["seed_size"])
	assert.NotContains(t, fields["seed_fingerprint"], "0102")
	assert.Equal(t, fields, SecureFieldHash(secret, "seed"))

	empty := SecureFieldHash(nil, "seed")
	assert.Equal(t, "none", empty["seed_fingerprint"])
	assert.Equal(t, 0, empty["seed_size"])
}
