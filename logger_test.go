package mongostore

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestZerologLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologLogger(zerolog.New(&buf))

	l.Info("index created", "saga_type", "OrderSaga", "path", "CustomerID")

	out := buf.String()
	assert.Contains(t, out, "index created")
	assert.Contains(t, out, "OrderSaga")
	assert.Contains(t, out, "CustomerID")
}

func TestNopLoggerDiscardsEverything(t *testing.T) {
	assert.NotPanics(t, func() {
		NopLogger.Info("anything", "k", "v")
		NopLogger.Warn("anything")
	})
}
