package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// mongoURI points at a local, disposable MongoDB instance used by the
// integration suites below. Override with MONGOSTORE_TEST_URI to point at a
// different instance.
const defaultMongoURI = "mongodb://localhost:27017"

func mongoURI() string {
	if v := os.Getenv("MONGOSTORE_TEST_URI"); v != "" {
		return v
	}
	return defaultMongoURI
}

// skipShort skips integration tests that require a reachable MongoDB
// instance when `go test -short` is used.
func skipShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in -short mode")
	}
}

// newTestClient opens a Client against a freshly named database and
// registers cleanup to drop it and disconnect when the test completes.
func newTestClient(t *testing.T, dbName string) *Client {
	t.Helper()
	c, err := New(&Config{URI: mongoURI(), Database: dbName})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, c.Open(ctx))
	require.NoError(t, c.Ready(ctx))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = c.Destroy(ctx)
		_ = c.Close(ctx)
	})
	return c
}
