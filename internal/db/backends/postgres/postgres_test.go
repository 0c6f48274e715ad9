package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/asocial/asocial-backend/internal/db/dbtest"
	"github.com/asocial/asocial-backend/internal/db/interfaces"
	"github.com/stretchr/testify/require"
)

func TestConformance(t *testing.T) {
	dsn := os.Getenv("ASOCIAL_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ASOCIAL_TEST_POSTGRES_DSN not set")
	}

	dbtest.RunConformanceTests(t, func(t *testing.T) interfaces.Database {
		db := NewDatabase(dsn, nil)
		require.NoError(t, db.Connect(context.Background()))
		t.Cleanup(func() { _ = db.Disconnect(context.Background()) })
		return db
	})
}
