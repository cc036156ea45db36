package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/circulation/internal/application/circulation"
	"github.com/xiebiao/circulation/internal/domain/catalog"
	"github.com/xiebiao/circulation/internal/infrastructure/config"
)

func testConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom("")
	require.NoError(t, err)
	cfg.Server.Mode = "release"
	cfg.Database.Driver = driver
	cfg.Database.Path = filepath.Join(t.TempDir(), "library.db")
	cfg.Database.MaxOpenConns = 4
	return cfg
}

func TestOpen(t *testing.T) {
	for _, driver := range []string{config.DriverMemory, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			s, err := Open(testConfig(t, driver))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })

			assert.Equal(t, driver, s.Driver())
			require.NoError(t, s.Migrate())
			require.NoError(t, s.Ping(ctx))

			b := &catalog.Book{ISBN: "1234567890123", Title: "Go", PublishedDate: catalog.DefaultPublishedDate, TotalQuantity: 1, AvailableQuantity: 1}
			require.NoError(t, s.Books.Create(ctx, b))

			checkout := circulation.NewCheckoutUseCase(s.Books, s.Loans, s.TxManager, nil, circulation.Config{})
			_, err = checkout.Execute(ctx, circulation.CheckoutRequest{
				ISBN: "1234567890123", FirstName: "John", LastName: "Doe", Email: "john@example.com",
			})
			require.NoError(t, err)

			got, err := s.Books.FindByID(ctx, b.ID)
			require.NoError(t, err)
			assert.Equal(t, 0, got.AvailableQuantity)
		})
	}
}
