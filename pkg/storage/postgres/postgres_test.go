package postgres_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ecofes/lubebot/pkg/storage"
	"github.com/ecofes/lubebot/pkg/storage/postgres"
	"github.com/ecofes/lubebot/pkg/storage/storagetest"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("LUBEBOT_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("LUBEBOT_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ = Describe("Driver", func() {
	storagetest.DescribeDriver(func() storage.Driver {
		ctx := context.Background()
		driver, err := postgres.NewDriver(ctx, connStr())
		Expect(err).NotTo(HaveOccurred())

		// Clean all records before each test for isolation.
		Expect(driver.Client.Exec(ctx, "TRUNCATE user_queries, leads RESTART IDENTITY", []any{}, nil)).To(Succeed())
		return driver
	})
})
