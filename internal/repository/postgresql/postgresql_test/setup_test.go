package postgresql_test

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/company"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/employee"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/database"
	"github.com/cmlabs-hris/presence-payroll/internal/repository/postgresql"
	"github.com/cmlabs-hris/presence-payroll/migrations"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

var (
	migrateOnce sync.Once
	migrateErr  error
)

// testDB connects to TEST_DATABASE_URL, applies migrations once and empties every table.
// Tests are skipped when the variable is unset.
func testDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	migrateOnce.Do(func() {
		var sqlDB *sql.DB
		sqlDB, migrateErr = sql.Open("postgres", dsn)
		if migrateErr != nil {
			return
		}
		defer sqlDB.Close()

		goose.SetBaseFS(migrations.FS)
		if migrateErr = goose.SetDialect("postgres"); migrateErr != nil {
			return
		}
		migrateErr = goose.Up(sqlDB, ".")
	})
	require.NoError(t, migrateErr)

	ctx := context.Background()
	db, err := database.NewPostgreSQLDB(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = db.Exec(ctx, "TRUNCATE TABLE companies CASCADE")
	require.NoError(t, err)

	return db
}

// seedEmployee creates a company with one active employee.
func seedEmployee(t *testing.T, db *database.DB) (company.Company, employee.Employee) {
	t.Helper()
	ctx := context.Background()

	lat, lng := 6.5244, 3.3792
	c, err := postgresql.NewCompanyRepository(db).Create(ctx, company.Company{
		Name:         "Greenfield Academy",
		Username:     "greenfield",
		Latitude:     &lat,
		Longitude:    &lng,
		RadiusMeters: 100,
		Timezone:     "Africa/Lagos",
		LateCutoff:   "08:00",
	})
	require.NoError(t, err)

	e, err := postgresql.NewEmployeeRepository(db).Create(ctx, employee.Employee{
		CompanyID:        c.ID,
		EmployeeCode:     "T-001",
		FullName:         "Ada Obi",
		EmploymentStatus: employee.EmploymentStatusActive,
		HireDate:         time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	return c, e
}
