package postgres

import (
	"database/sql"
	"embed"
	stderrors "errors"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/alchemist/pkg/errors"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Migrator applies schema migrations. An empty dir uses the migrations
// compiled into the binary.
type Migrator struct {
	db     *sql.DB
	dir    string
	logger logging.Logger
}

// NewMigrator returns a Migrator for conn.
func NewMigrator(conn *Connection, dir string, log logging.Logger) *Migrator {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Migrator{db: conn.DB(), dir: dir, logger: log}
}

func (m *Migrator) instance() (*migrate.Migrate, error) {
	driver, err := migratepg.WithInstance(m.db, &migratepg.Config{})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to create migration driver")
	}
	if m.dir != "" {
		return migrate.NewWithDatabaseInstance("file://"+m.dir, "postgres", driver)
	}
	src, err := iofs.New(embeddedMigrations, "migrations")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to open embedded migrations")
	}
	return migrate.NewWithInstance("iofs", src, "postgres", driver)
}

// Up applies all pending migrations.
func (m *Migrator) Up() error {
	mg, err := m.instance()
	if err != nil {
		return err
	}
	if err := mg.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to run migrations")
	}
	version, dirty, err := mg.Version()
	if err != nil && !stderrors.Is(err, migrate.ErrNilVersion) {
		m.logger.Warn("Failed to read migration version", logging.Err(err))
	}
	m.logger.Info("Database migrations completed",
		logging.Int64("version", int64(version)),
		logging.Bool("dirty", dirty))
	return nil
}

// Down rolls back steps migrations.
func (m *Migrator) Down(steps int) error {
	if steps <= 0 {
		return errors.InvalidParam("steps must be greater than 0")
	}
	mg, err := m.instance()
	if err != nil {
		return err
	}
	if err := mg.Steps(-steps); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to roll back migrations")
	}
	return nil
}

// Version returns the applied version and dirty flag. Zero means none applied.
func (m *Migrator) Version() (uint, bool, error) {
	mg, err := m.instance()
	if err != nil {
		return 0, false, err
	}
	v, dirty, err := mg.Version()
	if stderrors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}
