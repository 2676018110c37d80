package database

import (
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestConfigDSN(t *testing.T) {
	is := is.New(t)

	cfg := Config("lib", "s3cret", "db", "3306", "circulation")
	dsn := cfg.FormatDSN()

	is.True(strings.HasPrefix(dsn, "lib:s3cret@tcp(db:3306)/circulation?"))
	is.True(strings.Contains(dsn, "parseTime=true"))
	is.Equal(cfg.Loc, time.UTC)
	is.True(strings.Contains(dsn, "charset=utf8mb4"))
}

func TestMigrationsArePaired(t *testing.T) {
	is := is.New(t)

	ups, err := fs.Glob(migrationFS, "migrations/*.up.sql")
	is.NoErr(err)
	downs, err := fs.Glob(migrationFS, "migrations/*.down.sql")
	is.NoErr(err)

	is.True(len(ups) > 0)
	is.Equal(len(ups), len(downs))
	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		_, err := fs.Stat(migrationFS, down)
		is.NoErr(err) // every up migration has a down
	}
}
