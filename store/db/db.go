// Package db provides the database driver factory.
package db

import (
	"github.com/pkg/errors"

	"github.com/castoldi/stash/internal/profile"
	"github.com/castoldi/stash/store"
	"github.com/castoldi/stash/store/db/postgres"
	"github.com/castoldi/stash/store/db/sqlite"
)

// NewDBDriver creates a new database driver based on the instance profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "postgres":
		return postgres.NewDB(profile)
	case "sqlite":
		return sqlite.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver: %s", profile.Driver)
	}
}
