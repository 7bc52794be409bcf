package db

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/PheelaV/kr-notebook-sub000/internal/profile"
	"github.com/PheelaV/kr-notebook-sub000/store"
	"github.com/PheelaV/kr-notebook-sub000/store/db/postgres"
	"github.com/PheelaV/kr-notebook-sub000/store/db/sqlite"
)

var (
	openMu  sync.Mutex
	handles = map[string]store.Driver{}
)

// NewDBDriver creates a db driver based on the profile. Opening the same DSN
// twice returns the handle from the first open instead of racing a second
// connection against it.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	openMu.Lock()
	defer openMu.Unlock()

	key := profile.Driver + "|" + profile.DSN
	if driver, ok := handles[key]; ok {
		return driver, nil
	}

	var driver store.Driver
	var err error
	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.New("unknown db driver: only 'sqlite' and 'postgres' are supported")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}

	handles[key] = driver
	return driver, nil
}
