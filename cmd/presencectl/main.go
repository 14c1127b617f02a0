// Command presencectl runs operator tasks against the School of Presence
// database and payment gateway.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/conf/v3"
	"github.com/irsalhamdi/school-of-presence/config"
	"github.com/irsalhamdi/school-of-presence/database"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var build = "develop"

func main() {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	root := &cobra.Command{
		Use:           "presencectl",
		Short:         "Operator tasks for the School of Presence backend",
		Version:       build,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(migrateCmd(log))
	root.AddCommand(reconcileCmd(log))
	root.AddCommand(rateCmd(log))

	if err := root.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

// loadConfig reads configuration from the environment only; the command line
// belongs to cobra.
func loadConfig() (config.Config, error) {
	args := os.Args
	os.Args = os.Args[:1]
	defer func() { os.Args = args }()

	var cfg config.Config
	if _, err := conf.Parse("PRESENCE", &cfg); err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			return cfg, nil
		}
		return config.Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

func openDB(cfg config.Config) (*sqlx.DB, error) {
	db, err := database.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}
	return db, nil
}
