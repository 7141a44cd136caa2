package cmd

import (
	"github.com/apex/log"
	"github.com/materials-commons/mcupload/pkg/mcdb"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	Run: func(cmd *cobra.Command, args []string) {
		db := mcdb.MustConnectToDB(loadConfig())
		if err := mcdb.RunMigrations(db); err != nil {
			log.Fatalf("Migration failed: %s", err)
		}

		log.Infof("Database migrated")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
