package cmd

import (
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/materials-commons/mcupload/pkg/mcdb"
	"github.com/materials-commons/mcupload/pkg/mcdb/mcmodel"
	"github.com/materials-commons/mcupload/pkg/mcdb/stor"
	"github.com/materials-commons/mcupload/pkg/mcupload/webapi/apimiddleware"
	"github.com/spf13/cobra"
)

var (
	userName      string
	tokenValidity time.Duration
)

var createUserCmd = &cobra.Command{
	Use:   "create-user <email>",
	Short: "Create a user and print its API key",
	Long: `Creates a user that can upload. The API key is printed once. When
JWT_SECRET is set a bearer token valid for --token-validity is printed too.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := loadConfig()
		db := mcdb.MustConnectToDB(c)
		if err := mcdb.RunMigrations(db); err != nil {
			log.Fatalf("Unable to migrate database: %s", err)
		}

		name := userName
		if name == "" {
			name = args[0]
		}

		user, err := stor.NewGormUserStor(db).CreateUser(&mcmodel.User{Name: name, Email: args[0]})
		if err != nil {
			log.Fatalf("Unable to create user %s: %s", args[0], err)
		}

		fmt.Printf("User %d (%s) created\n", user.ID, user.Email)
		fmt.Printf("API key: %s\n", user.ApiToken)

		secret := c.GetKey("JWT_SECRET")
		if secret == "" {
			return
		}

		token, err := apimiddleware.GenerateToken(user.ID, []byte(secret), tokenValidity)
		if err != nil {
			log.Fatalf("Unable to generate token: %s", err)
		}

		fmt.Printf("Bearer token: %s\n", token)
	},
}

func init() {
	rootCmd.AddCommand(createUserCmd)
	createUserCmd.Flags().StringVarP(&userName, "name", "n", "", "display name, defaults to the email")
	createUserCmd.Flags().DurationVar(&tokenValidity, "token-validity", 24*time.Hour, "how long the bearer token is valid")
}
