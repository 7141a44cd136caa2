package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/materials-commons/mcupload/pkg/config"
	"github.com/materials-commons/mcupload/pkg/mcupload/client"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
)

const defaultEnvFile = "~/.mcupload.env"

var (
	serverURL string
	apiKey    string
	envFile   string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "mcupload",
	Short: "Upload folders to an mcuploadd server",
	Long: `mcupload sends a local folder to an mcuploadd server and shows the
structure of folders uploaded earlier. The server and API key come from
flags, the environment (MCUPLOAD_URL, MCUPLOAD_APIKEY) or ~/.mcupload.env.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "server url, eg http://localhost:1353")
	rootCmd.PersistentFlags().StringVarP(&apiKey, "apikey", "k", "", "API key to authenticate with")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", defaultEnvFile, "dotenv file with MCUPLOAD_URL and MCUPLOAD_APIKEY")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "request timeout")
}

// mustCreateClient fills in anything not given as a flag from the env file
// and the environment.
func mustCreateClient() *client.Client {
	path, err := homedir.Expand(envFile)
	if err != nil {
		log.Fatalf("Unable to expand %s: %s", envFile, err)
	}

	c := config.NewDotenvConfig("")
	if _, err := os.Stat(path); err == nil {
		if err := c.LoadFromPath(path); err != nil {
			log.Fatalf("Unable to load %s: %s", path, err)
		}
	}

	if serverURL == "" {
		serverURL = c.GetKeyWithDefault("MCUPLOAD_URL", "http://localhost:1353")
	}

	if apiKey == "" {
		apiKey = c.MustGetKey("MCUPLOAD_APIKEY")
	}

	return client.New(serverURL, apiKey, timeout)
}

func printJSON(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Unable to format response: %s", err)
	}

	fmt.Println(string(b))
}
