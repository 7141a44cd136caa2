package cmd

import (
	"context"
	"fmt"

	"github.com/apex/log"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
)

var showJSON bool

var pushCmd = &cobra.Command{
	Use:   "push <dir>",
	Short: "Upload a folder",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir, err := homedir.Expand(args[0])
		if err != nil {
			log.Fatalf("Unable to expand %s: %s", args[0], err)
		}

		resp, err := mustCreateClient().UploadFolder(context.Background(), dir)
		if err != nil {
			log.Fatalf("Upload failed: %s", err)
		}

		if showJSON {
			printJSON(resp)
			return
		}

		fmt.Println(resp.Message)
		fmt.Printf("Upload ID: %s\n", resp.UploadID)
		for _, f := range resp.UploadedFiles {
			fmt.Printf("  %-50s %10d  %s\n", f.RelativePath, f.Size, f.URL)
		}
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)
	pushCmd.Flags().BoolVar(&showJSON, "json", false, "print the full server response")
}
