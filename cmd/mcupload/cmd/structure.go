package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/apex/log"
	"github.com/materials-commons/mcupload/pkg/mcupload/upload"
	"github.com/spf13/cobra"
)

var structureJSON bool

var structureCmd = &cobra.Command{
	Use:   "structure <uploadId>",
	Short: "Show the folder structure of an upload",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := mustCreateClient().GetStructure(context.Background(), args[0])
		if err != nil {
			log.Fatalf("Unable to get structure for %s: %s", args[0], err)
		}

		if structureJSON {
			printJSON(resp)
			return
		}

		fmt.Printf("%s: %d files, %d bytes\n", resp.FolderName, resp.TotalFiles, resp.TotalSize)
		for _, child := range resp.Structure.Children {
			printNode(child, 1)
		}
	},
}

func printNode(n *upload.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	if n.Type == upload.NodeTypeFolder {
		fmt.Printf("%s%s/\n", indent, n.Name)
		for _, child := range n.Children {
			printNode(child, depth+1)
		}
		return
	}

	fmt.Printf("%s%s (%d bytes, %s)\n", indent, n.Name, n.Size, n.MimeType)
}

func init() {
	rootCmd.AddCommand(structureCmd)
	structureCmd.Flags().BoolVar(&structureJSON, "json", false, "print the full server response")
}
