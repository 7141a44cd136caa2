package main

import "github.com/materials-commons/mcupload/cmd/mcupload/cmd"

func main() {
	cmd.Execute()
}
