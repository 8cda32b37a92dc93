package main

import (
	"os"

	"lecture-notes/pkg/cli"
	"lecture-notes/pkg/output"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		formatter := output.NewFormatter(os.Stderr)
		formatter.Error(err.Error())
		os.Exit(1)
	}
}
