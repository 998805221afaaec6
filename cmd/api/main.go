package main

import (
	"os"

	"github.com/weissv/olymp-pay/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
