package main

import (
	"os"

	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
