package main

import (
	"os"

	"weather-inference/pkg/log"
)

func main() {
	defer log.Sync()

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
