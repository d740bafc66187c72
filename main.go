// Copyright (c) 2025 the vmlink authors
// vmlink - remote VM operations over chat
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for vmlink.
//
// Usage:
//
//	go run . [flags]
//	./vmlink [flags]
//
// This starts the chat loop. See --help for options.
package main

import (
	"log"
	"os"

	"vmlink/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Printf("vmlink error: %v", err)
		os.Exit(1)
	}
}
