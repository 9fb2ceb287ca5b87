// Package main provides the entry point for the orderdesk CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/orderdesk/cmd/orderdesk/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
