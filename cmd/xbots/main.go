// xbots runs the daily date-fact bots for X: fortune, nanal and
// weatherfairy.
//
// Usage:
//
//	xbots serve [--no-scheduler]
//	xbots run <bot>... [--dry-run] [--force] [--preview]
//	xbots fortune [--date YYYY-MM-DD]
//	xbots history [--limit N] [--markdown]
//	xbots trigger <job> --url <server> [--dry-run] [--force]
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
