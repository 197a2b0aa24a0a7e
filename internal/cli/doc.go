// Package cli implements the feedwarden command line.
//
//	feedwarden run      long-running poller, action listener and ops server
//	feedwarden tick     one poll/announce cycle, for cron-style scheduling
//	feedwarden state    print the persisted state
//	feedwarden version  print build information
package cli
