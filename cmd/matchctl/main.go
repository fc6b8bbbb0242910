// Command matchctl runs the matching engine from the command line: scoring a
// résumé against a job description, extracting keywords and skills, and
// indexing or querying an owner's profile against a local vector store.
//
// Usage:
//
//	matchctl score --resume resume.txt --job job.txt
//	matchctl index resume --owner 42 --file resume.txt
//	matchctl context --owner 42 "distributed systems"
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
