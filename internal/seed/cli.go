package seed

import "os"

// ShowHelp prints usage information for the seeder.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`skillmatch seeder
=================

Creates random users with teaching and learning skills and sessions through
the HTTP API, waits for tagging to finish, then checks that suggestions never
include the requesting user and never repeat a candidate.

Usage:
  go run ./cmd/seed [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -users int
        Number of users to generate (default 20)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -wait duration
        Maximum time to wait for tagging to finish (default 2m)
  -seed uint
        Random seed, 0 for a clock-based seed (default 0)
  -log-format string
        Log format, text or json (default "text")
  -verbose
        Log every failed request
  -help
        Show this help message
`)
}
