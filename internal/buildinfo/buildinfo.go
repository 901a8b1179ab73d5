// Package buildinfo holds version metadata injected at link time.
package buildinfo

import "fmt"

// Name is the binary and service name.
const Name = "weatherinsight"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func String() string {
	return fmt.Sprintf("%s %s (commit=%s, date=%s)", Name, Version, Commit, Date)
}
