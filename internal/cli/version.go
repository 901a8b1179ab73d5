package cli

import (
	"fmt"
	"io"

	"github.com/R3E-Network/weatherinsight/internal/buildinfo"
)

// VersionCmd prints build information.
type VersionCmd struct{}

// Run executes the version command.
func (c *VersionCmd) Run(out io.Writer) error {
	_, err := fmt.Fprintln(out, buildinfo.String())
	return err
}
