package cli

import (
	"fmt"
	"io"

	"github.com/R3E-Network/weatherinsight/internal/buildctx"
)

// CheckContextCmd verifies that .dockerignore keeps secrets out of a build and
// that every Dockerfile COPY source is part of it.
type CheckContextCmd struct {
	Dir string `arg:"" optional:"" default:"." help:"Build context directory." type:"existingdir"`
}

// Run reports leaked secret files and missing COPY sources and fails when
// there are any.
func (c *CheckContextCmd) Run(out io.Writer) error {
	report, err := buildctx.Check(c.Dir)
	if err != nil {
		return err
	}
	if report.OK() {
		fmt.Fprintf(out, "build context %s: no secret files\n", c.Dir)
		return nil
	}

	for _, path := range report.Leaked {
		fmt.Fprintf(out, "secret file in build context: %s\n", path)
	}
	for _, path := range report.Missing {
		fmt.Fprintf(out, "%s source missing from build context: %s\n", buildctx.Recipe, path)
	}
	if len(report.Leaked) > 0 {
		return fmt.Errorf("%d secret file(s) not excluded by %s", len(report.Leaked), buildctx.IgnoreFile)
	}
	return fmt.Errorf("%d %s source(s) missing from the build context", len(report.Missing), buildctx.Recipe)
}
