// Package cli implements the weatherinsight command line.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/R3E-Network/weatherinsight/internal/buildinfo"
)

// RootCmd is the top-level command.
type RootCmd struct {
	EnvFile string `help:"Environment file loaded before reading the environment." default:".env" placeholder:"PATH"`
	Config  string `short:"c" help:"YAML configuration overlay (overrides CONFIG_FILE)." placeholder:"PATH"`

	Serve        ServeCmd        `cmd:"" default:"withargs" help:"Run the HTTP service (default)."`
	CheckContext CheckContextCmd `cmd:"" name:"check-context" help:"Fail when a secret file would be sent with the build context."`
	Version      VersionCmd      `cmd:"" help:"Show version information."`
}

// Execute parses args and runs the selected command. Output goes to out.
func Execute(ctx context.Context, args []string, out io.Writer) error {
	if out == nil {
		out = os.Stdout
	}

	var root RootCmd
	parser, err := kong.New(&root,
		kong.Name(buildinfo.Name),
		kong.Description("Answers natural-language weather questions over HTTP."),
		kong.UsageOnError(),
		kong.Writers(out, os.Stderr),
		kong.Vars{"version": buildinfo.String()},
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.BindTo(out, (*io.Writer)(nil)),
		kong.Bind(&root),
	)
	if err != nil {
		return err
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kctx.Run()
}
