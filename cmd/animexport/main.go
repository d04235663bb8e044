// Command animexport renders a procedural animation to numbered image
// files.
//
// Usage:
//
//	animexport render out/walk_ --suffix=.png --length=48 --hold=2
//	animexport formats
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
)

var Version = "dev"

type CLI struct {
	LogLevel string           `help:"Log level (debug, info, warn, error)" enum:"debug,info,warn,error" default:"warn" env:"ANIMEXPORT_LOG_LEVEL"`
	Version  kong.VersionFlag `help:"Print version and exit"`

	Render  RenderCmd  `cmd:"" help:"Render the animation to numbered files"`
	Formats FormatsCmd `cmd:"" help:"List supported output formats"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("animexport"),
		kong.Description("Export animation frames as numbered image files."),
		kong.Vars{"version": Version},
		kong.UsageOnError(),
	)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctx.BindTo(sigCtx, (*context.Context)(nil))
	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
