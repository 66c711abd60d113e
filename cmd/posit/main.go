// Copyright 2020 Aleksandr Demakin. All rights reserved.

// Command posit converts, tabulates, evaluates and stores posit numbers.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/avdva/posit"
	"github.com/avdva/posit/internal/logging"
)

// Globals are the flags shared by all commands.
type Globals struct {
	NBits     uint   `name:"nbits" short:"n" default:"32" env:"POSIT_NBITS" help:"Posit width in bits (2..64)."`
	ES        uint   `name:"es" short:"e" default:"2" env:"POSIT_ES" help:"Maximum number of exponent bits."`
	Mode      string `name:"mode" default:"silent" enum:"silent,trap" env:"POSIT_MODE" help:"Exception mode: silent or trap."`
	LogLevel  string `name:"log-level" default:"warn" enum:"debug,info,warn,error" env:"POSIT_LOG_LEVEL" help:"Log level."`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log format."`

	out io.Writer    `kong:"-"`
	log *slog.Logger `kong:"-"`
}

// Config returns the posit configuration selected by the flags.
func (g *Globals) Config() (posit.Config, error) {
	mode, err := posit.ParseMode(g.Mode)
	if err != nil {
		return posit.Config{}, err
	}
	return posit.NewConfig(g.NBits, g.ES, mode)
}

func (g *Globals) printf(format string, args ...any) {
	fmt.Fprintf(g.out, format, args...)
}

// CLI defines the command-line interface of posit.
type CLI struct {
	Globals `embed:""`

	Info    InfoCmd    `cmd:"" help:"Print the limits of the configuration and its quire."`
	Convert ConvertCmd `cmd:"" help:"Convert numbers to posits and show their encodings."`
	Table   TableCmd   `cmd:"" help:"List every encoding of a configuration of up to 12 bits."`
	Eval    EvalCmd    `cmd:"" help:"Evaluate an expression in posit arithmetic."`
	Dot     DotCmd     `cmd:"" help:"Compute a fused dot product."`
	Pack    PackCmd    `cmd:"" help:"Store numbers in a posit data file."`
	Unpack  UnpackCmd  `cmd:"" help:"Print the contents of a posit data file."`
}

func run(args []string, stdout, stderr io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("posit"),
		kong.Description("Posit arithmetic toolkit"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return err
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cli.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(cli.LogFormat)
	if err != nil {
		return err
	}
	cli.out = stdout
	cli.log = logging.InitLogger(stderr, level, format)
	cli.log.Debug("starting", "command", ctx.Command(), "nbits", cli.NBits, "es", cli.ES, "mode", cli.Mode)
	return ctx.Run(&cli.Globals)
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "posit: %v\n", err)
		os.Exit(1)
	}
}
