package main

import (
	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Globals

	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Serve    ServeCmd         `cmd:"" help:"Serve the blackjack HTTP and websocket API"`
	Play     PlayCmd          `cmd:"" help:"Play at a local table in the terminal"`
	Simulate SimulateCmd      `cmd:"" help:"Simulate sessions played by the basic strategy"`
}

func main() {
	// A missing .env file is fine
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("blackjack"),
		kong.Description("Multiplayer blackjack tables over HTTP, websockets and the terminal"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
