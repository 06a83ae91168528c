package main

import (
	"github.com/alecthomas/kong"

	"gofinances/internal/cli"
)

var app struct {
	Globals

	Show   showCmd   `cmd:"" help:"Print the dashboard."`
	Add    addCmd    `cmd:"" help:"Add a transaction."`
	Delete deleteCmd `cmd:"" help:"Delete a transaction by id."`
	Import importCmd `cmd:"" help:"Replace the stored transactions with a JSON file."`
	Export exportCmd `cmd:"" help:"Write the stored transactions as JSON."`
}

func main() {
	cli.LoadEnvFile()

	ctx := kong.Parse(&app,
		kong.Name("gofinances-cli"),
		kong.Description("Inspect and maintain the stored transaction list."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&app.Globals))
}
