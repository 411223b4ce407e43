package main

import (
	"context"
	"os"

	"expense-tracker/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	ctx, stop := cli.NotifyInterrupt(context.Background())
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}
