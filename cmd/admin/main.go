package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/newsletter/internal/admin/cli"
)

func main() {
	app := cli.NewApp(os.Stdin, os.Stdout)
	if err := app.Execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
