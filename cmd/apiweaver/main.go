// Command apiweaver turns the property table of a vendor documentation page
// into an OpenAPI 3.1 object schema.
//
// Usage:
//
//	apiweaver https://docs.example.com/api/users -o users.yaml
//
// Amend an existing document:
//
//	apiweaver https://docs.example.com/api/projects -e api.yaml -o api.yaml
//
// Debug (print text for selector matches of a saved page):
//
//	apiweaver - --selector "h2[id]" --text < page.html
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"apiweaver/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, http.DefaultClient)
	stop()
	os.Exit(code)
}
