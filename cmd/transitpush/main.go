package main

import "github.com/ogulcanaydogan/transit-alert-push/internal/cli"

func main() {
	cli.Execute()
}
