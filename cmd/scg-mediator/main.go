package main

import "github.com/next-trace/scg-mediator/internal/cli"

func main() {
	cli.Execute()
}
