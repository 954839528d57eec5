package main

import "github.com/utof/debtds/internal/cli"

func main() {
	cli.Execute()
}
