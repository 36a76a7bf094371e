package main

import "github.com/sheldonkwok/dialga/internal/cli"

func main() {
	cli.Execute()
}
