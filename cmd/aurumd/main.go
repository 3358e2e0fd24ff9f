package main

import "github.com/aurumchain/go-aurum/internal/cli"

func main() {
	cli.Execute()
}
