package main

import "github.com/sqrrr/gamehub/internal/cli"

func main() {
	cli.Execute()
}
