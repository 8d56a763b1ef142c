package main

import "github.com/fundme/cli"

func main() {
	cli.Execute()
}
