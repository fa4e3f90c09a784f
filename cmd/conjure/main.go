package main

import "github.com/santiagomed/conjure/cli"

func main() {
	cli.Execute()
}
