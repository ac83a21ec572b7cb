package main

import "github.com/NESSBZID/bncho/internal/cli"

func main() {
	cli.Execute()
}
