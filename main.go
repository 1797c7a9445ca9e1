package main

import "github.com/zinc-sig/tally/cmd"

func main() {
	cmd.Execute()
}
