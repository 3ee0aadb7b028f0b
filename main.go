package main

import "github.com/mpapenbr/racesim-core-go/cmd"

func main() {
	cmd.Execute()
}
