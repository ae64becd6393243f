package main

import "github.com/sw33tLie/protexsync/cmd"

func main() {
	cmd.Execute()
}
