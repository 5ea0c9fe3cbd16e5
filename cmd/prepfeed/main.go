package main

import "prepfeed/internal/cmd"

func main() {
	cmd.Run()
}
