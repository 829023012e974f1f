package main

import "github.com/brk3/routines/cmd"

func main() {
	cmd.Execute()
}
