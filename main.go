package main

import (
	"github.com/kkokay07/K-Sites/cmd"
)

func main() {
	cmd.Execute() // initialize cobra commands
}
