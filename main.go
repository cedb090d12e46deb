package main

import (
	"github.com/multiwa/multiwa/cmd"
)

func main() {
	cmd.Execute()
}
