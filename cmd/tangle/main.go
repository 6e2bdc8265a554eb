package main

import (
	"tangle/internal/cmd"
)

func main() {
	cmd.Run()
}
