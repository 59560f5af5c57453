package main

import (
	"os"

	"blockdb/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
