package main

import (
	"github.com/pinpt/powerbi-metadata/cmd"
)

func main() {
	cmd.Execute()
}
