package main

import (
	"os"

	"github.com/ridge/shale/batchcopy"
)

func main() {
	batchcopy.Main(os.Args)
}
