package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/YuitoSato/gosmartcast/smartcast"
)

func main() {
	singlechecker.Main(smartcast.Analyzer)
}
