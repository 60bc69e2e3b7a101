package main

import (
	"github.com/tansive/tablelake/internal/cli"
)

func main() {
	cli.Execute()
}
