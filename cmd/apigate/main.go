package main

import (
	"github.com/apigate/apigate/pkg/cli"
)

func main() {
	cli.Execute()
}
