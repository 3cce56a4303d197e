package main

import (
	"log"

	"github.com/apigate/apigate/pkg/daemon"
)

func main() {
	if err := daemon.Serve(); err != nil {
		log.Fatal(err)
	}
}
