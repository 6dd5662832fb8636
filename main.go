package main

import (
	"log"

	"sentinel-desk/core/appbootstrap"
)

func main() {
	if err := appbootstrap.Run(); err != nil {
		log.Fatalf("sentinel-desk: %v", err)
	}
}
