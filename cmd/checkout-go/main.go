package main

import (
	"log"

	"github.com/clubifyhq/checkout-go/internal/application/startup"
)

func main() {
	if err := startup.Initialize(); err != nil {
		log.Fatalf("Startup failed: %v", err)
	}
}
