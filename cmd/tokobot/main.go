package main

import (
	"log"

	"tokobot/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatalf("tokobot failed: %v", err)
	}
}
