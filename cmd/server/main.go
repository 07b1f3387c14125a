package main

import (
	"context"
	"log"

	"deepwarren/server/internal/app"
)

func main() {
	if err := app.Run(context.Background(), app.DefaultConfig()); err != nil {
		log.Fatalf("%v", err)
	}
}
