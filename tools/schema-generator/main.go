package main

import (
	"flag"
	"log"
	"os"

	"github.com/grovetools/kar/pkg/schema"
)

func main() {
	out := flag.String("o", "kar.schema.json", "output file")
	flag.Parse()

	data, err := schema.JSON()
	if err != nil {
		log.Fatalf("Error generating schema: %v", err)
	}

	// Write to the package root
	if err := os.WriteFile(*out, data, 0644); err != nil {
		log.Fatalf("Error writing schema file: %v", err)
	}

	log.Printf("Successfully generated kar schema at %s", *out)
}
