//go:build ignore

package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"deepwarren/server/tiles/catalog"
)

// Standalone generator kept alongside the package for `go run`. The
// supported entrypoint is tiles/catalog/cmd/schema.
func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "output path for the JSON schema")
	flag.Parse()

	if outPath == "" {
		log.Fatal("schema_generate: missing -out path")
	}

	reflector := jsonschema.Reflector{AllowAdditionalProperties: true}
	schema := reflector.Reflect(new(catalog.FileTable))
	schema.Title = "Deepwarren Tile Table"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		log.Fatalf("schema_generate: marshal schema: %v", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		log.Fatalf("schema_generate: create output dir: %v", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		log.Fatalf("schema_generate: write schema: %v", err)
	}
}
