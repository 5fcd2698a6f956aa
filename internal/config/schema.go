package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://brick.local/schema/brick.config.json"

var (
	schemaOnce     sync.Once
	schemaErr      error
	compiledSchema *jsonschema.Schema
)

// loadSchema compiles the embedded schema once per process.
func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = eris.Wrap(err, "load configuration schema")
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = eris.Wrap(schemaErr, "compile configuration schema")
		}
	})
	return compiledSchema, schemaErr
}

// validateSchema checks a JSON document against the project file schema.
func validateSchema(jsonData []byte) error {
	sch, err := loadSchema()
	if err != nil {
		return err
	}

	var document any
	if err := json.Unmarshal(jsonData, &document); err != nil {
		return eris.Wrap(err, "decode json")
	}
	return sch.Validate(document)
}
