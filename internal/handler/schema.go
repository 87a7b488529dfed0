package handler

import (
	"bytes"
	"embed"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	credentialsSchema = mustCompile("credentials.json")
	taskCreateSchema  = mustCompile("task_create.json")
	taskUpdateSchema  = mustCompile("task_update.json")
)

func mustCompile(name string) *jsonschema.Schema {
	data, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("reading schema %s: %v", name, err))
	}

	url := "mem://schemas/" + name
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
		panic(fmt.Sprintf("loading schema %s: %v", name, err))
	}
	return compiler.MustCompile(url)
}

// schemaMessage flattens a validation error to its first leaf cause, e.g.
// "title: expected string, but got number".
func schemaMessage(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}

	path := strings.TrimPrefix(strings.TrimPrefix(ve.InstanceLocation, "#"), "/")
	if path == "" {
		return ve.Message
	}
	return strings.ReplaceAll(path, "/", ".") + ": " + ve.Message
}
