// SPDX-License-Identifier: MPL-2.0

package config

import (
	"reflect"
	"slices"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// These tests keep the Go json tags and the #Config CUE fields in step, so a
// renamed field cannot be silently dropped by the map merge.

func extractCUEFields(t *testing.T, val cue.Value) map[string]bool {
	t.Helper()

	fields := make(map[string]bool)
	iter, err := val.Fields(cue.Definitions(false), cue.Optional(true))
	if err != nil {
		t.Fatalf("failed to iterate CUE fields: %v", err)
	}
	for iter.Next() {
		sel := iter.Selector()
		if sel.LabelType().IsHidden() || sel.IsDefinition() {
			continue
		}
		fields[strings.TrimSuffix(sel.String(), "?")] = iter.IsOptional()
	}
	return fields
}

func extractGoJSONTags(t *testing.T, typ reflect.Type) map[string]bool {
	t.Helper()

	fields := make(map[string]bool)
	for i := range typ.NumField() {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		parts := strings.Split(field.Tag.Get("json"), ",")
		if parts[0] == "" || parts[0] == "-" {
			continue
		}
		fields[parts[0]] = slices.Contains(parts[1:], "omitempty")
	}
	return fields
}

func assertFieldsSync(t *testing.T, name string, cueFields, goFields map[string]bool) {
	t.Helper()

	for field := range cueFields {
		if _, ok := goFields[field]; !ok {
			t.Errorf("[%s] CUE field %q has no Go json tag", name, field)
		}
	}
	for field := range goFields {
		if _, ok := cueFields[field]; !ok {
			t.Errorf("[%s] Go json tag %q has no CUE field", name, field)
		}
	}
}

func TestSchemaSync(t *testing.T) {
	t.Parallel()

	schema := cuecontext.New().CompileBytes(configSchema)
	if schema.Err() != nil {
		t.Fatalf("failed to compile schema: %v", schema.Err())
	}

	tests := []struct {
		def string
		typ reflect.Type
	}{
		{"#Config", reflect.TypeFor[Config]()},
		{"#PlmcConfig", reflect.TypeFor[PlmcConfig]()},
		{"#ReformatConfig", reflect.TypeFor[ReformatConfig]()},
		{"#PathsConfig", reflect.TypeFor[PathsConfig]()},
		{"#DefaultsConfig", reflect.TypeFor[DefaultsConfig]()},
		{"#ServerConfig", reflect.TypeFor[ServerConfig]()},
		{"#LogConfig", reflect.TypeFor[LogConfig]()},
	}

	for _, tt := range tests {
		t.Run(tt.def, func(t *testing.T) {
			t.Parallel()

			def := schema.LookupPath(cue.ParsePath(tt.def))
			if def.Err() != nil {
				t.Fatalf("definition %s not found: %v", tt.def, def.Err())
			}
			assertFieldsSync(t, tt.def, extractCUEFields(t, def), extractGoJSONTags(t, tt.typ))
		})
	}
}

func TestGeneratedCUEValidates(t *testing.T) {
	t.Parallel()

	ctx := cuecontext.New()
	schema := ctx.CompileBytes(configSchema).LookupPath(cue.ParsePath("#Config"))
	doc := ctx.CompileString(GenerateCUE(DefaultConfig()))
	if doc.Err() != nil {
		t.Fatalf("generated CUE does not compile: %v", doc.Err())
	}
	if err := schema.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		t.Errorf("generated CUE violates #Config: %v", err)
	}
}
