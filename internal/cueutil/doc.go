// SPDX-License-Identifier: MPL-2.0

// Package cueutil decodes CUE documents against embedded schemas.
//
// Both the harness configuration (config.cue) and analysis request files
// (run --request) go through the same flow: compile the schema, compile the
// user document, unify against a root definition, validate, decode.
//
//	//go:embed request_schema.cue
//	var requestSchema []byte
//
//	res, err := cueutil.DecodeFile[RequestFile](requestSchema, path, "#Request")
//	if err != nil {
//	    return err // carries the CUE path of the offending field
//	}
package cueutil
