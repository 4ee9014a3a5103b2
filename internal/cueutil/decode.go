// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Result holds a decoded document and the unified CUE value it came from.
type Result[T any] struct {
	Value   *T
	Unified cue.Value
}

// Decode unifies data with the schema definition at defPath (e.g. "#Config")
// and decodes the result into T.
func Decode[T any](schema, data []byte, defPath string, opts ...Option) (*Result[T], error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	filename := options.filename
	if filename == "" {
		filename = "<input>"
	}
	if err := CheckFileSize(int64(len(data)), options.maxFileSize, filename); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}
	root := schemaValue.LookupPath(cue.ParsePath(defPath))
	if root.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", defPath, root.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(filename))
	if userValue.Err() != nil {
		return nil, FormatError(userValue.Err(), filename)
	}

	unified := root.Unify(userValue)

	var validateOpts []cue.Option
	if options.concrete {
		validateOpts = append(validateOpts, cue.Concrete(true))
	}
	if err := unified.Validate(validateOpts...); err != nil {
		return nil, FormatError(err, filename)
	}

	var out T
	if err := unified.Decode(&out); err != nil {
		return nil, FormatError(err, filename)
	}
	return &Result[T]{Value: &out, Unified: unified}, nil
}

// DecodeFile reads path and decodes it with Decode. The file size is checked
// before the file is read.
func DecodeFile[T any](schema []byte, path, defPath string, opts ...Option) (*Result[T], error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if err := CheckFileSize(info.Size(), options.maxFileSize, path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode[T](schema, data, defPath, append(opts, WithFilename(path))...)
}
