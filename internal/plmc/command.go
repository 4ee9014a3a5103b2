// SPDX-License-Identifier: MPL-2.0

package plmc

import (
	"fmt"
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/shell"
	"mvdan.cc/sh/v3/syntax"
)

// Command is a fully resolved invocation: Path is executed with Args.
// With a launcher, Path is the launcher's first word and the plmc binary
// appears inside Args.
type Command struct {
	Path string
	Args []string
	// Outputs are the files the invocation was asked to write.
	Outputs ExpectedOutputs
}

// BuildCommand maps r onto plmc's command line. The flag order is fixed so
// that equal requests always produce byte-identical argv:
//
//	-o <params> -c <couplings> -f <focus> -le <λe> -lh <λh> -m <iters> -t <θ> [-g] <alignment>
//
// launcher words, if any, are placed before binary.
func BuildCommand(binary string, r Request, launcher ...string) Command {
	out := r.Outputs()
	h := r.Hyperparameters

	args := make([]string, 0, len(launcher)+18)
	args = append(args, launcher...)
	args = append(args, binary,
		"-o", out.ParamsPath,
		"-c", out.CouplingsPath,
		"-f", r.FocusSequence,
		"-le", formatFloat(h.LambdaE),
		"-lh", formatFloat(h.LambdaH),
		"-m", strconv.Itoa(h.MaxIterations),
		"-t", formatFloat(h.Theta),
	)
	if h.IgnoreGaps {
		args = append(args, "-g")
	}
	args = append(args, r.AlignmentPath)

	return Command{Path: args[0], Args: args[1:], Outputs: out}
}

// Argv returns Path followed by Args.
func (c Command) Argv() []string {
	return append([]string{c.Path}, c.Args...)
}

// String renders the command as a single bash-quoted line.
func (c Command) String() string {
	words := c.Argv()
	quoted := make([]string, len(words))
	for i, w := range words {
		q, err := syntax.Quote(w, syntax.LangBash)
		if err != nil {
			// Only strings containing NUL bytes cannot be quoted.
			q = strconv.Quote(w)
		}
		quoted[i] = q
	}
	return strings.Join(quoted, " ")
}

// ParseLauncher splits a launcher such as `conda run -n plmc` into words
// using shell field splitting. Variables are not expanded.
func ParseLauncher(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	words, err := shell.Fields(s, func(string) string { return "" })
	if err != nil {
		return nil, fmt.Errorf("invalid launcher %q: %w", s, err)
	}
	return words, nil
}
