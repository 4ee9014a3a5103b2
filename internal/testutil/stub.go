// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// PlmcMode selects the behavior of a plmc stub.
type PlmcMode string

const (
	// PlmcOK writes both outputs and exits 0.
	PlmcOK PlmcMode = "ok"
	// PlmcFail prints to stderr and exits 3 without writing outputs.
	PlmcFail PlmcMode = "fail"
	// PlmcEmptyCouplings exits 0 but leaves the coupling file empty.
	PlmcEmptyCouplings PlmcMode = "empty"
	// PlmcSleep writes a partial params file and sleeps for 30s.
	PlmcSleep PlmcMode = "sleep"
)

// StubCouplings is the coupling file written by a PlmcOK stub.
const StubCouplings = "1 M 2 K 0 0.25\n"

// ArgsSuffix is appended to the params path for the file where a plmc stub
// records its argv, one argument per line.
const ArgsSuffix = ".args"

const plmcStubPrelude = `#!/bin/sh
params=""
couplings=""
prev=""
for a in "$@"; do
	case "$prev" in
	-o) params="$a" ;;
	-c) couplings="$a" ;;
	esac
	prev="$a"
done
printf '%s\n' "$@" > "$params.args"
`

var plmcStubBodies = map[PlmcMode]string{
	PlmcOK: `echo "plmc stub: 2 sequences, 3 columns"
echo "iter 1 fx -1.0" >&2
printf 'PARAMS' > "$params"
printf '` + strings.TrimSuffix(StubCouplings, "\n") + `\n' > "$couplings"
`,
	PlmcFail: `echo "plmc stub: focus sequence not found" >&2
exit 3
`,
	PlmcEmptyCouplings: `printf 'PARAMS' > "$params"
: > "$couplings"
`,
	PlmcSleep: `printf 'PARTIAL' > "$params"
sleep 30
`,
}

// SkipIfNoShell skips tests that need /bin/sh.
func SkipIfNoShell(t testing.TB) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require /bin/sh")
	}
}

// WriteStub writes an executable script to dir/name and returns its path.
func WriteStub(t testing.TB, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write stub %s: %v", path, err)
	}
	return path
}

// PlmcStub writes a fake plmc into dir that behaves according to mode.
func PlmcStub(t testing.TB, dir string, mode PlmcMode) string {
	t.Helper()
	SkipIfNoShell(t)
	body, ok := plmcStubBodies[mode]
	if !ok {
		t.Fatalf("unknown plmc stub mode %q", mode)
	}
	return WriteStub(t, dir, "plmc", plmcStubPrelude+body)
}

// StubArgs returns the argv recorded by a plmc stub for the given params path.
func StubArgs(t testing.TB, paramsPath string) []string {
	t.Helper()
	content := strings.TrimSuffix(MustReadFile(t, paramsPath+ArgsSuffix), "\n")
	return strings.Split(content, "\n")
}

// ReformatStub writes a fake reformat.pl that copies its input to its output,
// checking that it was called as "reformat.pl a3m a2m <in> <out>".
func ReformatStub(t testing.TB, dir string) string {
	t.Helper()
	SkipIfNoShell(t)
	return WriteStub(t, dir, "reformat.pl", `#!/bin/sh
if [ "$1" != "a3m" ] || [ "$2" != "a2m" ]; then
	echo "usage: reformat.pl a3m a2m in out" >&2
	exit 2
fi
echo "Reformatting $3 from a3m to a2m"
cp "$3" "$4"
`)
}
