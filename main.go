// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/evmodels/plmc-harness/cmd/plmc-harness"

func main() {
	cmd.Execute()
}
