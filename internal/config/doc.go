// SPDX-License-Identifier: MPL-2.0

// Package config loads harness configuration using Viper with CUE as the file format.
//
// The file lives at $XDG_CONFIG_HOME/plmc-harness/config.cue (~/.config on Linux,
// ~/Library/Application Support on macOS), falling back to ./config.cue. It is
// validated against the embedded #Config schema before being merged over the
// built-in defaults. A handful of environment variables (PLMC_BIN, PLMC_DIR,
// PLMC_REFORMAT, PLMC_INPUT_DIR, PLMC_OUTPUT_DIR, PLMC_SERVER_TOKEN) override
// the file.
package config
