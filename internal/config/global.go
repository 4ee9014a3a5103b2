// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride lets tests bypass os.UserHomeDir(), which does not
// reliably honor HOME on every platform.
var configDirOverride string

// Reset clears test overrides.
func Reset() {
	configDirOverride = ""
}

// SetConfigDirOverride sets a custom config directory path for tests.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}
