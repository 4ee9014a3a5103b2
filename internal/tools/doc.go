// SPDX-License-Identifier: MPL-2.0

// Package tools exposes the harness operations as named tools taking JSON
// arguments: plmc_generate_model and plmc_convert_a3m_to_a2m. The HTTP and
// SSH servers and the call command all dispatch through a Registry.
package tools
