// SPDX-License-Identifier: MPL-2.0

// Package alignment prepares multiple sequence alignments for plmc.
//
// plmc reads A2M. Alignments produced by HHblits are A3M, so Converter runs
// hh-suite's reformat.pl to translate them and then drops every column in
// which the query (first) sequence has a gap, the same cleanup CleanFile
// performs on an existing A2M file.
package alignment
