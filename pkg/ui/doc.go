// Package ui renders user-facing console output: colored status lines, a
// per-download progress bar and the trailing report of failed writeups.
//
// Diagnostics belong to the logger package; everything printed here is
// meant to be read by a person watching the run.
package ui
