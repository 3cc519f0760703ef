// Package ui renders the wifiprov CLI's terminal output.
//
// Commands print a Header describing what they are about to do, then a
// Result box with the outcome. Lipgloss handles styling; widths follow the
// terminal and are clamped between MinTerminalWidth and MaxContentWidth.
//
// Output goes through the styles here so that logging stays silent unless
// WIFIPROV_LOG_LEVEL or --log-level asks for it.
package ui
