// Package ui renders the CLI's styled terminal output with lipgloss.
//
// Components follow a "render once and print" pattern:
//
//   - Header: banner with the switch and command parameters
//   - Result: success, failure or warning box; failures carry the
//     troubleshooting hint of a switch error
//   - RenderStatusTable / RenderReport: outlet number, name and colored state
//   - RenderOutcomes: per-outlet results of a multi-outlet command
//   - Confirm: "type yes" prompt before switching everything off
//
// The interactive dashboard lives in package tui and reuses these styles.
//
// Logging is controlled by DLIPOWER_LOG_LEVEL; unset keeps zap silent so the
// styled output stays clean.
package ui
