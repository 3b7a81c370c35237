// Package tui implements the interactive outlet dashboard behind
// "dlipower watch".
//
// The dashboard re-reads the status page on a fixed interval and lets the
// user move between outlets and switch them on, off or cycle them. Only one
// outlet action runs at a time; periodic refreshes pause while it does. A
// switch that was not detected is logged into again on the next refresh.
package tui
