// Package board implements the status boards: long-lived chat messages
// that are periodically rewritten from live state. Each board renders a
// snapshot of its backing source and hands the result to a Synchronizer
// that locates or recreates the board's message and edits it in place.
// A Scheduler drives the periodic ticks; failures stay contained to the
// board that hit them.
package board
