// Command logowatch is the CLI for the stream logo monitor: one-shot checks,
// history inspection, pruning, dashboard generation, and the foreground
// daemon.
package main
