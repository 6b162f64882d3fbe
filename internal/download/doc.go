// Package download runs download jobs: one job turns a selected format into a
// delivered file or a single failure message. Jobs run on their own goroutines,
// bounded by a fixed number of worker slots, and always release their working
// directory and session on exit.
package download
