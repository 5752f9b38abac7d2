// Package app defines the runtime contract of long-running prover processes.
package app

// Runner is a process that runs until it is signalled to stop.
type Runner interface {
	Run() error
}
