// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Goroutine plumbing for the relay: an unbounded FIFO channel adapter and a
// supervisor group that joins workers and keeps the first failure.
package concurrency
