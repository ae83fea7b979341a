// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing.
// Provides predictable, controllable behavior for the relay's collaborators:
// a scripted connection with its readiness source and a slow stdout.
package fake
