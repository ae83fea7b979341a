// File: control/doc.go
// Author: momentics <momentics@gmail.com>
//
// Package control holds the relay configuration (YAML file plus defaults)
// and the runtime metrics registry.
package control
