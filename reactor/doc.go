// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides readiness notification for raw file descriptors.
// The Linux implementation is built on epoll(7) with an eventfd(2) used to
// wake a blocked Poll.
package reactor
