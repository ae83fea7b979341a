// File: cmd/wire/args.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"net"
	"strconv"

	"github.com/momentics/wire/api"
)

const usage = "wire [host] [port]"

func usageError() *api.Error {
	return api.NewError(api.ErrCodeUsage, "Usage:\t"+usage)
}

// parseArgs validates the positional arguments: exactly a host and a
// numeric port.
func parseArgs(args []string) (string, int, error) {
	if len(args) != 2 {
		return "", 0, usageError().WithContext("args", len(args))
	}
	port, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		return "", 0, usageError().WithContext("port", args[1]).Wrap(err)
	}
	return args[0], int(port), nil
}

// resolve maps host and port to the first address the resolver returns.
func resolve(ctx context.Context, host string, port int) (*net.TCPAddr, error) {
	unresolved := func(err error) error {
		return api.NewError(api.ErrCodeUnresolved, "Could not resolve host "+host).Wrap(err)
	}
	if ip := net.ParseIP(host); ip != nil {
		return &net.TCPAddr{IP: ip, Port: port}, nil
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, unresolved(err)
	}
	if len(addrs) == 0 {
		return nil, unresolved(nil)
	}
	return &net.TCPAddr{IP: addrs[0].IP, Zone: addrs[0].Zone, Port: port}, nil
}
