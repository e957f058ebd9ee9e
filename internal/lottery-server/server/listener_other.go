//go:build !unix

package server

import "net"

// fora de unix o backlog fica a cargo do sistema
func listen(port string, _ int) (net.Listener, error) {
	return net.Listen("tcp", ":"+port)
}
