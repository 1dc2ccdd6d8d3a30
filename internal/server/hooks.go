package server

import (
	"context"
	"net"
	"net/http"
)

// Lifecycle hooks for the hosting runtime. They carry no state and make no
// store writes; they exist as stable integration points so the runtime can
// observe its own lifecycle around this service.

// OnStartup runs once after the store is healthy and before serving traffic.
func (s *Service) OnStartup(ctx context.Context) {
	s.logger.Debug("service startup hook")
}

// OnClientConnect is invoked for each new client connection.
func (s *Service) OnClientConnect(remoteAddr string) {
	s.logger.Debug("client connected", "remote_addr", remoteAddr)
}

// OnClientDisconnect is invoked when a client connection goes away.
func (s *Service) OnClientDisconnect(remoteAddr string) {
	s.logger.Debug("client disconnected", "remote_addr", remoteAddr)
}

// ConnState adapts the connect/disconnect hooks to net/http's ConnState
// callback.
func (s *Service) ConnState(conn net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.OnClientConnect(conn.RemoteAddr().String())
	case http.StateClosed:
		s.OnClientDisconnect(conn.RemoteAddr().String())
	}
}
