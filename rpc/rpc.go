package rpc

import (
	"context"
	"errors"
	"net"
	"time"

	"google.golang.org/grpc"

	"github.com/wfunc/broinkroyale/logger"
)

// Server manages the admin grpc listener.
type Server struct {
	listener net.Listener
	address  string
	grpc     *grpc.Server
}

// NewServer listens on addr and registers svc.
func NewServer(addr string, svc LobbyAdminServer) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewServerWithListener(listener, svc), nil
}

// NewServerWithListener serves svc on an existing listener.
func NewServerWithListener(listener net.Listener, svc LobbyAdminServer) *Server {
	gs := grpc.NewServer(grpc.UnaryInterceptor(logCalls))
	gs.RegisterService(&lobbyAdminServiceDesc, svc)
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		grpc:     gs,
	}
}

// Start serves until Stop is called.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	if err := s.grpc.Serve(s.listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		logger.Log.Errorf("RPC server error: %v", err)
		return
	}
	logger.Log.Info("RPC server listener closed.")
}

// Stop drains in-flight calls and closes the listener.
func (s *Server) Stop() {
	logger.Log.Info("Stopping RPC server.")
	s.grpc.GracefulStop()
}

func logCalls(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		logger.Log.Warnf("rpc %s failed after %s: %v", info.FullMethod, time.Since(start), err)
	} else {
		logger.Log.Debugf("rpc %s took %s", info.FullMethod, time.Since(start))
	}
	return resp, err
}
