package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/wfunc/broinkroyale/lobby"
	"github.com/wfunc/broinkroyale/models"
	"github.com/wfunc/broinkroyale/persistence"
)

const (
	serviceName = "arena.LobbyAdmin"

	defaultMatchLimit = 20
	maxMatchLimit     = 100
)

type ListLobbiesRequest struct{}

type ListLobbiesReply struct {
	Lobbies []lobby.Summary `json:"lobbies"`
}

// RecentMatchesRequest asks for the newest matches. With LobbyID set only
// that lobby's last match is returned.
type RecentMatchesRequest struct {
	Limit   int    `json:"limit,omitempty"`
	LobbyID string `json:"lobbyId,omitempty"`
}

type RecentMatchesReply struct {
	Matches []models.MatchRecord `json:"matches"`
}

// LobbyAdminServer is the read-only admin surface of a running server.
type LobbyAdminServer interface {
	ListLobbies(ctx context.Context, req *ListLobbiesRequest) (*ListLobbiesReply, error)
	RecentMatches(ctx context.Context, req *RecentMatchesRequest) (*RecentMatchesReply, error)
}

// MatchSource is where exported matches are read from.
type MatchSource interface {
	RecentMatches(ctx context.Context, limit int) ([]models.MatchRecord, error)
	LastMatch(ctx context.Context, lobbyID string) (models.MatchRecord, error)
}

// Admin implements LobbyAdminServer over a registry and a match source.
type Admin struct {
	registry *lobby.Registry
	matches  MatchSource
}

func NewAdmin(registry *lobby.Registry, matches MatchSource) *Admin {
	return &Admin{registry: registry, matches: matches}
}

func (a *Admin) ListLobbies(ctx context.Context, _ *ListLobbiesRequest) (*ListLobbiesReply, error) {
	return &ListLobbiesReply{Lobbies: a.registry.Summaries()}, nil
}

func (a *Admin) RecentMatches(ctx context.Context, req *RecentMatchesRequest) (*RecentMatchesReply, error) {
	if req.LobbyID != "" {
		rec, err := a.matches.LastMatch(ctx, req.LobbyID)
		if errors.Is(err, persistence.ErrRecordNotFound) {
			return nil, status.Errorf(codes.NotFound, "no match recorded for lobby %s", req.LobbyID)
		}
		if err != nil {
			return nil, status.Error(codes.Internal, err.Error())
		}
		return &RecentMatchesReply{Matches: []models.MatchRecord{rec}}, nil
	}

	limit := req.Limit
	switch {
	case limit <= 0:
		limit = defaultMatchLimit
	case limit > maxMatchLimit:
		limit = maxMatchLimit
	}
	recs, err := a.matches.RecentMatches(ctx, limit)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &RecentMatchesReply{Matches: recs}, nil
}

func listLobbiesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListLobbiesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LobbyAdminServer).ListLobbies(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ListLobbies"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LobbyAdminServer).ListLobbies(ctx, req.(*ListLobbiesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func recentMatchesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RecentMatchesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LobbyAdminServer).RecentMatches(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/RecentMatches"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LobbyAdminServer).RecentMatches(ctx, req.(*RecentMatchesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var lobbyAdminServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*LobbyAdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListLobbies", Handler: listLobbiesHandler},
		{MethodName: "RecentMatches", Handler: recentMatchesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "arena/admin",
}

// Client calls a LobbyAdmin service.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) ListLobbies(ctx context.Context) (*ListLobbiesReply, error) {
	out := new(ListLobbiesReply)
	err := c.cc.Invoke(ctx, "/"+serviceName+"/ListLobbies", &ListLobbiesRequest{}, out, grpc.CallContentSubtype(CodecName))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RecentMatches(ctx context.Context, req *RecentMatchesRequest) (*RecentMatchesReply, error) {
	out := new(RecentMatchesReply)
	err := c.cc.Invoke(ctx, "/"+serviceName+"/RecentMatches", req, out, grpc.CallContentSubtype(CodecName))
	if err != nil {
		return nil, err
	}
	return out, nil
}
