// Command client runs a handful of bots against a server, or queries its
// admin RPC service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"math/rand"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/wfunc/broinkroyale/logger"
	"github.com/wfunc/broinkroyale/network"
	"github.com/wfunc/broinkroyale/rpc"
)

func main() {
	addr := flag.String("addr", "localhost:3000", "game server host:port")
	lobbyID := flag.String("lobby", "", "lobby to join, empty for a new one")
	bots := flag.Int("bots", 4, "number of bots")
	admin := flag.String("admin", "", "admin RPC host:port; prints lobbies and recent matches, then exits")
	flag.Parse()

	_ = logger.Init(logger.Options{Level: "info"})
	defer logger.Sync()

	if *admin != "" {
		if err := printAdmin(*admin); err != nil {
			logger.Log.Fatalf("admin: %v", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	logger.Log.Infof("Connecting %d bots to %s", *bots, u.String())

	// the first bot decides the lobby when none was given
	joined := make(chan string, 1)
	if *lobbyID != "" {
		joined <- *lobbyID
	}

	var wg sync.WaitGroup
	for i := 0; i < *bots; i++ {
		target := ""
		if i > 0 || *lobbyID != "" {
			select {
			case target = <-joined:
				joined <- target
			case <-ctx.Done():
				return
			}
		}
		wg.Add(1)
		go func(n int, target string) {
			defer wg.Done()
			if err := runBot(ctx, n, u.String(), target, joined); err != nil {
				logger.Log.Warnf("bot %d: %v", n, err)
			}
		}(i, target)
	}
	wg.Wait()
}

func send(c *websocket.Conn, msgID uint16, v any) error {
	var data []byte
	if v != nil {
		var err error
		if data, err = json.Marshal(v); err != nil {
			return err
		}
	}
	packet, err := network.EncodePacket(msgID, data)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func runBot(ctx context.Context, n int, wsURL, lobbyID string, joined chan string) error {
	c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := send(c, network.MsgTypeJoinLobby, network.JoinLobbyRequest{LobbyID: lobbyID}); err != nil {
		return err
	}

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				return
			}
			p, err := network.DecodePacket(message)
			if err != nil {
				logger.Log.Warnf("bot %d: %v", n, err)
				continue
			}
			switch p.MsgID {
			case network.MsgTypeJoinedLobby:
				var msg network.JoinedLobby
				_ = json.Unmarshal(p.Data, &msg)
				logger.Log.Infof("bot %d joined lobby %s", n, msg.LobbyID)
				if lobbyID == "" {
					select {
					case joined <- msg.LobbyID:
					default:
					}
				}
			case network.MsgTypeJoinError:
				logger.Log.Warnf("bot %d join rejected: %s", n, p.Data)
				return
			case network.MsgTypeGameStarted:
				logger.Log.Infof("bot %d: game started", n)
			case network.MsgTypeKnockout:
				logger.Log.Infof("bot %d: knockout %s", n, p.Data)
			case network.MsgTypeGameEnded:
				logger.Log.Infof("bot %d: game ended %s", n, p.Data)
				return
			}
		}
	}()

	// Write loop: wander and ping
	move := time.NewTicker(100 * time.Millisecond)
	defer move.Stop()
	ping := time.NewTicker(10 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return nil
		case <-ping.C:
			if err := send(c, network.MsgTypeHeartbeat, nil); err != nil {
				return err
			}
		case <-move.C:
			in := network.InputMessage{X: rand.Float64()*2 - 1, Z: rand.Float64()*2 - 1}
			if err := send(c, network.MsgTypeInput, in); err != nil {
				return err
			}
		}
	}
}

func printAdmin(addr string) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	defer conn.Close()
	client := rpc.NewClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lobbies, err := client.ListLobbies(ctx)
	if err != nil {
		return err
	}
	for _, l := range lobbies.Lobbies {
		logger.Log.Infow("lobby", "id", l.ID, "state", l.State, "players", l.Players)
	}
	matches, err := client.RecentMatches(ctx, &rpc.RecentMatchesRequest{Limit: 10})
	if err != nil {
		return err
	}
	for _, m := range matches.Matches {
		logger.Log.Infow("match", "lobby", m.LobbyID, "winner", m.Winner, "players", len(m.Players))
	}
	return nil
}
