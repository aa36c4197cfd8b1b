package session

import (
	"net"
	"testing"
	"time"

	"github.com/wfunc/broinkroyale/network"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct {
	sent []uint16
}

func (m *MockConnection) Send(msgID uint16, data []byte) error {
	m.sent = append(m.sent, msgID)
	return nil
}
func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager == nil {
		t.Fatal("NewManager should not return nil")
	}
	if manager.sessions == nil {
		t.Fatal("NewManager should initialize the sessions map")
	}
}

func TestManager_Add_Get_Remove(t *testing.T) {
	manager := NewManager()
	sessionID := "test_session_1"
	sess := NewSession(sessionID, &MockConnection{})

	// Test Add
	manager.Add(sess)
	if manager.Count() != 1 {
		t.Fatalf("Expected session count to be 1, got %d", manager.Count())
	}

	// Test Get
	retrievedSess, exists := manager.Get(sessionID)
	if !exists {
		t.Fatal("Get should find the added session")
	}
	if retrievedSess != sess {
		t.Fatal("Get should return the same session instance")
	}

	// Test Remove
	manager.Remove(sessionID)
	if manager.Count() != 0 {
		t.Fatalf("Expected session count to be 0 after removal, got %d", manager.Count())
	}

	_, exists = manager.Get(sessionID)
	if exists {
		t.Fatal("Get should not find the removed session")
	}
}

func TestManager_InLobby(t *testing.T) {
	manager := NewManager()

	sess1 := NewSession("session1", &MockConnection{})
	sess1.SetLobbyID("lobby-a")

	sess2 := NewSession("session2", &MockConnection{})
	sess2.SetLobbyID("lobby-b")

	sess3 := NewSession("session3", &MockConnection{})
	sess3.SetLobbyID("lobby-a")

	manager.Add(sess1)
	manager.Add(sess2)
	manager.Add(sess3)

	if got := len(manager.inLobby("lobby-a")); got != 2 {
		t.Errorf("Expected 2 sessions in lobby-a, got %d", got)
	}
	if got := len(manager.inLobby("lobby-b")); got != 1 {
		t.Errorf("Expected 1 session in lobby-b, got %d", got)
	}
	if got := len(manager.inLobby("lobby-c")); got != 0 {
		t.Errorf("Expected 0 sessions in lobby-c, got %d", got)
	}
}

func TestSession_TouchAndSend(t *testing.T) {
	conn := &MockConnection{}
	sess := NewSession("test_session", conn)
	before := sess.LastActive()

	time.Sleep(time.Millisecond)
	sess.Touch()
	if !sess.LastActive().After(before) {
		t.Error("Touch should advance LastActive")
	}

	if err := sess.Send(network.MsgTypeGameStarted, nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(conn.sent) != 1 || conn.sent[0] != network.MsgTypeGameStarted {
		t.Errorf("Expected the message to reach the connection, got %v", conn.sent)
	}
}

func TestManager_All(t *testing.T) {
	manager := NewManager()
	manager.Add(NewSession("a", &MockConnection{}))
	manager.Add(NewSession("b", &MockConnection{}))

	if got := len(manager.All()); got != 2 {
		t.Errorf("Expected 2 sessions, got %d", got)
	}
}
