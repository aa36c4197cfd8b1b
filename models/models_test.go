package models

import (
	"testing"
	"time"

	"github.com/wfunc/broinkroyale/game"
)

func TestNewMatchRecord(t *testing.T) {
	start := time.Unix(1700000000, 0)
	winner := "b"
	rec := NewMatchRecord(game.Result{
		LobbyID:   "l1",
		Winner:    &winner,
		Scores:    map[string]int{"c": 0, "a": 2, "b": 1},
		StartedAt: start,
		EndedAt:   start.Add(90 * time.Second),
	})

	if len(rec.Players) != 3 || rec.Players[0].PlayerID != "a" || rec.Players[2].PlayerID != "c" {
		t.Fatalf("Expected players sorted by id, got %+v", rec.Players)
	}
	if !rec.Players[1].Winner || rec.Players[0].Winner {
		t.Errorf("Only b should be flagged winner, got %+v", rec.Players)
	}
	if rec.Duration() != 90*time.Second {
		t.Errorf("Expected 90s duration, got %s", rec.Duration())
	}

	row := NewGormMatch(rec)
	if row.DurationMs != 90000 || row.LobbyID != "l1" || *row.Winner != "b" {
		t.Errorf("Unexpected row %+v", row)
	}
	back := row.Record()
	if back.LobbyID != rec.LobbyID || len(back.Players) != 3 {
		t.Errorf("Row did not convert back: %+v", back)
	}
}

func TestMatchRecord_DurationWithoutStart(t *testing.T) {
	rec := MatchRecord{EndedAt: time.Now()}
	if rec.Duration() != 0 {
		t.Errorf("Expected zero duration, got %s", rec.Duration())
	}
}
