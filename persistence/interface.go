// persistence/interface.go
package persistence

import (
	"context"
	"fmt"

	"github.com/wfunc/broinkroyale/models"
)

// Database 比赛记录存储接口
type Database interface {
	SaveMatch(ctx context.Context, rec models.MatchRecord) error
	// RecentMatches returns up to limit records, newest first.
	RecentMatches(ctx context.Context, limit int) ([]models.MatchRecord, error)
	// LastMatch returns the newest record of a lobby.
	LastMatch(ctx context.Context, lobbyID string) (models.MatchRecord, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
