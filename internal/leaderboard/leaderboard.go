// Package leaderboard keeps a live score ranking in a redis sorted set. The
// store stays the source of truth; redis only accelerates ranked reads and
// degrades to SQL ordering when unavailable.
package leaderboard

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"codearena/internal/store"
	"codearena/pkg/logger"
)

const rankingKey = "arena:leaderboard"

// Config holds redis connection settings. An empty Addr disables redis and
// the board serves SQL-only reads.
type Config struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Entry is one ranked team.
type Entry struct {
	Rank     int    `json:"rank"`
	TeamID   string `json:"teamID"`
	TeamName string `json:"teamName"`
	Score    int    `json:"score"`
	EndTime  string `json:"endTime,omitempty"`
}

// Board maintains and serves the ranking.
type Board struct {
	client *redis.Client
	teams  store.TeamRepository
}

// New connects to redis when configured. Connection failure is not fatal;
// the board logs it and serves SQL reads.
func New(cfg Config, teams store.TeamRepository) *Board {
	b := &Board{teams: teams}
	if cfg.Addr == "" {
		return b
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn(ctx, "redis unavailable, leaderboard falls back to sql", zap.Error(err))
		_ = client.Close()
		return b
	}
	b.client = client
	return b
}

// NewWithClient builds a Board over an existing redis client.
func NewWithClient(client *redis.Client, teams store.TeamRepository) *Board {
	return &Board{client: client, teams: teams}
}

// Update records a team's final score in the sorted set.
func (b *Board) Update(ctx context.Context, teamID string, score int) error {
	if b.client == nil {
		return nil
	}
	return b.client.ZAdd(ctx, rankingKey, redis.Z{
		Score:  float64(score),
		Member: teamID,
	}).Err()
}

// Remove drops a team from the ranking, used on disqualification.
func (b *Board) Remove(ctx context.Context, teamID string) error {
	if b.client == nil {
		return nil
	}
	return b.client.ZRem(ctx, rankingKey, teamID).Err()
}

// Top returns the ranking, highest score first. Redis supplies the order
// when available; team names and timestamps always come from the store.
func (b *Board) Top(ctx context.Context, limit int) ([]Entry, error) {
	teams, err := b.teams.ListSubmitted(ctx)
	if err != nil {
		return nil, err
	}

	if b.client != nil {
		if ranked, err := b.redisOrder(ctx, teams, limit); err == nil {
			return ranked, nil
		} else {
			logger.Warn(ctx, "redis ranking read failed, using sql order", zap.Error(err))
		}
	}

	if limit > 0 && len(teams) > limit {
		teams = teams[:limit]
	}
	entries := make([]Entry, 0, len(teams))
	for i, team := range teams {
		entries = append(entries, Entry{
			Rank:     i + 1,
			TeamID:   team.TeamID,
			TeamName: team.TeamName,
			Score:    team.Score,
			EndTime:  team.EndTime,
		})
	}
	return entries, nil
}

func (b *Board) redisOrder(ctx context.Context, teams []store.Team, limit int) ([]Entry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	members, err := b.client.ZRevRangeWithScores(ctx, rankingKey, 0, stop).Result()
	if err != nil {
		return nil, err
	}

	byID := make(map[string]store.Team, len(teams))
	for _, team := range teams {
		byID[team.TeamID] = team
	}

	entries := make([]Entry, 0, len(members))
	for _, member := range members {
		teamID, _ := member.Member.(string)
		team, ok := byID[teamID]
		if !ok {
			// Stale redis entry for a team the store no longer ranks.
			continue
		}
		entries = append(entries, Entry{
			Rank:     len(entries) + 1,
			TeamID:   team.TeamID,
			TeamName: team.TeamName,
			Score:    int(member.Score),
			EndTime:  team.EndTime,
		})
	}
	return entries, nil
}

// Close releases the redis connection.
func (b *Board) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}
