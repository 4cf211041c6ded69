package repository

import (
	"context"
	"fmt"

	"ai-pdfchat-client/internal/config"
	"ai-pdfchat-client/internal/repository/contract"
	"ai-pdfchat-client/internal/repository/implementation"
	"ai-pdfchat-client/internal/repository/memory"
)

// NewClientStateRepository picks the durable storage named by the config.
// For redis the connection is pinged so a dead server fails at boot.
func NewClientStateRepository(ctx context.Context, cfg config.StateConfig) (contract.ClientStateRepository, error) {
	switch cfg.Backend {
	case "memory":
		return memory.NewClientStateRepository(), nil
	case "redis":
		rdb := implementation.NewRedisClient(cfg.RedisURL)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		return implementation.NewRedisClientStateRepository(rdb, cfg.Namespace), nil
	case "file", "":
		return implementation.NewFileClientStateRepository(cfg.FilePath), nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}
