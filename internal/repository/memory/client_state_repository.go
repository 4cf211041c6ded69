package memory

import (
	"context"

	"ai-pdfchat-client/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// ClientStateRepository keeps client state in process memory. Values never
// expire; it backs tests and the "memory" state backend.
type ClientStateRepository struct {
	cache *cache.Cache
}

var _ contract.ClientStateRepository = (*ClientStateRepository)(nil)

func NewClientStateRepository() *ClientStateRepository {
	return &ClientStateRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (r *ClientStateRepository) Get(_ context.Context, key string) (string, bool, error) {
	if x, found := r.cache.Get(key); found {
		return x.(string), true, nil
	}
	return "", false, nil
}

func (r *ClientStateRepository) Set(_ context.Context, key, value string) error {
	r.cache.Set(key, value, cache.NoExpiration)
	return nil
}

func (r *ClientStateRepository) Delete(_ context.Context, key string) error {
	r.cache.Delete(key)
	return nil
}

func (r *ClientStateRepository) Clear(_ context.Context) error {
	r.cache.Flush()
	return nil
}
