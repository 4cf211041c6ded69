package contract

import (
	"context"
)

// ClientStateRepository is the durable key/value storage of the client
// (access token, last active session). Get reports found=false for a missing key.
type ClientStateRepository interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
