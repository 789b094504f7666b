package merge

import (
	"context"

	"github.com/monalisamaguruwada102-web/studysync/pkg/types"
)

// RemoteSource lists an owner's remote records. A nil result means the
// remote is unavailable.
type RemoteSource interface {
	FetchOwned(ctx context.Context, collection, ownerID string) []types.Record
}

// LocalSource lists an owner's local records.
type LocalSource interface {
	ListOwned(collection, ownerID string) []types.Record
}

// Engine serves merged views.
type Engine struct {
	remote   RemoteSource
	local    LocalSource
	strategy Strategy
}

// NewEngine creates an engine. A nil strategy is RemoteWins.
func NewEngine(remote RemoteSource, local LocalSource, strategy Strategy) *Engine {
	if strategy == nil {
		strategy = RemoteWins{}
	}
	return &Engine{remote: remote, local: local, strategy: strategy}
}

// Strategy returns the strategy in use.
func (e *Engine) Strategy() Strategy { return e.strategy }

// View returns the merged records of collection for ownerID.
func (e *Engine) View(ctx context.Context, collection, ownerID string) []types.Record {
	var remote []types.Record
	if e.remote != nil {
		remote = e.remote.FetchOwned(ctx, collection, ownerID)
	}
	return e.strategy.Merge(remote, e.local.ListOwned(collection, ownerID))
}
