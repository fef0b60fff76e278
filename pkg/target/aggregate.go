package target

import (
	"github.com/shoalstore/shoal/pkg/types"
)

// Reply aggregators fold per-node partial replies from a fan-out into one
// logical result by summing failure counts. A zero total is the only
// success signal the originator sees; which node failed is not preserved at
// this layer and must be recovered from that node's logs.

// AggregateConnect folds source into result.
func AggregateConnect(source, result *types.ConnectReply) {
	result.Failed += source.Failed
}

// AggregateDisconnect folds source into result.
func AggregateDisconnect(source, result *types.DisconnectReply) {
	result.Failed += source.Failed
}

// AggregateUpdateMap folds source into result.
func AggregateUpdateMap(source, result *types.UpdateMapReply) {
	result.Failed += source.Failed
}
