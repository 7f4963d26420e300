package routingpool

import (
	"context"
)

// Task is one unit of work, e.g. fetching a single (site, url).
type Task func(ctx context.Context)

type RoutingPool interface {
	Start() error
	Submit(Task) error
	// Close 之后不再接收新任务
	Close()
	// Done 在所有已提交任务结束后关闭
	Done() <-chan struct{}
	Stop()
}
