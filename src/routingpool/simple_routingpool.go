// 实现了一个最简单的协程池
// 固定数量的worker从同一个任务channel中读取任务，任务之间不共享可变状态
// ctx取消后尚未开始的任务直接丢弃，已开始的任务自行根据ctx退出
package routingpool

import (
	"context"
	"errors"
	"sync"
)

var ErrPoolClosed = errors.New("routing pool closed")

type SimpleRoutingPool struct {
	wg sync.WaitGroup

	ctx  context.Context
	size uint32

	mu     sync.Mutex
	closed bool
	tasks  chan Task
	done   chan struct{}
}

func NewSimpleRoutingPool(ctx context.Context, size uint32) RoutingPool {
	if size == 0 {
		size = 1
	}
	return &SimpleRoutingPool{
		ctx:   ctx,
		size:  size,
		tasks: make(chan Task),
		done:  make(chan struct{}),
	}
}

func (s *SimpleRoutingPool) Start() error {
	var i uint32
	for ; i != s.size; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for task := range s.tasks {
				if s.ctx.Err() != nil {
					continue
				}
				task(s.ctx)
			}
		}()
	}
	go func() {
		s.wg.Wait()
		close(s.done)
	}()
	return nil
}

func (s *SimpleRoutingPool) Submit(task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrPoolClosed
	}
	select {
	case s.tasks <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

func (s *SimpleRoutingPool) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.tasks)
	}
}

func (s *SimpleRoutingPool) Done() <-chan struct{} {
	return s.done
}

func (s *SimpleRoutingPool) Stop() {
	s.Close()
	<-s.done
}
