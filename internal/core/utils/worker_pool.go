package utils

import (
	"context"
	"sync"
)

type CompletedTask[In any, Out any] struct {
	Input  In
	Result Out
	Error  error
}

// RunInPool runs worker over every item of inputs using at most maxWorkers
// goroutines. Results arrive in completion order and the returned channel is
// closed once every input has been processed or ctx is cancelled.
func RunInPool[In any, Out any](ctx context.Context, worker func(In) (Out, error), inputs []In, maxWorkers int) <-chan CompletedTask[In, Out] {
	queue := make(chan In, len(inputs))
	for _, input := range inputs {
		queue <- input
	}
	close(queue)

	completed := make(chan CompletedTask[In, Out], len(inputs))

	workers := max(1, min(len(inputs), maxWorkers))

	go func() {
		wg := sync.WaitGroup{}
		wg.Add(workers)

		for i := 0; i < workers; i++ {
			go func() {
				defer wg.Done()

				for next := range queue {
					if ctx.Err() != nil {
						return
					}
					res, err := worker(next)
					completed <- CompletedTask[In, Out]{Input: next, Result: res, Error: err}
				}
			}()
		}

		wg.Wait()

		close(completed)
	}()

	return completed
}
