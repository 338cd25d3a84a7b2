package analyzer

import "sync"

// forEachBounded calls f for every value with at most limit calls in flight.
func forEachBounded[T any](limit int, values []T, f func(i int, value T)) {
	if limit <= 0 {
		limit = 1
	}
	guard := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for i, value := range values {
		guard <- struct{}{} // would block if guard channel is already filled
		wg.Add(1)
		go func(i int, value T) {
			defer wg.Done()
			f(i, value)
			<-guard
		}(i, value)
	}
	wg.Wait()
}
