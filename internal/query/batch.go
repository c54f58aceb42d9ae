package query

import "sync"

// FetchMany queries every target independently and returns a map keyed by
// "host:port". One target failing, in any way, never affects another.
//
// Targets are queried concurrently, each on its own socket, but outcomes
// are folded into the map in input order: when the same target appears
// twice the later occurrence's outcome wins, deterministically, regardless
// of which query finished first.
func (c *Client) FetchMany(targets []Target) BatchResult {
	outcomes := make([]QueryOutcome, len(targets))

	var wg sync.WaitGroup
	for i, t := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = c.Fetch(t.Host, t.Port)
		}()
	}
	wg.Wait()

	result := make(BatchResult, len(targets))
	for i, t := range targets {
		result[t.String()] = outcomes[i]
	}

	return result
}
