/*
Package resilience provides the circuit breaker that guards upstream report fetches.

When the report site stops answering, every (year, variant) request of a sweep
would otherwise wait for its full timeout. The breaker opens after repeated
transport failures so the remaining requests fail fast and the sweep finishes
with whatever it collected.

# Usage

	breaker := resilience.New("vitibrasil", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	body, err := resilience.Run(breaker, func() ([]byte, error) {
		return fetch(ctx, url)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                          Open
*/
package resilience
