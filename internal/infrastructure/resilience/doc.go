/*
Package resilience provides a circuit breaker for outbound calls.

The client SDK wraps every request to the terminal service in a Breaker so a
dead or overloaded server fails fast instead of stacking up timeouts.

	breaker := resilience.New("termhost", resilience.Settings{
		Timeout: 10 * time.Second,
		IsSuccessful: func(err error) bool {
			return err == nil || client.IsClientError(err)
		},
	})

	sess, err := resilience.Do(ctx, breaker, func(ctx context.Context) (Session, error) {
		return fetch(ctx)
	})

States:

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                         Open
*/
package resilience
