package worker

import (
	"math/rand"
	"time"
)

// backoffDelay returns the wait before retry attempt (1-based): base doubled
// per attempt with ±20% jitter, capped. The schedule is configuration, not
// an invariant; only the cap matters for liveness.
func backoffDelay(attempt int, base, cap time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= cap {
			d = cap
			break
		}
	}
	jitter := 1 + (rand.Float64()*0.4 - 0.2)
	d = time.Duration(float64(d) * jitter)
	if d > cap {
		d = cap
	}
	if d < 0 {
		d = base
	}
	return d
}
