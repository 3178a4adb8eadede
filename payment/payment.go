package payment

import (
	"context"
	"math/rand/v2"
	"sync"
)

// Charge is the outcome of collecting a request fee.
type Charge struct {
	AmountCents int64
	Succeeded   bool
}

// Gateway collects the fee for a service request.
type Gateway interface {
	Charge(ctx context.Context, citizenID, serviceID int64) (Charge, error)
}

const (
	minFeeCents  = 2000
	feeSpanCents = 5000
)

// Simulated is a Gateway that charges a random fee between 20.00 and 69.99
// without contacting any payment provider.
type Simulated struct {
	mu      sync.Mutex
	rng     *rand.Rand
	decline bool
}

// NewSimulated returns a gateway whose charges always succeed.
func NewSimulated() *Simulated {
	return &Simulated{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededSimulated returns a deterministic gateway. Charges fail when
// decline is set.
func NewSeededSimulated(seed uint64, decline bool) *Simulated {
	return &Simulated{rng: rand.New(rand.NewPCG(seed, seed)), decline: decline}
}

func (s *Simulated) Charge(ctx context.Context, _, _ int64) (Charge, error) {
	if err := ctx.Err(); err != nil {
		return Charge{}, err
	}
	s.mu.Lock()
	amount := int64(minFeeCents + s.rng.IntN(feeSpanCents))
	s.mu.Unlock()
	return Charge{AmountCents: amount, Succeeded: !s.decline}, nil
}
