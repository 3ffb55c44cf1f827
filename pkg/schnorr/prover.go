package schnorr

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateKey draws a fresh private scalar uniformly from [1, q-1] using the
// operating system's cryptographic random source.
func GenerateKey(g *Group) (*big.Int, error) {
	return randScalar(g)
}

// Prover holds one device's private scalar for a group and produces the
// client side of an identification round.
type Prover struct {
	group *Group
	key   *big.Int
}

// NewProver wraps an existing private scalar. The scalar is expected to lie
// in [1, q-1]; use GenerateKey to mint one.
func NewProver(g *Group, key *big.Int) (*Prover, error) {
	if key == nil || key.Sign() <= 0 || key.Cmp(g.Q()) >= 0 {
		return nil, fmt.Errorf("private key out of range for group %s", g.ID)
	}
	return &Prover{group: g, key: key}, nil
}

// PublicKey returns y = g^alpha mod p, the value enrolled on the server.
func (p *Prover) PublicKey() *big.Int {
	return p.group.Exp(p.group.G, p.key)
}

// Commitment is the ephemeral pair of one identification round. U is sent to
// the server; the secret exponent never leaves the prover.
type Commitment struct {
	secret *big.Int
	U      *big.Int
}

// Commit draws a fresh ephemeral exponent and returns its commitment.
func (p *Prover) Commit() (*Commitment, error) {
	t, err := randScalar(p.group)
	if err != nil {
		return nil, err
	}
	return &Commitment{secret: t, U: p.group.Exp(p.group.G, t)}, nil
}

// Respond computes z = (t + alpha*c) mod q for a received challenge.
func (p *Prover) Respond(com *Commitment, c *big.Int) *big.Int {
	z := new(big.Int).Mul(p.key, c)
	z.Add(z, com.secret)
	return z.Mod(z, p.group.Q())
}

// randScalar draws uniformly from [1, q-1].
func randScalar(g *Group) (*big.Int, error) {
	n, err := rand.Int(rand.Reader, new(big.Int).Sub(g.Q(), one))
	if err != nil {
		return nil, fmt.Errorf("failed to draw random scalar: %w", err)
	}
	return n.Add(n, one), nil
}
