package schnorr

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Challenge draws a uniform challenge from [0, q-1] using the operating
// system's cryptographic random source.
func (g *Group) Challenge() (*big.Int, error) {
	c, err := rand.Int(rand.Reader, g.Q())
	if err != nil {
		return nil, fmt.Errorf("failed to draw challenge: %w", err)
	}
	return c, nil
}

// Verify reports whether g^z == u * y^c (mod p) for enrolled public key y,
// commitment u, challenge c, and response z. The values are used exactly as
// transmitted; callers must not reduce z or c modulo q first.
func (g *Group) Verify(y, u, c, z *big.Int) bool {
	left := g.Exp(g.G, z)
	right := new(big.Int).Mul(u, g.Exp(y, c))
	right.Mod(right, g.P)
	return left.Cmp(right) == 0
}
