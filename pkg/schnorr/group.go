// Package schnorr implements the Schnorr identification protocol over named
// modular-exponentiation groups.
//
// Each group fixes a modulus p and a generator g where p is a safe prime, so
// q = (p-1)/2 is itself prime and g generates the subgroup of order q. A
// device's long-term key is a private scalar alpha in [1, q-1] with public
// key y = g^alpha mod p. One identification round is commit (u = g^t),
// challenge (c), respond (z = t + alpha*c mod q), verify (g^z == u * y^c).
package schnorr

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
)

// DefaultGroupID is the group servers select when none is configured.
const DefaultGroupID = "modp-1536"

var (
	// ErrUnknownGroup is returned by Lookup for an unregistered group ID.
	ErrUnknownGroup = errors.New("unknown group")

	one = big.NewInt(1)
)

// Group is a named modular-exponentiation group. P is a safe prime and G
// generates the prime-order subgroup of order (P-1)/2. Groups are immutable
// after construction; callers must not modify P or G.
type Group struct {
	// ID is the stable name exchanged during the wire handshake.
	ID string

	// P is the group modulus.
	P *big.Int

	// G is the subgroup generator.
	G *big.Int
}

// New validates (p, g) and returns a Group. p must be an odd prime with
// (p-1)/2 prime, and g must lie in [2, p-2]. Primality uses a probabilistic
// test, which is exact for inputs below 2^64.
func New(id string, p, g *big.Int) (*Group, error) {
	if id == "" {
		return nil, errors.New("group ID must not be empty")
	}
	if p == nil || !p.ProbablyPrime(20) {
		return nil, fmt.Errorf("group %s: modulus is not prime", id)
	}
	grp := &Group{ID: id, P: new(big.Int).Set(p), G: new(big.Int).Set(g)}
	if !grp.Q().ProbablyPrime(20) {
		return nil, fmt.Errorf("group %s: (p-1)/2 is not prime", id)
	}
	if g.Cmp(big.NewInt(2)) < 0 || g.Cmp(new(big.Int).Sub(p, one)) >= 0 {
		return nil, fmt.Errorf("group %s: generator out of range", id)
	}
	return grp, nil
}

// Q returns the subgroup order (P-1)/2. The order is derived from P on each
// call rather than stored with the group definition.
func (g *Group) Q() *big.Int {
	return new(big.Int).Rsh(new(big.Int).Sub(g.P, one), 1)
}

// Exp computes base^exp mod P.
func (g *Group) Exp(base, exp *big.Int) *big.Int {
	return new(big.Int).Exp(base, exp, g.P)
}

// registry holds the named groups available for handshake selection.
var registry = map[string]*Group{}

func register(g *Group) {
	registry[g.ID] = g
}

// Lookup returns the registered group with the given ID, or ErrUnknownGroup.
func Lookup(id string) (*Group, error) {
	g, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGroup, id)
	}
	return g, nil
}

// Default returns the group registered under DefaultGroupID.
func Default() *Group {
	return registry[DefaultGroupID]
}

// IDs returns the registered group IDs in sorted order.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// modp1536P is the 1536-bit MODP modulus from RFC 3526, group 5.
const modp1536P = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1" +
	"29024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
	"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245" +
	"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3D" +
	"C2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F" +
	"83655D23DCA3AD961C62F356208552BB9ED529077096966D" +
	"670C354E4ABC9804F1746C08CA237327FFFFFFFFFFFFFFFF"

func init() {
	p, ok := new(big.Int).SetString(modp1536P, 16)
	if !ok {
		panic("schnorr: bad modp-1536 modulus")
	}
	register(&Group{ID: DefaultGroupID, P: p, G: big.NewInt(2)})

	// Tiny demo group (p=23, q=11). Useful for exercising the protocol by
	// hand; offers no security whatsoever.
	register(&Group{ID: "mymod", P: big.NewInt(23), G: big.NewInt(2)})
}
