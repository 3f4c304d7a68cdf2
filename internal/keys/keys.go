// Package keys derives deterministic record addresses from seed tuples using
// Blake2b hashing. A pool's address and its vault account are functions of the
// agent identity; a position's address is a function of (owner, pool). The
// derivation guarantees at most one pool per agent and one open position per
// (owner, pool) pair without any uniqueness bookkeeping in the store.
package keys

import (
	"golang.org/x/crypto/blake2b"

	"github.com/agentstake/psl/internal/types"
)

// Seed prefixes keep the derivation domains disjoint.
const (
	poolSeed     = "agent_pool"
	vaultSeed    = "pool_vault"
	positionSeed = "stake"
)

// PoolAddress derives the record address for an agent's pool.
func PoolAddress(agent types.Address) types.Address {
	return derive([]byte(poolSeed), agent[:])
}

// VaultAddress derives the custody account that holds an agent pool's assets.
func VaultAddress(agent types.Address) types.Address {
	return derive([]byte(vaultSeed), agent[:])
}

// PositionAddress derives the record address for an owner's position in a pool.
// pool is the pool's record address, not the agent identity, so two agents'
// pools can never collide even for the same owner.
func PositionAddress(owner types.Address, pool types.Address) types.Address {
	return derive([]byte(positionSeed), owner[:], pool[:])
}

// Bump returns the derivation evidence byte stored alongside each record.
func Bump(addr types.Address) uint8 {
	return addr[types.AddressSize-1]
}

func derive(parts ...[]byte) types.Address {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 fails only for invalid key lengths; nil key cannot fail.
		panic(err)
	}
	for _, p := range parts {
		h.Write(p)
	}

	var addr types.Address
	copy(addr[:], h.Sum(nil))
	return addr
}
