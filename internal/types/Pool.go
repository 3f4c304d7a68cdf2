/*

This file contains the pool record type and its fixed-width wire encoding.
The encoding is byte-compatible with the on-chain account layout, so records
written by this service can be replayed against historical account dumps.

*/

package types

import (
	"encoding/binary"
	"fmt"
)

// PoolStateSize is the exact encoded size of a PoolState record.
//
// Layout (little-endian integers, fixed offsets):
//
//	[0:32]    agent
//	[32:40]   total_staked (u64)
//	[40:72]   fee_destination
//	[72:104]  vault
//	[104]     paused (u8, 0 or 1)
//	[105:113] total_shares_bps (u64)
//	[113]     bump (u8)
//	[114]     emergency_mode (u8, 0 or 1)
const PoolStateSize = 115

// PoolState is the aggregate record for one agent's pool. TotalStaked tracks
// net-of-fee principal attributed to open positions; it is moved only by stake
// and withdraw, never by trading activity inside the vault.
type PoolState struct {
	Agent          Address `json:"agent"`
	TotalStaked    uint64  `json:"total_staked"`
	FeeDestination Address `json:"fee_destination"`
	Vault          Address `json:"vault"`
	Paused         bool    `json:"paused"`
	TotalSharesBps uint64  `json:"total_shares_bps"`
	Bump           uint8   `json:"bump"`
	EmergencyMode  bool    `json:"emergency_mode"`
}

// Marshal encodes the pool record into its fixed 115-byte layout.
func (p *PoolState) Marshal() []byte {
	buf := make([]byte, PoolStateSize)
	copy(buf[0:32], p.Agent[:])
	binary.LittleEndian.PutUint64(buf[32:40], p.TotalStaked)
	copy(buf[40:72], p.FeeDestination[:])
	copy(buf[72:104], p.Vault[:])
	buf[104] = boolByte(p.Paused)
	binary.LittleEndian.PutUint64(buf[105:113], p.TotalSharesBps)
	buf[113] = p.Bump
	buf[114] = boolByte(p.EmergencyMode)
	return buf
}

// UnmarshalPoolState decodes a pool record from its fixed layout.
func UnmarshalPoolState(data []byte) (*PoolState, error) {
	if len(data) != PoolStateSize {
		return nil, fmt.Errorf("pool record must be %d bytes, got %d", PoolStateSize, len(data))
	}

	p := &PoolState{}
	copy(p.Agent[:], data[0:32])
	p.TotalStaked = binary.LittleEndian.Uint64(data[32:40])
	copy(p.FeeDestination[:], data[40:72])
	copy(p.Vault[:], data[72:104])
	p.Paused = data[104] != 0
	p.TotalSharesBps = binary.LittleEndian.Uint64(data[105:113])
	p.Bump = data[113]
	p.EmergencyMode = data[114] != 0
	return p, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
