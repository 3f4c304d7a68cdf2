/*

This file contains the per-staker position record and its wire encoding.

*/

package types

import (
	"encoding/binary"
	"fmt"
)

// PositionSize is the exact encoded size of a Position record.
//
// Layout (little-endian integers, fixed offsets):
//
//	[0:32]  owner
//	[32:64] agent_pool (record address of the owning pool)
//	[64:72] initial_stake (u64)
//	[72:80] share_bps (u64)
//	[80:88] stake_timestamp (i64, unix seconds)
//	[88]    bump (u8)
const PositionSize = 89

// Position is one staker's claim on one pool. ShareBps is fixed at stake time
// and never rebased; the claim is settled against the vault's live balance at
// withdrawal. A (owner, pool) pair holds at most one open position because the
// position's record address is derived from exactly that pair.
type Position struct {
	Owner          Address `json:"owner"`
	AgentPool      Address `json:"agent_pool"`
	InitialStake   uint64  `json:"initial_stake"`
	ShareBps       uint64  `json:"share_bps"`
	StakeTimestamp int64   `json:"stake_timestamp"`
	Bump           uint8   `json:"bump"`
}

// Marshal encodes the position into its fixed 89-byte layout.
func (p *Position) Marshal() []byte {
	buf := make([]byte, PositionSize)
	copy(buf[0:32], p.Owner[:])
	copy(buf[32:64], p.AgentPool[:])
	binary.LittleEndian.PutUint64(buf[64:72], p.InitialStake)
	binary.LittleEndian.PutUint64(buf[72:80], p.ShareBps)
	binary.LittleEndian.PutUint64(buf[80:88], uint64(p.StakeTimestamp))
	buf[88] = p.Bump
	return buf
}

// UnmarshalPosition decodes a position record from its fixed layout.
func UnmarshalPosition(data []byte) (*Position, error) {
	if len(data) != PositionSize {
		return nil, fmt.Errorf("position record must be %d bytes, got %d", PositionSize, len(data))
	}

	p := &Position{}
	copy(p.Owner[:], data[0:32])
	copy(p.AgentPool[:], data[32:64])
	p.InitialStake = binary.LittleEndian.Uint64(data[64:72])
	p.ShareBps = binary.LittleEndian.Uint64(data[72:80])
	p.StakeTimestamp = int64(binary.LittleEndian.Uint64(data[80:88]))
	p.Bump = data[88]
	return p, nil
}
