package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeClaimID computes a deterministic claim_id using SHA256.
// Formula: SHA256(schedule_address|claimed_before|claimed_after|claimed_at)
// Returns hex-encoded hash (64 characters).
//
// claimed_before strictly increases across successful claims of one schedule,
// so two claims never share an ID.
func ComputeClaimID(
	scheduleAddress string,
	claimedBefore uint64,
	claimedAfter uint64,
	claimedAt int64,
) string {
	data := fmt.Sprintf("%s|%d|%d|%d",
		scheduleAddress,
		claimedBefore,
		claimedAfter,
		claimedAt,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
