package vesting

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// UIAmount formats a base-unit amount with the mint's decimal places,
// e.g. 2500000 with 6 decimals is "2.500000".
func UIAmount(amount uint64, decimals uint8) string {
	if amount > uint64(1<<63-1) {
		return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals)).StringFixed(int32(decimals))
	}
	return decimal.New(int64(amount), -int32(decimals)).StringFixed(int32(decimals))
}
