package common

// AccountStorageOverhead is charged on top of every account's data length.
const AccountStorageOverhead = 128

// Rent prices account storage. Creating an account locks MinimumBalance
// lamports inside it; closing the account releases them.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionYears      uint64
}

// DefaultRent mirrors the common ledger defaults.
func DefaultRent() Rent {
	return Rent{LamportsPerByteYear: 3480, ExemptionYears: 2}
}

// MinimumBalance returns the lamports an account of size bytes must hold.
func (r Rent) MinimumBalance(size int) uint64 {
	if size < 0 {
		size = 0
	}
	return (AccountStorageOverhead + uint64(size)) * r.LamportsPerByteYear * r.ExemptionYears
}
