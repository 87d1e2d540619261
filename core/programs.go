package core

import (
	"nftmarket/native/bank"
	"nftmarket/native/common"
	"nftmarket/native/marketplace"
	"nftmarket/native/metadata"
	"nftmarket/native/token"
)

// DefaultPrograms returns every native program the ledger ships with.
func DefaultPrograms() []common.Program {
	return []common.Program{
		bank.NewProgram(),
		token.NewProgram(),
		metadata.NewProgram(),
		marketplace.NewProgram(),
	}
}
