package events

import (
	"strconv"

	"nftmarket/core/types"
	"nftmarket/crypto"
)

const (
	// TypeTransfer is emitted for direct lamport transfers between wallets.
	TypeTransfer = "bank.transfer"
)

type Transfer struct {
	From     crypto.Address
	To       crypto.Address
	Lamports uint64
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	return &types.Event{Type: TypeTransfer, Attributes: map[string]string{
		"from":     e.From.String(),
		"to":       e.To.String(),
		"lamports": strconv.FormatUint(e.Lamports, 10),
	}}
}
