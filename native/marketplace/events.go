package marketplace

import (
	"strconv"

	"nftmarket/core/types"
	"nftmarket/crypto"
)

const (
	EventTypeInitialized = "marketplace.initialized"
	EventTypeListed      = "marketplace.listed"
	EventTypeDelisted    = "marketplace.delisted"
	EventTypePurchased   = "marketplace.purchased"
)

// NewInitializedEvent returns the payload emitted when a marketplace is
// created.
func NewInitializedEvent(addr crypto.Address, m *Marketplace) *types.Event {
	attrs := map[string]string{"marketplace": addr.String()}
	if m != nil {
		attrs["name"] = m.Name
		attrs["admin"] = m.Admin.String()
		attrs["feeBps"] = strconv.FormatUint(uint64(m.FeeBps), 10)
	}
	return &types.Event{Type: EventTypeInitialized, Attributes: attrs}
}

// NewListedEvent returns the payload emitted when an asset enters escrow.
func NewListedEvent(market, addr crypto.Address, l *Listing) *types.Event {
	return newListingEvent(EventTypeListed, market, addr, l)
}

// NewDelistedEvent returns the payload emitted when a seller withdraws.
func NewDelistedEvent(market, addr crypto.Address, l *Listing) *types.Event {
	return newListingEvent(EventTypeDelisted, market, addr, l)
}

// NewPurchasedEvent returns the payload emitted on a completed sale.
func NewPurchasedEvent(market, addr crypto.Address, l *Listing, buyer crypto.Address, fee, proceeds uint64) *types.Event {
	evt := newListingEvent(EventTypePurchased, market, addr, l)
	evt.Attributes["buyer"] = buyer.String()
	evt.Attributes["fee"] = strconv.FormatUint(fee, 10)
	evt.Attributes["proceeds"] = strconv.FormatUint(proceeds, 10)
	return evt
}

func newListingEvent(eventType string, market, addr crypto.Address, l *Listing) *types.Event {
	attrs := map[string]string{
		"marketplace": market.String(),
		"listing":     addr.String(),
	}
	if l != nil {
		attrs["seller"] = l.Seller.String()
		attrs["mint"] = l.Mint.String()
		attrs["price"] = strconv.FormatUint(l.Price, 10)
		attrs["amount"] = strconv.FormatUint(l.Amount, 10)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
