package genesis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"nftmarket/crypto"
	"nftmarket/native/common"
)

// Spec is the JSON document that seeds a fresh ledger with wallet balances.
//
//	{
//	  "network": "market-local",
//	  "genesisTime": "2024-01-01T00:00:00Z",
//	  "alloc": {"mkt1...": "5000000000"}
//	}
type Spec struct {
	Network     string            `json:"network,omitempty"`
	GenesisTime string            `json:"genesisTime"`
	Alloc       map[string]string `json:"alloc"`

	time        time.Time
	allocations []Allocation
	supply      uint64
}

// Allocation is one validated genesis balance.
type Allocation struct {
	Address  crypto.Address
	Lamports uint64
}

// ErrNetworkMismatch is returned by CheckNetwork when the document was written
// for another network.
var ErrNetworkMismatch = errors.New("genesis: network mismatch")

// Load reads, decodes and validates the genesis document at path. Unknown
// fields are rejected so typos fail loudly.
func Load(path string) (*Spec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("genesis: path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("genesis: read %q: %w", path, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var spec Spec
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("genesis: decode %q: %w", path, err)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("genesis: %q: %w", path, err)
	}
	return &spec, nil
}

func (s *Spec) Time() time.Time { return s.time }

// Supply is the sum of every allocation.
func (s *Spec) Supply() uint64 { return s.supply }

// Allocations returns the balances in address order.
func (s *Spec) Allocations() []Allocation {
	return append([]Allocation(nil), s.allocations...)
}

// CheckNetwork rejects a document pinned to a different network. Documents
// without a network apply anywhere.
func (s *Spec) CheckNetwork(network string) error {
	if s.Network == "" || s.Network == network {
		return nil
	}
	return fmt.Errorf("%w: document=%q node=%q", ErrNetworkMismatch, s.Network, network)
}

func (s *Spec) validate() error {
	if strings.TrimSpace(s.GenesisTime) == "" {
		return errors.New("genesisTime must be provided")
	}
	ts, err := time.Parse(time.RFC3339, s.GenesisTime)
	if err != nil {
		return fmt.Errorf("invalid genesisTime: %w", err)
	}
	if ts.Unix() < 0 {
		return fmt.Errorf("genesisTime %s precedes the unix epoch", s.GenesisTime)
	}
	s.time = ts.UTC()

	byAddr := make(map[crypto.Address]uint64, len(s.Alloc))
	for text, amount := range s.Alloc {
		addr, err := crypto.DecodeAddress(text)
		if err != nil {
			return fmt.Errorf("alloc[%q]: %w", text, err)
		}
		if _, dup := byAddr[addr]; dup {
			return fmt.Errorf("alloc[%q]: address listed twice", text)
		}
		lamports, err := strconv.ParseUint(strings.TrimSpace(amount), 10, 64)
		if err != nil {
			return fmt.Errorf("alloc[%q]: invalid amount %q", text, amount)
		}
		byAddr[addr] = lamports
	}

	s.allocations = make([]Allocation, 0, len(byAddr))
	s.supply = 0
	for addr, lamports := range byAddr {
		s.allocations = append(s.allocations, Allocation{Address: addr, Lamports: lamports})
		if s.supply, err = common.CheckedAdd(s.supply, lamports); err != nil {
			return fmt.Errorf("total supply: %w", err)
		}
	}
	sort.Slice(s.allocations, func(i, j int) bool {
		return s.allocations[i].Address.Less(s.allocations[j].Address)
	})
	return nil
}
