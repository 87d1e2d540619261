package metadata

import (
	"nftmarket/core/types"
	"nftmarket/crypto"
	"nftmarket/native/common"
)

const (
	opCreateMetadata      byte = 0x01
	opCreateMasterEdition byte = 0x02
	opVerifyCollection    byte = 0x03
	opUnverifyCollection  byte = 0x04
)

// MasterEditionArgs is the payload of a create-master-edition instruction.
type MasterEditionArgs struct {
	MaxSupply uint64
}

// Program dispatches metadata instructions.
type Program struct{}

func NewProgram() *Program { return &Program{} }

func (*Program) ID() crypto.Address { return ProgramID }
func (*Program) Name() string       { return "metadata" }

func (*Program) Describe(data []byte) string {
	if len(data) == 0 {
		return "unknown"
	}
	switch data[0] {
	case opCreateMetadata:
		return "create_metadata"
	case opCreateMasterEdition:
		return "create_master_edition"
	case opVerifyCollection:
		return "verify_collection"
	case opUnverifyCollection:
		return "unverify_collection"
	}
	return "unknown"
}

// Execute decodes and runs a metadata instruction.
//
//	create_metadata:       [payer, metadata, mint]
//	create_master_edition: [payer, edition, mint, metadata]
//	(un)verify_collection: [metadata, collectionMint, collectionMetadata, authority]
func (*Program) Execute(ctx *common.Context, accounts []crypto.Address, data []byte) error {
	op, payload, err := common.SplitInstruction(data)
	if err != nil {
		return err
	}
	switch op {
	case opCreateMetadata:
		if err := common.RequireAccounts(accounts, 3); err != nil {
			return err
		}
		var args CreateArgs
		if err := common.DecodePayload(payload, &args); err != nil {
			return err
		}
		want, _, err := MetadataAddress(accounts[2])
		if err != nil {
			return err
		}
		if err := common.ExpectAddress("metadata", accounts[1], want); err != nil {
			return err
		}
		_, err = CreateMetadata(ctx, accounts[0], accounts[2], &args)
		return err
	case opCreateMasterEdition:
		if err := common.RequireAccounts(accounts, 4); err != nil {
			return err
		}
		var args MasterEditionArgs
		if err := common.DecodePayload(payload, &args); err != nil {
			return err
		}
		want, _, err := EditionAddress(accounts[2])
		if err != nil {
			return err
		}
		if err := common.ExpectAddress("master edition", accounts[1], want); err != nil {
			return err
		}
		_, err = CreateMasterEdition(ctx, accounts[0], accounts[2], args.MaxSupply)
		return err
	case opVerifyCollection, opUnverifyCollection:
		if err := common.RequireAccounts(accounts, 4); err != nil {
			return err
		}
		want, _, err := MetadataAddress(accounts[1])
		if err != nil {
			return err
		}
		if err := common.ExpectAddress("collection metadata", accounts[2], want); err != nil {
			return err
		}
		if op == opVerifyCollection {
			return VerifyCollection(ctx, accounts[0], accounts[1], accounts[3])
		}
		return UnverifyCollection(ctx, accounts[0], accounts[1], accounts[3])
	default:
		return common.ErrInvalidInstruction
	}
}

func instruction(op byte, payload interface{}, accounts ...crypto.Address) (types.Instruction, error) {
	data, err := common.EncodeInstruction(op, payload)
	if err != nil {
		return types.Instruction{}, err
	}
	return types.Instruction{Program: ProgramID, Accounts: accounts, Data: data}, nil
}

// NewCreateMetadataInstruction attaches metadata to mint. The mint authority
// must sign.
func NewCreateMetadataInstruction(payer, mint crypto.Address, args *CreateArgs) (types.Instruction, error) {
	addr, _, err := MetadataAddress(mint)
	if err != nil {
		return types.Instruction{}, err
	}
	return instruction(opCreateMetadata, args, payer, addr, mint)
}

// NewCreateMasterEditionInstruction seals a single-unit mint.
func NewCreateMasterEditionInstruction(payer, mint crypto.Address, maxSupply uint64) (types.Instruction, error) {
	edition, _, err := EditionAddress(mint)
	if err != nil {
		return types.Instruction{}, err
	}
	meta, _, err := MetadataAddress(mint)
	if err != nil {
		return types.Instruction{}, err
	}
	return instruction(opCreateMasterEdition, &MasterEditionArgs{MaxSupply: maxSupply}, payer, edition, mint, meta)
}

// NewVerifyCollectionInstruction verifies (or clears) the collection claim of
// mint. authority is the collection's update authority.
func NewVerifyCollectionInstruction(mint, collectionMint, authority crypto.Address, verified bool) (types.Instruction, error) {
	meta, _, err := MetadataAddress(mint)
	if err != nil {
		return types.Instruction{}, err
	}
	collectionMeta, _, err := MetadataAddress(collectionMint)
	if err != nil {
		return types.Instruction{}, err
	}
	op := opVerifyCollection
	if !verified {
		op = opUnverifyCollection
	}
	return instruction(op, nil, meta, collectionMint, collectionMeta, authority)
}
