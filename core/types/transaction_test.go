package types

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nftmarket/crypto"
)

func TestTransactionSignersRecoverKeys(t *testing.T) {
	payer, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	cosigner, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	tx := &Transaction{
		Payer: payer.Address(),
		Nonce: 7,
		Instructions: []Instruction{{
			Program:  crypto.Address{0x01},
			Accounts: []crypto.Address{payer.Address()},
			Data:     []byte{0x01, 0x02},
		}},
	}
	require.NoError(t, tx.Sign(payer))
	require.NoError(t, tx.Sign(cosigner))
	require.NoError(t, tx.ValidateBasic())

	signers, err := tx.Signers()
	require.NoError(t, err)
	require.Equal(t, []crypto.Address{payer.Address(), cosigner.Address()}, signers)

	encoded, err := tx.Encode()
	require.NoError(t, err)
	decoded, err := DecodeTransaction(encoded)
	require.NoError(t, err)
	decodedSigners, err := decoded.Signers()
	require.NoError(t, err)
	require.Equal(t, signers, decodedSigners)
}

func TestTransactionTamperChangesSigner(t *testing.T) {
	payer, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	tx := &Transaction{
		Payer:        payer.Address(),
		Instructions: []Instruction{{Program: crypto.Address{0x02}}},
	}
	require.NoError(t, tx.Sign(payer))

	tampered := &Transaction{
		Payer:        tx.Payer,
		Nonce:        tx.Nonce + 1,
		Instructions: tx.Instructions,
		Signatures:   tx.Signatures,
	}
	signers, err := tampered.Signers()
	if err == nil {
		require.NotEqual(t, payer.Address(), signers[0])
	}
}

func TestTransactionDuplicateSignature(t *testing.T) {
	payer, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	tx := &Transaction{Payer: payer.Address(), Instructions: []Instruction{{Program: crypto.Address{0x03}}}}
	require.NoError(t, tx.Sign(payer))
	require.NoError(t, tx.Sign(payer))
	_, err = tx.Signers()
	require.ErrorIs(t, err, ErrDuplicateSigner)
}

func TestTransactionValidateBasic(t *testing.T) {
	tx := &Transaction{}
	require.ErrorIs(t, tx.ValidateBasic(), ErrNoInstructions)
	tx.Instructions = make([]Instruction, MaxInstructions+1)
	require.ErrorIs(t, tx.ValidateBasic(), ErrTooManyInstr)
	tx.Instructions = tx.Instructions[:1]
	require.ErrorIs(t, tx.ValidateBasic(), ErrMissingSignatures)
}
