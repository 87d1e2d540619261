package state

import "nftmarket/crypto"

var (
	accountPrefix = []byte("account/")
	noncePrefix   = []byte("nonce/")
	kvPrefix      = []byte("kv/")
)

func accountKey(addr crypto.Address) []byte {
	buf := make([]byte, len(accountPrefix)+crypto.AddressLength)
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], addr[:])
	return buf
}

func nonceKey(addr crypto.Address) []byte {
	buf := make([]byte, len(noncePrefix)+crypto.AddressLength)
	copy(buf, noncePrefix)
	copy(buf[len(noncePrefix):], addr[:])
	return buf
}

func kvKey(key []byte) []byte {
	buf := make([]byte, len(kvPrefix)+len(key))
	copy(buf, kvPrefix)
	copy(buf[len(kvPrefix):], key)
	return buf
}
