package internal

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
)

// Algorithm selects the digest flavour of the ePay.bg checksum scheme.
type Algorithm string

const (
	MD5  Algorithm = "md5"
	SHA1 Algorithm = "sha1"
)

// hmacBlockSize is the key block length of both supported digests.
const hmacBlockSize = 64

// Sign computes the keyed digest ePay.bg expects over data and returns it
// as lowercase hex text.
//
// The construction mirrors the service's reference implementation exactly:
// a secret longer than one block is replaced by its digest repacked from
// the hex text form into raw bytes, a shorter secret is right-padded with
// zero bytes to the block size, and the inner digest is likewise repacked
// from hex before the outer pass. Any deviation here produces checksums
// the remote service rejects.
func Sign(algo Algorithm, data, secret []byte) string {
	key := secret
	if len(key) > hmacBlockSize {
		key = packHex(digest(algo, key))
	}
	if len(key) < hmacBlockSize {
		padded := make([]byte, hmacBlockSize)
		copy(padded, key)
		key = padded
	}

	ipad := make([]byte, hmacBlockSize)
	opad := make([]byte, hmacBlockSize)
	for i := 0; i < hmacBlockSize; i++ {
		ipad[i] = key[i] ^ 0x36
		opad[i] = key[i] ^ 0x5C
	}

	inner := digest(algo, append(ipad, data...))
	return digest(algo, append(opad, packHex(inner)...))
}

// digest hashes data with the selected algorithm and returns hex text.
func digest(algo Algorithm, data []byte) string {
	if algo == MD5 {
		sum := md5.Sum(data)
		return hex.EncodeToString(sum[:])
	}
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// packHex decodes a hex digest string back into its raw bytes,
// two hex characters per byte.
func packHex(hexDigest string) []byte {
	raw, err := hex.DecodeString(hexDigest)
	if err != nil {
		// digest always produces valid hex; unreachable for our inputs
		return nil
	}
	return raw
}
