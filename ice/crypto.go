package ice

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"hash/crc32"
)

// CryptoFunctions is the injected table of primitives spec.md §6 requires
// the embedder to supply at Init: the engine never links a crypto backend
// of its own, so embedders can choose their implementation (or substitute
// deterministic fakes in tests).
type CryptoFunctions struct {
	// Random fills buf with cryptographically random bytes.
	Random func(buf []byte) IceResult

	// CRC32 computes the IEEE CRC-32 of buf, seeded by seed (0 for a fresh
	// computation), matching hash/crc32's incremental-update convention.
	CRC32 func(seed uint32, buf []byte) (uint32, IceResult)

	// HMACSHA1 computes the HMAC-SHA1 of buf keyed by key, writing the
	// 20-byte result into out (which must have length >= 20).
	HMACSHA1 func(key []byte, buf []byte, out []byte) IceResult

	// MD5 computes the MD5 digest of buf, writing the 16-byte result into
	// out (which must have length >= 16).
	MD5 func(buf []byte, out []byte) IceResult
}

// DefaultCryptoFunctions returns a CryptoFunctions table backed by the Go
// standard library. It is a convenience for embedders and tests that don't
// need to substitute their own backend; the engine itself never calls these
// functions directly, only through the injected table on Context.
func DefaultCryptoFunctions() CryptoFunctions {
	return CryptoFunctions{
		Random: func(buf []byte) IceResult {
			if _, err := rand.Read(buf); err != nil {
				return ResultStunError
			}
			return ResultOK
		},
		CRC32: func(seed uint32, buf []byte) (uint32, IceResult) {
			return crc32.Update(seed, crc32.IEEETable, buf), ResultOK
		},
		HMACSHA1: func(key []byte, buf []byte, out []byte) IceResult {
			if len(out) < sha1.Size {
				return ResultHmacError
			}
			mac := hmac.New(sha1.New, key)
			mac.Write(buf)
			copy(out, mac.Sum(nil))
			return ResultOK
		},
		MD5: func(buf []byte, out []byte) IceResult {
			if len(out) < md5.Size {
				return ResultHmacError
			}
			sum := md5.Sum(buf)
			copy(out, sum[:])
			return ResultOK
		},
	}
}

func (c *CryptoFunctions) valid() bool {
	return c.Random != nil && c.CRC32 != nil && c.HMACSHA1 != nil && c.MD5 != nil
}

func (c *CryptoFunctions) randomTransactionID() (TransactionID, IceResult) {
	var id TransactionID
	if res := c.Random(id[:]); res != ResultOK {
		return id, res
	}
	return id, ResultOK
}
