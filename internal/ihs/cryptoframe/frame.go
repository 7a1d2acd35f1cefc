// Package cryptoframe implements the per-message encryption scheme of
// spec.md §4.3: an HMAC-MD5-derived IV, AES-128-CBC-PKCS7 payload
// encryption, and a strictly increasing per-channel sequence number that is
// carried inside the plaintext (not the wire header).
//
// Primitives are pinned to the standard library (crypto/aes, crypto/cipher,
// crypto/hmac, crypto/md5, crypto/sha256) because the protocol fixes the
// exact algorithms bit-for-bit; see SPEC_FULL.md's DOMAIN STACK section for
// why no third-party crypto library is substituted here.
package cryptoframe

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	protoerr "github.com/alxayo/go-ihs/internal/errors"
)

const (
	ivSize  = 16
	aesKeySize = 16
)

// AuthTokenMessage is the literal ASCII string HMAC'd with the session key to
// produce the authentication request token (spec.md §4.3).
const AuthTokenMessage = "Steam In-Home Streaming"

// ComputeAuthToken returns HMAC-SHA-256(sessionKey, "Steam In-Home Streaming").
func ComputeAuthToken(sessionKey []byte) []byte {
	mac := hmac.New(sha256.New, sessionKey)
	mac.Write([]byte(AuthTokenMessage))
	return mac.Sum(nil)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("cryptoframe: invalid padded length %d", len(data))
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > aes.BlockSize || padLen > len(data) {
		return nil, fmt.Errorf("cryptoframe: invalid pkcs7 padding")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("cryptoframe: malformed pkcs7 padding")
		}
	}
	return data[:len(data)-padLen], nil
}

// Encrypt forms plain = LE64(sequence) || plaintext, derives
// iv = HMAC-MD5(sessionKey, plain), and returns iv || AES-128-CBC-PKCS7
// (key=sessionKey, iv=iv, data=plain).
func Encrypt(sessionKey []byte, sequence uint64, plaintext []byte) ([]byte, error) {
	if len(sessionKey) < aesKeySize {
		return nil, fmt.Errorf("cryptoframe: session key too short")
	}
	plain := make([]byte, 8+len(plaintext))
	binary.LittleEndian.PutUint64(plain[:8], sequence)
	copy(plain[8:], plaintext)

	mac := hmac.New(md5.New, sessionKey[:aesKeySize])
	mac.Write(plain)
	iv := mac.Sum(nil)

	block, err := aes.NewCipher(sessionKey[:aesKeySize])
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plain, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	out := make([]byte, ivSize+len(ciphertext))
	copy(out, iv)
	copy(out[ivSize:], ciphertext)
	return out, nil
}

// DecryptResult reports the outcome of Decrypt.
type DecryptResult struct {
	Plaintext     []byte
	ActualSeq     uint64
	SequenceJump  bool // actual > expected: caller should advance its expectation
	NewExpected   uint64
}

// Decrypt reverses Encrypt, verifying the HMAC and sequence discipline of
// spec.md §4.3:
//   - HMAC mismatch -> CryptoError (caller drops silently per §7)
//   - actual < expected -> CryptoError "old sequence" (drop)
//   - actual == expected -> OK
//   - actual > expected -> OK, with SequenceJump=true and NewExpected=actual+1
func Decrypt(sessionKey []byte, expected uint64, frame []byte) (DecryptResult, error) {
	if len(sessionKey) < aesKeySize {
		return DecryptResult{}, fmt.Errorf("cryptoframe: session key too short")
	}
	if len(frame) < ivSize+aes.BlockSize {
		return DecryptResult{}, protoerr.NewCryptoError("decrypt", fmt.Errorf("frame too short"))
	}
	iv := frame[:ivSize]
	ciphertext := frame[ivSize:]
	if len(ciphertext)%aes.BlockSize != 0 {
		return DecryptResult{}, protoerr.NewCryptoError("decrypt", fmt.Errorf("ciphertext not block aligned"))
	}

	block, err := aes.NewCipher(sessionKey[:aesKeySize])
	if err != nil {
		return DecryptResult{}, err
	}
	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)
	plain, err := pkcs7Unpad(padded)
	if err != nil {
		return DecryptResult{}, protoerr.NewCryptoError("decrypt.unpad", err)
	}

	mac := hmac.New(md5.New, sessionKey[:aesKeySize])
	mac.Write(plain)
	wantIV := mac.Sum(nil)
	if !hmac.Equal(wantIV, iv) {
		return DecryptResult{}, protoerr.NewCryptoError("decrypt.hmac", fmt.Errorf("hash mismatch"))
	}

	if len(plain) < 8 {
		return DecryptResult{}, protoerr.NewCryptoError("decrypt", fmt.Errorf("plaintext too short for sequence"))
	}
	actual := binary.LittleEndian.Uint64(plain[:8])
	payload := plain[8:]

	if actual < expected {
		return DecryptResult{}, protoerr.NewCryptoError("decrypt.sequence", fmt.Errorf("old sequence %d < expected %d", actual, expected))
	}
	res := DecryptResult{Plaintext: payload, ActualSeq: actual}
	if actual > expected {
		res.SequenceJump = true
		res.NewExpected = actual + 1
	}
	return res, nil
}

// ZeroIVDecrypt decrypts AES-128-CBC-PKCS7 with an all-zero IV, used for
// Encrypted video partials (spec.md §4.7, flag 0x20).
func ZeroIVDecrypt(sessionKey, ciphertext []byte) ([]byte, error) {
	if len(sessionKey) < aesKeySize {
		return nil, fmt.Errorf("cryptoframe: session key too short")
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, protoerr.NewCryptoError("zeroiv.decrypt", fmt.Errorf("ciphertext not block aligned"))
	}
	block, err := aes.NewCipher(sessionKey[:aesKeySize])
	if err != nil {
		return nil, err
	}
	var zeroIV [ivSize]byte
	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, zeroIV[:]).CryptBlocks(padded, ciphertext)
	return pkcs7Unpad(padded)
}

