// Package cipher provides the symmetric secret cipher used for credential
// storage. Ciphertext produced here is deterministic: the same key and
// plaintext always yield the same output. That keeps stored tokens
// byte-comparable across writes but sacrifices semantic security -- callers
// must not rely on ciphertext unlinkability.
package cipher

import (
	"bytes"
	"crypto/aes"
	"encoding/base64"
	"errors"
)

// keySize is the AES-256 key length the configured passphrase is normalized to.
const keySize = 32

// keyFiller pads short passphrases up to keySize. Zero-entropy padding is a
// known weakness of the key derivation; operators should supply a full
// 32-byte key.
const keyFiller = '0'

// ErrCipher is the only error ever returned by Encrypt and Decrypt. The
// underlying cryptographic fault is deliberately withheld so callers cannot
// be used as a padding or format oracle.
var ErrCipher = errors.New("cipher operation failed")

// Cipher encrypts and decrypts opaque secrets with a process-wide key.
type Cipher struct {
	key []byte
}

// New derives the cipher key from the configured passphrase: UTF-8 bytes,
// padded with '0' to 32 bytes when short, truncated when long.
func New(passphrase string) (*Cipher, error) {
	if passphrase == "" {
		return nil, errors.New("cipher passphrase must not be empty")
	}

	key := []byte(passphrase)
	if len(key) < keySize {
		padded := make([]byte, keySize)
		copy(padded, key)
		for i := len(key); i < keySize; i++ {
			padded[i] = keyFiller
		}
		key = padded
	} else if len(key) > keySize {
		key = key[:keySize]
	}

	return &Cipher{key: key}, nil
}

// Encrypt encrypts plaintext and returns a base64-encoded ciphertext.
// Encryption is ECB-mode AES with PKCS#7 padding: no IV, fully deterministic.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", ErrCipher
	}

	padded := pkcs7Pad([]byte(plaintext), block.BlockSize())
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += block.BlockSize() {
		block.Encrypt(out[i:i+block.BlockSize()], padded[i:i+block.BlockSize()])
	}

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. Any failure -- bad encoding, wrong length,
// invalid padding -- surfaces as the generic ErrCipher.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrCipher
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", ErrCipher
	}

	if len(data) == 0 || len(data)%block.BlockSize() != 0 {
		return "", ErrCipher
	}

	out := make([]byte, len(data))
	for i := 0; i < len(data); i += block.BlockSize() {
		block.Decrypt(out[i:i+block.BlockSize()], data[i:i+block.BlockSize()])
	}

	plain, ok := pkcs7Unpad(out, block.BlockSize())
	if !ok {
		return "", ErrCipher
	}

	return string(plain), nil
}

// pkcs7Pad appends PKCS#7 padding to reach a whole number of blocks.
func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

// pkcs7Unpad strips and validates PKCS#7 padding.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 {
		return nil, false
	}

	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, false
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, false
		}
	}

	return data[:len(data)-n], true
}
