package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	KeySize = 32
	IVSize  = aes.BlockSize
)

var (
	ErrInvalidKeySize = errors.New("security: key must be 32 bytes")
	ErrInvalidIVSize  = errors.New("security: iv must be 16 bytes")
	ErrInvalidPadding = errors.New("security: invalid pkcs7 padding")
)

// EncryptTimestamp renders t as epoch milliseconds and seals it with
// AES-256-CBC. The result is the value of the X-Encrypted-Timestamp header.
func EncryptTimestamp(key []byte, iv []byte, t time.Time) (string, error) {
	sealed, err := encryptCBC(key, iv, []byte(strconv.FormatInt(t.UnixMilli(), 10)))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptTimestamp opens a header token and returns its epoch milliseconds.
func DecryptTimestamp(key []byte, iv []byte, token string) (int64, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return 0, fmt.Errorf("security: decode token: %w", err)
	}
	plaintext, err := decryptCBC(key, iv, raw)
	if err != nil {
		return 0, err
	}
	millis, err := strconv.ParseInt(strings.TrimSpace(string(plaintext)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("security: parse timestamp: %w", err)
	}
	return millis, nil
}

func newBlock(key []byte, iv []byte) (cipher.Block, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	if len(iv) != IVSize {
		return nil, ErrInvalidIVSize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("security: create cipher: %w", err)
	}
	return block, nil
}

func encryptCBC(key []byte, iv []byte, plaintext []byte) ([]byte, error) {
	block, err := newBlock(key, iv)
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

func decryptCBC(key []byte, iv []byte, ciphertext []byte) ([]byte, error) {
	block, err := newBlock(key, iv)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("security: ciphertext is not a whole number of blocks")
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out, block.BlockSize())
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(append([]byte(nil), data...), bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrInvalidPadding
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-padding], nil
}
