package security

import (
	"bytes"
	"testing"
	"time"
)

func TestEncryptDecryptTimestampRoundTrip(t *testing.T) {
	at := time.UnixMilli(1_712_345_678_901)
	token, err := EncryptTimestamp(testKey, testIV, at)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	millis, err := DecryptTimestamp(testKey, testIV, token)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if millis != at.UnixMilli() {
		t.Fatalf("expected %d, got %d", at.UnixMilli(), millis)
	}
}

func TestPKCS7(t *testing.T) {
	for _, size := range []int{0, 1, 15, 16, 17} {
		data := bytes.Repeat([]byte{'a'}, size)
		padded := pkcs7Pad(data, 16)
		if len(padded)%16 != 0 || len(padded) <= size {
			t.Fatalf("size %d: unexpected padded length %d", size, len(padded))
		}
		unpadded, err := pkcs7Unpad(padded, 16)
		if err != nil {
			t.Fatalf("size %d: unpad: %v", size, err)
		}
		if !bytes.Equal(unpadded, data) {
			t.Fatalf("size %d: roundtrip mismatch", size)
		}
	}

	broken := bytes.Repeat([]byte{3}, 16)
	broken[15] = 17
	if _, err := pkcs7Unpad(broken, 16); err != ErrInvalidPadding {
		t.Fatalf("expected invalid padding, got %v", err)
	}
}
