package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomString(t *testing.T) {
	str, err := RandomString(32)
	require.NoError(t, err)
	assert.Len(t, str, 32)

	str2, _ := RandomString(32)
	assert.NotEqual(t, str, str2)

	_, err = RandomString(0)
	assert.Error(t, err)
	_, err = RandomString(-5)
	assert.Error(t, err)
}

func TestEncryptDecryptAES(t *testing.T) {
	key := "test-encryption-key"
	for _, plaintext := range []string{
		"Hello World",
		"",
		"Special!@#$%^&*()",
		strings.Repeat("A", 1000),
	} {
		encrypted, err := EncryptAES(key, []byte(plaintext))
		require.NoError(t, err)

		decrypted, err := DecryptAES(key, encrypted)
		require.NoError(t, err)
		assert.Equal(t, plaintext, string(decrypted))
	}
}

func TestEncryptAES_DifferentKeys(t *testing.T) {
	plaintext := []byte("Secret Data")
	encrypted1, _ := EncryptAES("key1", plaintext)
	encrypted2, _ := EncryptAES("key2", plaintext)
	assert.NotEqual(t, encrypted1, encrypted2)
}

func TestDecryptAES_WrongKey(t *testing.T) {
	encrypted, _ := EncryptAES("correct-key", []byte("Data"))
	_, err := DecryptAES("wrong-key", encrypted)
	assert.Error(t, err)
}

func TestDecryptAES_InvalidData(t *testing.T) {
	_, err := DecryptAES("test-key", []byte{1, 2, 3})
	assert.Error(t, err)
	_, err = DecryptAES("test-key", []byte{})
	assert.Error(t, err)
}

func TestEncryptString(t *testing.T) {
	enc, err := EncryptString("audit-key", "POST /api/batches")
	require.NoError(t, err)
	assert.NotEqual(t, "POST /api/batches", enc)
	assert.Equal(t, "POST /api/batches", DecryptString("audit-key", enc))

	// wrong key leaves the stored value untouched
	assert.Equal(t, enc, DecryptString("other-key", enc))

	plain, err := EncryptString("", "visible")
	require.NoError(t, err)
	assert.Equal(t, "visible", plain)
}

func BenchmarkEncryptAES(b *testing.B) {
	key := "bench-key"
	data := []byte("Benchmark data")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		EncryptAES(key, data)
	}
}

func BenchmarkDecryptAES(b *testing.B) {
	key := "bench-key"
	data := []byte("Benchmark data")
	encrypted, _ := EncryptAES(key, data)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		DecryptAES(key, encrypted)
	}
}
