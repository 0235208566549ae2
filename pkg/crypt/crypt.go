package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

const ivSize = 12
const tagSize = aes.BlockSize
const versionMagic = byte('S')

// SymmetricCipher encrypts and decrypts token material at rest. The aad
// argument binds ciphertext to its owning record so material copied between
// rows fails authentication on read.
type SymmetricCipher interface {
	Decrypt(aad, packedText []byte) ([]byte, error)
	Encrypt(aad, plainText []byte) ([]byte, error)
}

type Symmetric struct {
	aesgcm cipher.AEAD
}

// NewSymmetric creates an AES-GCM cipher from a raw key. The key must be
// 16, 24 or 32 bytes (32 for the standard data key).
func NewSymmetric(key []byte) (SymmetricCipher, error) {
	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aesgcm, err := cipher.NewGCM(c)
	if err != nil {
		return nil, err
	}

	return &Symmetric{aesgcm: aesgcm}, nil
}

func (s Symmetric) Decrypt(aad, packedText []byte) ([]byte, error) {
	if len(packedText) < 1+tagSize+ivSize {
		return nil, errors.New("ciphertext block size is too short")
	}
	if packedText[0] != versionMagic {
		return nil, errors.New("unrecognized ciphertext version")
	}

	cipherText, iv := UnpackCipherData(packedText)

	return s.aesgcm.Open(nil, iv, cipherText, aad)
}

func RandomNonce() ([]byte, error) {
	// Never use more than 2^32 random nonces with a given key because of
	// the risk of a repeat.
	return RandomBytes(ivSize)
}

func RandomBytes(size int) ([]byte, error) {
	value := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, value); err != nil {
		return nil, err
	}

	return value, nil
}

func (s Symmetric) encrypt(aad, plainText, nonce []byte) ([]byte, error) {
	if len(nonce) < ivSize {
		return nil, errors.New("nonce size is too short")
	}

	cipherTextWithTag := s.aesgcm.Seal(nil, nonce, plainText, aad)
	packedText := PackCipherData(cipherTextWithTag, nonce)

	return packedText, nil
}

func (s Symmetric) Encrypt(aad, plainText []byte) ([]byte, error) {
	nonce, err := RandomNonce()
	if err != nil {
		return nil, err
	}

	return s.encrypt(aad, plainText, nonce)
}

// PackCipherData lays ciphertext out as "magic | tag | iv | ctext" so a
// stored blob is self-describing.
func PackCipherData(cipherTextWithTag []byte, iv []byte) []byte {
	iv = iv[:ivSize]

	tagStartIndex := len(cipherTextWithTag) - tagSize
	tag := cipherTextWithTag[tagStartIndex:]
	cipherText := cipherTextWithTag[:tagStartIndex]

	dataLength := 1 + tagSize + ivSize + len(cipherText)
	data := make([]byte, dataLength)

	data[0] = versionMagic
	index := 1

	copy(data[index:], tag)
	index += tagSize

	copy(data[index:], iv)
	index += ivSize

	copy(data[index:], cipherText)

	return data
}

func UnpackCipherData(packedText []byte) ([]byte, []byte) {
	// "magic | tag | iv | ctext"
	index := 1

	nextIndex := index + tagSize
	tag := packedText[index:nextIndex]
	index = nextIndex

	nextIndex = index + ivSize
	iv := packedText[index:nextIndex]
	index = nextIndex

	cipherText := append(packedText[index:], tag...)

	return cipherText, iv
}
