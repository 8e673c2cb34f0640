////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package backup seals exported database images with a passphrase so they can
// leave the browser. A sealed image carries its own key-derivation parameters
// and can be opened by any build of this module.
package backup

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"
)

// Data lengths.
const (
	// keyLen is the length of the key derived from the passphrase.
	keyLen = chacha20poly1305.KeySize

	// saltLen is the length of the salt. Recommended to be 16 bytes here:
	// https://datatracker.ietf.org/doc/html/draft-irtf-cfrg-argon2-04#section-3.1
	saltLen = 16

	// headerLenSize is the size of the header length prefix.
	headerLenSize = 4

	// maxHeaderLen bounds the header so a corrupt length prefix cannot cause
	// a huge allocation.
	maxHeaderLen = 4096
)

// magic prefixes every sealed image so sealed and raw database images can be
// told apart.
var magic = []byte("LBSEALED")

// currentVersion of the sealed image layout.
const currentVersion = 1

// ErrDecrypt is returned when a sealed image cannot be decrypted with the
// provided passphrase.
var ErrDecrypt = errors.New("cannot decrypt image with provided passphrase")

// header describes how a sealed image was encrypted. It is stored as JSON in
// front of the ciphertext.
type header struct {
	Version uint   `json:"version"`
	Salt    []byte `json:"salt"`

	// Argon2 cost parameters.
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory"`
	Threads uint8  `json:"threads"`
}

// defaultHeader returns a header with a fresh salt and the recommended
// general-purpose Argon2 parameters.
func defaultHeader() (header, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return header{}, errors.Errorf("could not generate salt: %+v", err)
	}

	return header{
		Version: currentVersion,
		Salt:    salt,
		Time:    1,
		Memory:  64 * 1024, // ~64 MB
		Threads: 4,
	}, nil
}

// Seal encrypts the image with a key derived from the passphrase and wraps it
// in a self-describing envelope.
func Seal(image []byte, passphrase string) ([]byte, error) {
	hdr, err := defaultHeader()
	if err != nil {
		return nil, err
	}

	headerData, err := json.Marshal(hdr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to JSON marshal image header")
	}

	chaCipher := initChaCha20Poly1305(deriveKey(passphrase, hdr))
	nonce := make([]byte, chaCipher.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Errorf("could not generate nonce: %+v", err)
	}
	ciphertext := chaCipher.Seal(nonce, nonce, image, nil)

	sealed := bytes.NewBuffer(make(
		[]byte, 0, len(magic)+headerLenSize+len(headerData)+len(ciphertext)))
	sealed.Write(magic)
	lenPrefix := make([]byte, headerLenSize)
	binary.BigEndian.PutUint32(lenPrefix, uint32(len(headerData)))
	sealed.Write(lenPrefix)
	sealed.Write(headerData)
	sealed.Write(ciphertext)

	return sealed.Bytes(), nil
}

// Open decrypts a sealed image with the passphrase. It returns [ErrDecrypt]
// when the passphrase does not match.
func Open(sealed []byte, passphrase string) ([]byte, error) {
	if !IsSealed(sealed) {
		return nil, errors.New("data is not a sealed database image")
	}
	sealed = sealed[len(magic):]

	if len(sealed) < headerLenSize {
		return nil, errors.New("sealed image is truncated")
	}
	headerLen := binary.BigEndian.Uint32(sealed[:headerLenSize])
	sealed = sealed[headerLenSize:]
	if headerLen > maxHeaderLen || uint32(len(sealed)) < headerLen {
		return nil, errors.Errorf(
			"sealed image header length %d is invalid", headerLen)
	}

	var hdr header
	if err := json.Unmarshal(sealed[:headerLen], &hdr); err != nil {
		return nil, errors.Wrap(err, "failed to JSON unmarshal image header")
	}
	if hdr.Version != currentVersion {
		return nil, errors.Errorf(
			"cannot open sealed image version %d", hdr.Version)
	}

	chaCipher := initChaCha20Poly1305(deriveKey(passphrase, hdr))
	data := sealed[headerLen:]
	nonceLen := chaCipher.NonceSize()
	if len(data)-nonceLen <= 0 {
		return nil, errors.Errorf("read %d bytes, too short to decrypt",
			len(data))
	}

	nonce, ciphertext := data[:nonceLen], data[nonceLen:]
	image, err := chaCipher.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Wrapf(ErrDecrypt, "%+v", err)
	}
	return image, nil
}

// IsSealed reports whether the data carries the sealed image envelope.
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(data, magic)
}

// deriveKey derives a key from the passphrase and the header's salt and cost
// parameters via the Argon2 algorithm.
func deriveKey(passphrase string, hdr header) []byte {
	return argon2.IDKey([]byte(passphrase), hdr.Salt,
		hdr.Time, hdr.Memory, hdr.Threads, keyLen)
}

// initChaCha20Poly1305 returns a XChaCha20-Poly1305 cipher.AEAD that uses the
// given key hashed into a 256-bit key.
func initChaCha20Poly1305(key []byte) cipher.AEAD {
	keyHash := blake2b.Sum256(key)
	chaCipher, err := chacha20poly1305.NewX(keyHash[:])
	if err != nil {
		// NewX only fails on a bad key size, and the size is fixed above.
		panic(errors.Errorf("could not init XChaCha20Poly1305 mode: %+v", err))
	}
	return chaCipher
}
