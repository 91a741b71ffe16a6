package crypto

import (
	"encoding/binary"
	"errors"
)

// fileMagic identifies an at-rest encrypted file, matching
// Config::ENCRYPTED_FILE_MAGIC.
const fileMagic = "CHED"

// fileKey and fileIV are the fixed key/IV pair the original builds into the
// binary for at-rest configuration encryption (Config::ENCRYPTED_FILE_KEY/
// ENCRYPTED_FILE_IV). Baking a literal key into the binary only obscures
// the file from casual inspection; it is not a secrecy boundary, and
// SPEC_FULL.md's ambient stack carries it forward unchanged rather than
// inventing a stronger scheme the original never had.
var (
	fileKey = []byte("}]#Su?Y}q!^f*S5O")
	fileIV  = [8]byte{'P', '[', '?', 'j', 'd', '6', 'c', '4'}
)

// ErrBadMagic is returned when a file does not begin with the expected
// "CHED" magic header.
var ErrBadMagic = errors.New("crypto: not a recognized encrypted file")

// ErrTruncated is returned when a file is shorter than its own declared
// header or body.
var ErrTruncated = errors.New("crypto: encrypted file is truncated")

// EncryptFile wraps data in the "CHED" at-rest format: a 4-byte magic, a
// little-endian real-size u32, then the CBC-Blowfish-encrypted, zero-padded
// body. Matches Decrypt::EncryptFile.
func EncryptFile(data []byte) ([]byte, error) {
	iv := fileIV
	body, err := EncryptCBC(fileKey, &iv, padToBlock(data))
	if err != nil {
		return nil, err
	}

	out := make([]byte, 8+len(body))
	copy(out[0:4], fileMagic)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(data)))
	copy(out[8:], body)
	return out, nil
}

// DecryptFile reverses EncryptFile, validating the magic header and
// trimming the decrypted body back down to its declared real size. Matches
// Decrypt::DecryptFile.
func DecryptFile(raw []byte) ([]byte, error) {
	if len(raw) < 8 {
		return nil, ErrTruncated
	}
	if string(raw[0:4]) != fileMagic {
		return nil, ErrBadMagic
	}
	realSize := binary.LittleEndian.Uint32(raw[4:8])
	body := raw[8:]
	if len(body)%BlockSize != 0 {
		return nil, ErrTruncated
	}

	iv := fileIV
	plain, err := DecryptCBC(fileKey, &iv, body)
	if err != nil {
		return nil, err
	}
	if uint32(len(plain)) < realSize {
		return nil, ErrTruncated
	}
	return plain[:realSize], nil
}
