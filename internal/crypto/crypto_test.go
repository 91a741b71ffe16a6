package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lobbywire/lobbywire/internal/wire"
)

func TestDiffieHellman_SharedSecretAgrees(t *testing.T) {
	params, err := GenerateParams()
	require.NoError(t, err)

	client, err := params.GenerateKeyPair()
	require.NoError(t, err)
	server, err := params.GenerateKeyPair()
	require.NoError(t, err)

	clientShared := client.SharedSecret(server.Public)
	serverShared := server.SharedSecret(client.Public)

	require.Equal(t, clientShared, serverShared)
	require.Len(t, clientShared, DHSharedDataSize)

	clientKey := BlowfishKeyFromShared(clientShared)
	serverKey := BlowfishKeyFromShared(serverShared)
	require.Equal(t, clientKey, serverKey)
}

func TestDiffieHellman_PublicHexRoundTrip(t *testing.T) {
	params, err := GenerateParams()
	require.NoError(t, err)
	kp, err := params.GenerateKeyPair()
	require.NoError(t, err)

	hexStr := kp.PublicHex()
	require.Len(t, hexStr, DHKeyHexSize)

	decoded, err := PublicFromHex(hexStr)
	require.NoError(t, err)
	require.Equal(t, kp.Public, decoded)
}

func TestDiffieHellman_LoadParamsHexRoundTrip(t *testing.T) {
	params, err := GenerateParams()
	require.NoError(t, err)

	loaded, err := LoadParamsHex(params.PrimeHex())
	require.NoError(t, err)
	require.Equal(t, params.Prime, loaded.Prime)
}

func TestDiffieHellman_SaveLoadBytesRoundTrip(t *testing.T) {
	params, err := GenerateParams()
	require.NoError(t, err)

	loaded, err := LoadFromBytes(params.SaveToBytes())
	require.NoError(t, err)
	require.Equal(t, params.Prime, loaded.Prime)
	require.Equal(t, params.Generator, loaded.Generator)
}

func TestDiffieHellman_LoadFromBytes_RejectsWrongLength(t *testing.T) {
	_, err := LoadFromBytes([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrShortPrime)
}

func TestDiffieHellman_Clone_DoesNotShareKeyPairState(t *testing.T) {
	params, err := GenerateParams()
	require.NoError(t, err)

	cloned := Clone(params)
	require.Equal(t, params.Prime, cloned.Prime)
	require.Equal(t, params.Generator, cloned.Generator)
	require.NotSame(t, params.Prime, cloned.Prime)

	// Generating a key pair from the clone must not be influenced by, or
	// leak into, the original's own key pairs.
	kp, err := cloned.GenerateKeyPair()
	require.NoError(t, err)
	require.NotNil(t, kp.Public)
}

func TestBlowfish_ECBRoundTrip(t *testing.T) {
	key := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	plain := []byte("a handshake payload that isn't block aligned")

	ct, err := Encrypt(key, plain)
	require.NoError(t, err)
	require.Zero(t, len(ct)%BlockSize)

	pt, err := Decrypt(key, ct, len(plain))
	require.NoError(t, err)
	require.Equal(t, plain, pt)
}

func TestBlowfish_CBCRoundTrip(t *testing.T) {
	key := fileKey
	plain := padToBlock([]byte("configuration payload needing CBC protection"))

	iv1 := fileIV
	ct, err := EncryptCBC(key, &iv1, plain)
	require.NoError(t, err)

	iv2 := fileIV
	pt, err := DecryptCBC(key, &iv2, ct)
	require.NoError(t, err)
	require.Equal(t, plain, pt)
}

func TestBlowfish_PacketEncryptDecryptRoundTrip(t *testing.T) {
	key := []byte{9, 8, 7, 6, 5, 4, 3, 2}

	p := wire.NewBuffer()
	require.NoError(t, p.WriteBlank(8)) // header placeholder
	require.NoError(t, p.WriteArray([]byte("command payload")))

	require.NoError(t, EncryptPacket(key, p))
	require.Zero(t, p.Size()%BlockSize)

	require.NoError(t, DecryptPacket(key, p))
	// Header: padded size 16, real size 15, both big-endian.
	require.Equal(t, append([]byte{0, 0, 0, 16, 0, 0, 0, 15}, []byte("command payload")...), p.Data())
}

func TestAtRestFile_EncryptDecryptRoundTrip(t *testing.T) {
	plain := []byte(`{"port":11000,"bind":"0.0.0.0"}`)

	encrypted, err := EncryptFile(plain)
	require.NoError(t, err)
	require.Equal(t, fileMagic, string(encrypted[0:4]))

	decrypted, err := DecryptFile(encrypted)
	require.NoError(t, err)
	require.Equal(t, plain, decrypted)
}

func TestAtRestFile_RejectsBadMagic(t *testing.T) {
	_, err := DecryptFile([]byte("XXXX0000"))
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestGenerateSessionKey_NeverZero(t *testing.T) {
	for i := 0; i < 100; i++ {
		key, err := GenerateSessionKey()
		require.NoError(t, err)
		require.NotZero(t, key)
		require.Zero(t, key&0x80000000)
	}
}

func TestGenerateRandomHex_RejectsOddLength(t *testing.T) {
	_, err := GenerateRandomHex(3)
	require.Error(t, err)
}

func TestGenerateSessionID_IsHex(t *testing.T) {
	id, err := GenerateSessionID()
	require.NoError(t, err)
	require.Len(t, id, 32)
}
