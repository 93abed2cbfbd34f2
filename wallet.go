package x402mint

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/tyler-smith/go-bip39"
)

// The treasury wallet holds the fee payer / transfer authority keypair. It
// lives encrypted on disk and is only ever decrypted into a KeypairSigner
// for the duration of a command.

func GenerateWallet() (mnemonic string, wallet Wallet, err error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", Wallet{}, err
	}

	mnemonic, err = bip39.NewMnemonic(entropy)
	if err != nil {
		return "", Wallet{}, err
	}

	return mnemonic, walletFromSeed(bip39.NewSeed(mnemonic, "")), nil
}

func RecoverWallet(mnemonic string) (Wallet, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return Wallet{}, errors.New("invalid mnemonic")
	}
	return walletFromSeed(bip39.NewSeed(mnemonic, "")), nil
}

func walletFromSeed(seed []byte) Wallet {
	priv := ed25519.NewKeyFromSeed(seed[:32])
	pub := priv.Public().(ed25519.PublicKey)

	secret := make([]byte, 64)
	copy(secret[:32], seed[:32])
	copy(secret[32:], pub)

	return Wallet{
		Pubkey: base58.Encode(pub),
		Secret: secret,
	}
}

func SaveWallet(path string, secret, password []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	enc, err := encrypt(secret, password)
	if err != nil {
		return err
	}

	data, err := json.Marshal(map[string]string{
		"keypair": hex.EncodeToString(enc),
	})
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// LoadSigner decrypts the keystore and wraps the keypair as the engine's
// signing capability.
func LoadSigner(path string, password []byte) (KeypairSigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return KeypairSigner{}, err
	}

	var stored map[string]string
	if err := json.Unmarshal(data, &stored); err != nil {
		return KeypairSigner{}, err
	}

	enc, err := hex.DecodeString(stored["keypair"])
	if err != nil {
		return KeypairSigner{}, err
	}

	secret, err := decrypt(enc, password)
	if err != nil {
		return KeypairSigner{}, err
	}
	if len(secret) != 64 {
		return KeypairSigner{}, errors.New("keystore: bad secret length")
	}

	return KeypairSigner{Key: solana.PrivateKey(secret)}, nil
}

func encrypt(data, password []byte) ([]byte, error) {
	gcm, err := newGCM(password)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, data, nil), nil
}

func decrypt(data, password []byte) ([]byte, error) {
	gcm, err := newGCM(password)
	if err != nil {
		return nil, err
	}

	if len(data) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := data[:gcm.NonceSize()]
	ciphertext := data[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertext, nil)
}

func newGCM(password []byte) (cipher.AEAD, error) {
	key := sha256.Sum256(password)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
