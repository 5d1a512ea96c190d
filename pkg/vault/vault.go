// Package vault implements the Key Vault (spec §4.2): one encrypted
// private key per (role, address), AEAD-sealed with a key derived from a
// user passphrase via PBKDF2, vending signing material for exactly one
// operation at a time and scrubbing it immediately after.
package vault

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/hkdf"
)

// Role identifies which signing responsibility a key is held for.
type Role string

const (
	RoleRelease  Role = "release"
	RoleApprover Role = "approver"
	RoleReceipt  Role = "receipt"
)

var allRoles = []Role{RoleRelease, RoleApprover, RoleReceipt}

// ErrInvalidPassphrase is returned when AEAD authentication fails on decrypt.
var ErrInvalidPassphrase = errors.New("INVALID_PASSPHRASE")

// ErrNoKeyForRole is returned when a role has no configured key. When the
// role has keys but none opens under the given passphrase, the error is
// ErrInvalidPassphrase.
var ErrNoKeyForRole = errors.New("NO_KEY_FOR_ROLE")

// GenerateResult is returned by Generate.
type GenerateResult struct {
	Address  string
	Mnemonic string
}

// SignResult is returned by Sign and SignHash.
type SignResult struct {
	Signature     []byte
	SignerAddress string
	Role          Role
	KeyVersion    int
	Timestamp     time.Time
}

// Backend is the abstract key-vault storage interface of spec §6:
// {set, get, delete, list}. A real implementation might be an OS keychain;
// InMemoryBackend and FileBackend below are the two concrete backends.
type Backend interface {
	Set(service, account string, blob []byte) error
	Get(service, account string) ([]byte, error)
	Delete(service, account string) error
	List(service string) ([]string, error)
}

// entry is the persisted envelope for one (role, address) key.
type entry struct {
	KeyVersion int               `json:"key_version"`
	Ciphertext []byte            `json:"ciphertext"`
	IV         []byte            `json:"iv"`
	Salt       []byte            `json:"salt"`
	Tag        []byte            `json:"tag"`
	Metadata   map[string]string `json:"metadata"`
}

// Vault is the Key Vault implementation.
type Vault struct {
	backend Backend
}

// New creates a Vault backed by the given storage Backend.
func New(backend Backend) *Vault {
	return &Vault{backend: backend}
}

// service namespaces vault entries by role within the backend.
func service(role Role) string { return "govkernel-vault:" + string(role) }

// Generate creates a fresh keypair for role, encrypts it under passphrase,
// and returns the signer address and a BIP39-equivalent mnemonic for
// recovery. A role may hold more than one address at a time (e.g. several
// approvers); passphrase is the discriminator Sign uses to pick among them.
func (v *Vault) Generate(role Role, passphrase string) (*GenerateResult, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return nil, fmt.Errorf("vault: generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("vault: generate mnemonic: %w", err)
	}

	seed := bip39.NewSeed(mnemonic, "")
	priv := ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize])

	address, err := v.store(role, priv, passphrase)
	if err != nil {
		return nil, err
	}
	return &GenerateResult{Address: address, Mnemonic: mnemonic}, nil
}

// Import encrypts an existing raw ed25519 private key under passphrase.
func (v *Vault) Import(role Role, key ed25519.PrivateKey, passphrase string) (string, error) {
	return v.store(role, key, passphrase)
}

// store persists priv as a new key for role, keyed by its derived address.
// key_version is the number of addresses currently held for role, plus
// one; keys deleted earlier are not counted.
func (v *Vault) store(role Role, priv ed25519.PrivateKey, passphrase string) (string, error) {
	pub := priv.Public().(ed25519.PublicKey)
	address := addressFor(pub)

	existing, err := v.backend.List(service(role))
	if err != nil {
		return "", fmt.Errorf("vault: list role %s: %w", role, err)
	}

	blob, err := seal(priv, len(existing)+1, passphrase)
	if err != nil {
		return "", err
	}
	if err := v.backend.Set(service(role), address, blob); err != nil {
		return "", fmt.Errorf("vault: persist key: %w", err)
	}
	return address, nil
}

// Sign signs an arbitrary message using role's key. When role holds
// several addresses, passphrase is the discriminator: the first address
// whose entry decrypts under passphrase is used.
func (v *Vault) Sign(role Role, message []byte, passphrase string) (*SignResult, error) {
	priv, address, keyVersion, err := v.unlock(role, passphrase)
	if err != nil {
		return nil, err
	}
	defer scrub(priv)

	sig := ed25519.Sign(priv, message)
	return &SignResult{Signature: sig, SignerAddress: address, Role: role, KeyVersion: keyVersion, Timestamp: time.Now()}, nil
}

// SignHash signs a hex-encoded hash (e.g. a release root_hash) by signing
// its ASCII string representation, per spec §4.3 ("signs the string
// representation of root_hash").
func (v *Vault) SignHash(role Role, hashHex string, passphrase string) (*SignResult, error) {
	return v.Sign(role, []byte(hashHex), passphrase)
}

// unlock finds the address under role whose entry opens under passphrase
// and returns its decrypted key, address, and key_version.
func (v *Vault) unlock(role Role, passphrase string) (ed25519.PrivateKey, string, int, error) {
	addresses, err := v.backend.List(service(role))
	if err != nil {
		return nil, "", 0, fmt.Errorf("vault: list role %s: %w", role, err)
	}
	if len(addresses) == 0 {
		return nil, "", 0, ErrNoKeyForRole
	}

	for _, address := range addresses {
		blob, err := v.backend.Get(service(role), address)
		if err != nil {
			continue
		}
		priv, err := open(blob, passphrase)
		if errors.Is(err, ErrInvalidPassphrase) {
			continue
		}
		if err != nil {
			return nil, "", 0, err
		}

		var e entry
		if err := json.Unmarshal(blob, &e); err != nil {
			return nil, "", 0, fmt.Errorf("vault: decode entry: %w", err)
		}
		return priv, address, e.KeyVersion, nil
	}
	return nil, "", 0, ErrInvalidPassphrase
}

// Peek resolves which address and key_version a passphrase would unlock
// for role without retaining any decrypted key material, for callers that
// must know key_version before constructing the payload they sign (e.g.
// an approval token's signable payload includes its own key_version).
func (v *Vault) Peek(role Role, passphrase string) (address string, keyVersion int, err error) {
	priv, address, keyVersion, err := v.unlock(role, passphrase)
	if err != nil {
		return "", 0, err
	}
	scrub(priv)
	return address, keyVersion, nil
}

// Derive expands role's unlocked key into a 32-byte scoped secret for
// context (e.g. a session id), using HKDF-SHA256 so a caller that needs a
// per-session derived value never has to re-prompt for the passphrase
// beyond this one call.  The derived value is not itself a signing key;
// it is scoped key material for session-local purposes such as binding a
// rate-limit bucket identity to a vault-held secret rather than a bare
// session id.
func (v *Vault) Derive(role Role, passphrase string, context string) ([]byte, error) {
	priv, _, _, err := v.unlock(role, passphrase)
	if err != nil {
		return nil, err
	}
	defer scrub(priv)

	r := hkdf.New(sha256.New, priv, nil, []byte(context))
	out := make([]byte, 32)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("vault: derive: %w", err)
	}
	return out, nil
}

// Address returns one address holding a key for role, if any.
func (v *Vault) Address(role Role) (string, error) {
	addresses, err := v.backend.List(service(role))
	if err != nil {
		return "", err
	}
	if len(addresses) == 0 {
		return "", ErrNoKeyForRole
	}
	return addresses[0], nil
}

// List returns every address known for each role.
func (v *Vault) List() (map[Role][]string, error) {
	out := map[Role][]string{}
	for _, role := range allRoles {
		addrs, err := v.backend.List(service(role))
		if err != nil {
			return nil, err
		}
		if len(addrs) > 0 {
			out[role] = addrs
		}
	}
	return out, nil
}

// Delete removes the key stored for (role, address).
func (v *Vault) Delete(role Role, address string) error {
	return v.backend.Delete(service(role), address)
}

func addressFor(pub ed25519.PublicKey) string {
	return "0x" + hex.EncodeToString(pub)
}

// scrub overwrites key material so it does not linger in any buffer the
// vault controls. This is a best-effort hygiene measure, not a claim of
// memory-dump resistance (spec §4.2, §1 non-goals).
func scrub(priv ed25519.PrivateKey) {
	for i := range priv {
		priv[i] = 0
	}
}
