// Package nameservice reads a directory of ECDSA key files and builds a
// name lookup for the addresses they derive, so diagnostics and the
// wallet CLI can show "alice" instead of a bech32-style credential.
package nameservice

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	chaincrypto "github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
)

// NameService maintains a map of addresses for name lookup.
type NameService struct {
	accounts map[chaincrypto.Address]string
}

// New constructs a NameService from every *.ecdsa key file under root,
// deriving each file's account address and keying it by the file's base
// name (without extension).
func New(root string) (*NameService, error) {
	ns := NameService{
		accounts: make(map[chaincrypto.Address]string),
	}

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}
		if info.IsDir() || path.Ext(fileName) != ".ecdsa" {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return err
		}

		addr := chaincrypto.FromPublicKey(&privateKey.PublicKey)
		ns.accounts[addr] = strings.TrimSuffix(path.Base(fileName), ".ecdsa")

		return nil
	}

	if err := filepath.Walk(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name registered for addr, or its text form if none
// was registered.
func (ns *NameService) Lookup(addr chaincrypto.Address) string {
	name, exists := ns.accounts[addr]
	if !exists {
		return addr.String()
	}
	return name
}

// Copy returns a copy of the address-to-name map.
func (ns *NameService) Copy() map[chaincrypto.Address]string {
	cpy := make(map[chaincrypto.Address]string, len(ns.accounts))
	for addr, name := range ns.accounts {
		cpy[addr] = name
	}
	return cpy
}
