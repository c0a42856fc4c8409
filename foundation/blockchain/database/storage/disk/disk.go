// Package disk implements the ability to read and write accounts and blocks
// to disk, one JSON file per account and one JSON file per block.
package disk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Disk represents the storage implementation for reading and storing
// accounts and blocks in their own separate files on disk. This implements
// the database.Storage interface.
type Disk struct {
	mu       sync.RWMutex
	dbPath   string
	latest   uint64
	hasBlock bool
}

// New constructs a Disk value for use. Any blocks already on disk are
// counted so new blocks are appended after them.
func New(dbPath string) (*Disk, error) {
	for _, dir := range []string{"blocks", "accounts"} {
		if err := os.MkdirAll(filepath.Join(dbPath, dir), 0755); err != nil {
			return nil, err
		}
	}

	d := Disk{dbPath: dbPath}

	// Walk the chain from block 1 to find the latest block number.
	for {
		_, err := os.Stat(d.blockPath(d.latest + 1))
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return nil, err
		}
		d.latest++
		d.hasBlock = true
	}

	return &d, nil
}

// Close in this implementation has nothing to do since a new file is
// written to disk for each write and then immediately closed.
func (d *Disk) Close() error {
	return nil
}

// GetAccount reads the account for the specified address from disk.
func (d *Disk) GetAccount(address database.Address) (database.Account, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var account database.Account
	if err := readJSON(d.accountPath(address), &account); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return database.Account{}, false, nil
		}
		return database.Account{}, false, err
	}

	return account, true, nil
}

// PutAccount writes the account to its own file on disk.
func (d *Disk) PutAccount(account database.Account) error {
	return d.PutAccounts(account)
}

// PutAccounts writes every account to a temp file first and only renames
// them into place once all of them have been written.
func (d *Disk) PutAccounts(accounts ...database.Account) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tmps := make([]string, 0, len(accounts))
	for _, account := range accounts {
		tmp, err := writeTemp(d.accountPath(account.Address), account)
		if err != nil {
			for _, tmp := range tmps {
				os.Remove(tmp)
			}
			return err
		}
		tmps = append(tmps, tmp)
	}

	for i, account := range accounts {
		if err := os.Rename(tmps[i], d.accountPath(account.Address)); err != nil {
			return err
		}
	}

	return nil
}

// ListAccounts reads every account file on disk ordered by address.
func (d *Disk) ListAccounts() ([]database.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(d.dbPath, "accounts"))
	if err != nil {
		return nil, err
	}

	accounts := make([]database.Account, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		var account database.Account
		if err := readJSON(filepath.Join(d.dbPath, "accounts", entry.Name()), &account); err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		accounts = append(accounts, account)
	}
	database.SortAccounts(accounts)

	return accounts, nil
}

// LastBlock reads the latest block from disk or returns nil if the chain
// is empty.
func (d *Disk) LastBlock() (*database.Block, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.hasBlock {
		return nil, nil
	}

	var block database.Block
	if err := readJSON(d.blockPath(d.latest), &block); err != nil {
		return nil, err
	}

	return &block, nil
}

// PutBlock takes the specified block and stores it on disk in a file
// labeled with the block number.
func (d *Disk) PutBlock(block database.Block) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if exp := d.latest + 1; block.Header.Number != exp {
		return fmt.Errorf("block is out of order, got %d, exp %d", block.Header.Number, exp)
	}

	if err := writeJSON(d.blockPath(block.Header.Number), block); err != nil {
		return err
	}

	d.latest = block.Header.Number
	d.hasBlock = true

	return nil
}

// GetBlock searches the chain on disk to locate and return the
// contents of the specified block by number.
func (d *Disk) GetBlock(num uint64) (database.Block, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var block database.Block
	if err := readJSON(d.blockPath(num), &block); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return database.Block{}, fmt.Errorf("block %d: %w", num, database.ErrNotFound)
		}
		return database.Block{}, err
	}

	return block, nil
}

// =============================================================================

// blockPath forms the path to the specified block.
func (d *Disk) blockPath(blockNum uint64) string {
	name := strconv.FormatUint(blockNum, 10)
	return filepath.Join(d.dbPath, "blocks", fmt.Sprintf("%s.json", name))
}

// accountPath forms the path to the specified account.
func (d *Disk) accountPath(address database.Address) string {
	name := strings.ToLower(string(address))
	return filepath.Join(d.dbPath, "accounts", fmt.Sprintf("%s.json", name))
}

// readJSON decodes the contents of the file into the value.
func readJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewDecoder(f).Decode(v)
}

// writeJSON marshals the value in a human readable format, writes it to a
// temp file and renames it into place.
func writeJSON(path string, v any) error {
	tmp, err := writeTemp(path, v)
	if err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

// writeTemp writes the value next to the path and returns the temp file name.
func writeTemp(path string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return "", err
	}

	return tmp, nil
}
