package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/systmms/secretmgr/pkg/secrets"
)

// fileFormatVersion is written to every ledger file
const fileFormatVersion = 1

type fileContents struct {
	Version int               `json:"version"`
	Digests map[string]string `json:"digests"`
}

// FileLedger keeps digests in a JSON file keyed by secret name.
type FileLedger struct {
	path string
	mu   sync.Mutex
}

// NewFileLedger creates a ledger stored at path. The file is created on
// the first Store.
func NewFileLedger(path string) *FileLedger {
	return &FileLedger{path: path}
}

// Path returns the ledger file location
func (l *FileLedger) Path() string {
	return l.path
}

// Lookup implements Ledger
func (l *FileLedger) Lookup(ctx context.Context, id secrets.ID) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, err := l.read()
	if err != nil {
		return "", false, err
	}
	d, ok := c.Digests[id.String()]
	return d, ok, nil
}

// Store implements Ledger
func (l *FileLedger) Store(ctx context.Context, id secrets.ID, digest string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, err := l.read()
	if err != nil {
		return err
	}
	c.Digests[id.String()] = digest
	return l.write(c)
}

// Delete implements Ledger
func (l *FileLedger) Delete(ctx context.Context, id secrets.ID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, err := l.read()
	if err != nil {
		return err
	}
	if _, ok := c.Digests[id.String()]; !ok {
		return nil
	}
	delete(c.Digests, id.String())
	return l.write(c)
}

// List implements Ledger. Names that no longer map to an ID are listed
// with ID NumSecrets.
func (l *FileLedger) List(ctx context.Context) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, err := l.read()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(c.Digests))
	for name, d := range c.Digests {
		id, err := secrets.ParseID(name)
		if err != nil {
			id = secrets.NumSecrets
		}
		entries = append(entries, Entry{ID: id, Name: name, Digest: d})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

func (l *FileLedger) read() (*fileContents, error) {
	c := &fileContents{Version: fileFormatVersion, Digests: make(map[string]string)}

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse ledger file %s: %w", l.path, err)
	}
	if c.Version != fileFormatVersion {
		return nil, fmt.Errorf("unsupported ledger file version %d", c.Version)
	}
	if c.Digests == nil {
		c.Digests = make(map[string]string)
	}
	return c, nil
}

// write replaces the file atomically: a reader sees either the old or the
// new contents.
func (l *FileLedger) write(c *fileContents) error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ledger-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary ledger file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set ledger permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write ledger file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync ledger file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close ledger file: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}
	return nil
}
