package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// load reads the persisted blob. Returns found=false only when the file
// does not exist; an unreadable or corrupt file is an error so the caller
// never starts over on top of real state.
func load(path string) (book, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return book{}, false, nil
		}
		return book{}, false, err
	}

	var b book
	if err := json.Unmarshal(data, &b); err != nil {
		return book{}, false, fmt.Errorf("corrupt ledger file: %w", err)
	}
	return b, true, nil
}

// save rewrites the whole blob via a temp file and atomic rename, so an
// interrupted write can't leave a truncated ledger behind.
func (l *Ledger) save() error {
	data, err := json.MarshalIndent(l.book, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating ledger dir: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("replacing ledger: %w", err)
	}
	return nil
}
