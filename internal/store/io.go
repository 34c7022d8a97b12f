package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// loadJSON reads path into out, opening it with passphrase when one is set.
// A missing file is not an error and leaves out untouched.
func loadJSON(path, passphrase string, out any) error {
	b, err := readFile(path)
	if err != nil || b == nil {
		return err
	}
	if passphrase != "" {
		if b, err = open(passphrase, b); err != nil {
			return err
		}
	}
	return json.Unmarshal(b, out)
}

// saveJSON writes v to path, sealing it under passphrase when one is set.
func saveJSON(path, passphrase string, v any, mode os.FileMode) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if passphrase != "" {
		N, r, p := scryptParamsDefault()
		if b, err = seal(passphrase, b, N, r, p); err != nil {
			return err
		}
	}
	return writeFile(path, b, mode)
}

// readFile returns nil, nil for a missing file.
func readFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return b, err
}

// writeFile writes bytes via a temp file, then atomically replaces the target.
func writeFile(path string, b []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
