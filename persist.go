package blockstpl

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
)

// persist writes the compiled artifact and then the verification copy of the
// source it came from. The artifact is renamed into place so readers never
// see a partial file. Failures writing the verification copy only cost a
// recompile next time and are returned as warnings.
func persist(p Paths, code, source []byte, mode os.FileMode) (warn error, err error) {
	if _, statErr := os.Stat(p.Artifact); statErr != nil {
		if err := os.MkdirAll(filepath.Dir(p.Artifact), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory for %q: %w", p.Artifact, err)
		}
	}
	if err := writeAtomic(p.Artifact, code); err != nil {
		return nil, fmt.Errorf("writing artifact %q: %w", p.Artifact, err)
	}
	if mode != 0 {
		if err := os.Chmod(p.Artifact, mode); err != nil {
			warn = fmt.Errorf("chmod %q: %w", p.Artifact, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(p.Meta), 0o755); err != nil {
		return multierr.Append(warn, fmt.Errorf("creating directory for %q: %w", p.Meta, err)), nil
	}
	if err := os.WriteFile(p.Meta, source, 0o644); err != nil {
		return multierr.Append(warn, fmt.Errorf("writing verification copy %q: %w", p.Meta, err)), nil
	}
	return warn, nil
}

func writeAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
