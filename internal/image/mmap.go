package image

import (
	"fmt"
	"os"
	"syscall"
)

// Mapping is a read-only memory mapping of a file.
type Mapping struct {
	data []byte
}

// Map maps the file at path read-only. Empty files map to an empty
// slice without calling mmap.
func Map(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("open file: %s is a directory", path)
	}
	if fi.Size() == 0 {
		return &Mapping{}, nil
	}

	data, err := syscall.Mmap(int(f.Fd()), 0, int(fi.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap file: %w", err)
	}
	return &Mapping{data: data}, nil
}

// Bytes returns the mapped contents.
func (m *Mapping) Bytes() []byte { return m.data }

// Close unmaps the file.
func (m *Mapping) Close() error {
	if m.data == nil {
		return nil
	}
	err := syscall.Munmap(m.data)
	m.data = nil
	return err
}
