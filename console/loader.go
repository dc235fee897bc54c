package console

import (
	"fmt"
	"os"

	"github.com/guslan/chip8"
)

// LoadFile reads the raw ROM image at path and loads it into m.
func LoadFile(m *chip8.Machine, path string) error {
	program, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading rom: %w", err)
	}

	if err := m.Load(program); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	return nil
}
