package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// WriteDefault writes a default pipeline.toml at path with a header
// comment, unless the file already exists and force is false — the
// same guard and encoding (BurntSushi/toml, two-space indent) as the
// teacher's writeDefaultConfig.
func WriteDefault(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	header := `# aidb pipeline configuration
#
# Precedence: defaults < this file < AIDB_* environment variables

`
	if _, err := f.WriteString(header); err != nil {
		return err
	}

	enc := toml.NewEncoder(f)
	enc.Indent = "  "
	return enc.Encode(DefaultConfig())
}
