package deck

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Load reads and validates a deck from a YAML or JSON file.
func Load(path string) (*Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read deck file: %w", err)
	}

	var d Deck
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &d)
	} else {
		err = yaml.Unmarshal(data, &d)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse deck file %s: %w", path, err)
	}

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("deck file %s: %w", path, err)
	}

	return &d, nil
}

// LoadDir loads every .yaml, .yml, and .json deck in a directory, keyed by
// filename without extension. Unparseable files are skipped with a warning.
func LoadDir(dir string) (map[string]*Deck, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read deck directory: %w", err)
	}

	decks := make(map[string]*Deck)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			continue
		}

		d, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("skipping unloadable deck")
			continue
		}

		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		decks[name] = d
		log.Info().Str("deck", name).Str("title", d.Title).Msg("loaded deck")
	}

	return decks, nil
}
