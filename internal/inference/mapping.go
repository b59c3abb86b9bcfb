package inference

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// FieldMapping is the optional YAML file naming the date fields explicitly:
//
//	date_fields:
//	  start: customfield_10015
//	  end: duedate
type FieldMapping struct {
	DateFields struct {
		Start string `yaml:"start"`
		End   string `yaml:"end"`
	} `yaml:"date_fields"`
}

// LoadFieldMapping reads a mapping file. An empty path returns nil.
func LoadFieldMapping(path string) (*FieldMapping, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read field map: %w", err)
	}
	var m FieldMapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse field map %s: %w", path, err)
	}
	if m.DateFields.Start == "" && m.DateFields.End == "" {
		return nil, errors.New("field map defines neither date_fields.start nor date_fields.end")
	}
	return &m, nil
}

// NewGuesser returns a MappedGuesser for m, or the heuristic when m is nil.
func NewGuesser(m *FieldMapping) DateFieldGuesser {
	if m == nil {
		return HeuristicGuesser{}
	}
	log.Info().
		Str("start", m.DateFields.Start).
		Str("end", m.DateFields.End).
		Msg("Using explicit date field mapping")
	return MappedGuesser{StartField: m.DateFields.Start, EndField: m.DateFields.End}
}
