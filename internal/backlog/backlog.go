// Package backlog reads the features to estimate from a backlog file.
//
// A backlog is a list whose items are either plain labels or objects with
// a name and an optional description. The list may also sit under a
// top-level "features" key. JSON backlogs are read by the same YAML
// decoder.
package backlog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kiliankoe/planningpoker/internal/game"
)

var ErrEmptyBacklog = errors.New("backlog has no features")

func Load(path string) ([]game.Feature, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backlog: %w", err)
	}
	features, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return features, nil
}

func Parse(data []byte) ([]game.Feature, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid backlog: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, ErrEmptyBacklog
	}
	list := doc.Content[0]
	if list.Kind == yaml.MappingNode {
		list = lookup(list, "features")
		if list == nil {
			return nil, errors.New(`backlog mapping needs a "features" key`)
		}
	}
	if list.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: backlog must be a list", list.Line)
	}

	features := make([]game.Feature, 0, len(list.Content))
	seen := make(map[string]struct{}, len(list.Content))
	for _, item := range list.Content {
		f, err := decodeFeature(item)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("line %d: duplicate feature %q", item.Line, f.Name)
		}
		seen[f.Name] = struct{}{}
		features = append(features, f)
	}
	if len(features) == 0 {
		return nil, ErrEmptyBacklog
	}
	return features, nil
}

func decodeFeature(n *yaml.Node) (game.Feature, error) {
	var f game.Feature
	switch n.Kind {
	case yaml.ScalarNode:
		f.Name = n.Value
	case yaml.MappingNode:
		if err := n.Decode(&f); err != nil {
			return game.Feature{}, fmt.Errorf("line %d: %w", n.Line, err)
		}
	default:
		return game.Feature{}, fmt.Errorf("line %d: feature must be a label or a mapping", n.Line)
	}
	f.Name = strings.TrimSpace(f.Name)
	f.Description = strings.TrimSpace(f.Description)
	if f.Name == "" {
		return game.Feature{}, fmt.Errorf("line %d: feature without a name", n.Line)
	}
	return f, nil
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}
