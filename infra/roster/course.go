package roster

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/collabsched/core/session"
)

// LoadCourse reads the course layer from a JSON document, or YAML when the
// file ends in .yaml or .yml. Nested objects such as recurrenceRule come
// back as mappings.
func LoadCourse(path string) (session.Layer, error) {
	var parser koanf.Parser = json.Parser()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load course %s: %w", path, err)
	}
	return session.Layer(k.Raw()), nil
}
