package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/trustproxy/proxysentry/internal/judge"
)

// judgesFileDocument is the shape of a --judges-file YAML document: a list of judge URLs, each
// with optional marker overrides for judges that don't use the default origin/headers echo
// convention.
type judgesFileDocument struct {
	Judges []judgeEntry `yaml:"judges"`
}

type judgeEntry struct {
	URL          string `yaml:"url"`
	IPMarker     string `yaml:"ip_marker"`
	HeaderMarker string `yaml:"header_marker"`
}

// LoadJudgesFile reads a --judges-file document and constructs a Judge for each entry, applying
// judge.DefaultMarkers where an entry doesn't override them.
func LoadJudgesFile(path string) ([]*judge.Judge, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc judgesFileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	judges := make([]*judge.Judge, 0, len(doc.Judges))
	for _, entry := range doc.Judges {
		markers := judge.DefaultMarkers
		if entry.IPMarker != "" {
			markers.IPMarker = entry.IPMarker
		}
		if entry.HeaderMarker != "" {
			markers.HeaderMarker = entry.HeaderMarker
		}

		j, err := judge.New(entry.URL, markers)
		if err != nil {
			return nil, err
		}
		judges = append(judges, j)
	}

	return judges, nil
}
