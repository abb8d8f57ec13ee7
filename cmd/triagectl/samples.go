package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/linnemanlabs/opsgenix/internal/triage/local"
)

// samplesFile is the mapping form of a samples document. A bare sequence of
// samples is accepted too.
type samplesFile struct {
	Samples []local.Sample `yaml:"samples"`
}

var errNoSamples = errors.New("no samples found")

// loadSamples decodes labelled samples from YAML. Every sample needs a title.
func loadSamples(r io.Reader) ([]local.Sample, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errNoSamples
		}
		return nil, fmt.Errorf("parse samples: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, errNoSamples
	}

	var samples []local.Sample
	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&samples); err != nil {
			return nil, fmt.Errorf("decode samples: %w", err)
		}
	case yaml.MappingNode:
		var f samplesFile
		if err := root.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode samples: %w", err)
		}
		samples = f.Samples
	default:
		return nil, fmt.Errorf("line %d: expected a list of samples or a samples: key", root.Line)
	}

	if len(samples) == 0 {
		return nil, errNoSamples
	}

	var errs []error
	for i := range samples {
		if strings.TrimSpace(samples[i].Title) == "" {
			errs = append(errs, fmt.Errorf("sample %d: title is required", i))
		}
		samples[i].Severity = strings.ToLower(strings.TrimSpace(samples[i].Severity))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return samples, nil
}
