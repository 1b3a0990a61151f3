package output

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/parcelops/hubsync/internal/hubspot"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

func (f *JSONFormatter) encode(value any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func (f *JSONFormatter) FormatObjects(objects []hubspot.Object, _ []string) (string, error) {
	if objects == nil {
		objects = []hubspot.Object{}
	}
	return f.encode(objects)
}

func (f *JSONFormatter) FormatObject(object *hubspot.Object) (string, error) {
	if object == nil {
		return "", nil
	}
	return f.encode(object)
}

func (f *JSONFormatter) FormatStatus(status *Status) (string, error) {
	if status == nil {
		return "", nil
	}
	return f.encode(status)
}

func (f *JSONFormatter) FormatOwners(owners []hubspot.Owner) (string, error) {
	if owners == nil {
		owners = []hubspot.Owner{}
	}
	return f.encode(owners)
}

func (f *JSONFormatter) FormatPipelines(pipelines []hubspot.Pipeline) (string, error) {
	if pipelines == nil {
		pipelines = []hubspot.Pipeline{}
	}
	return f.encode(pipelines)
}

// YAMLFormatter renders results as YAML documents.
type YAMLFormatter struct{}

func (f *YAMLFormatter) encode(value any) (string, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(value); err != nil {
		return "", err
	}
	if err := encoder.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (f *YAMLFormatter) FormatObjects(objects []hubspot.Object, _ []string) (string, error) {
	if objects == nil {
		objects = []hubspot.Object{}
	}
	return f.encode(objects)
}

func (f *YAMLFormatter) FormatObject(object *hubspot.Object) (string, error) {
	if object == nil {
		return "", nil
	}
	return f.encode(object)
}

func (f *YAMLFormatter) FormatStatus(status *Status) (string, error) {
	if status == nil {
		return "", nil
	}
	return f.encode(status)
}

func (f *YAMLFormatter) FormatOwners(owners []hubspot.Owner) (string, error) {
	if owners == nil {
		owners = []hubspot.Owner{}
	}
	return f.encode(owners)
}

func (f *YAMLFormatter) FormatPipelines(pipelines []hubspot.Pipeline) (string, error) {
	if pipelines == nil {
		pipelines = []hubspot.Pipeline{}
	}
	return f.encode(pipelines)
}
