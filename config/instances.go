package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ibm-apiconnect/backstage/pkg/models"
)

type instancesFile struct {
	Instances []models.Instance `yaml:"instances"`
}

// LoadInstances reads and validates the instance definitions file. Every
// instance must carry complete connection details and exactly one
// credential style; a misconfigured instance fails the load with a
// distinct error rather than surfacing at run time.
func LoadInstances(path string) ([]models.Instance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read instances file %s: %w", path, err)
	}

	var file instancesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse instances file %s: %w", path, err)
	}

	validate := validator.New()
	for _, inst := range file.Instances {
		if err := validate.Struct(inst); err != nil {
			return nil, fmt.Errorf("invalid instance %q: %w", inst.ID, err)
		}
		if err := inst.ValidateCredentials(); err != nil {
			return nil, fmt.Errorf("invalid instance %q: %w", inst.ID, err)
		}
	}

	return file.Instances, nil
}
