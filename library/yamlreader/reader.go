package yamlreader

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NewConfig читает yaml-файл по пути path в структуру T.
// Неизвестные ключи считаются ошибкой.
func NewConfig[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile: %w", err)
	}

	return Parse[T](data)
}

func Parse[T any](data []byte) (*T, error) {
	var cfg T

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("yaml.Decode: %w", err)
	}

	return &cfg, nil
}
