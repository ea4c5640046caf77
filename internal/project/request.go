// Package project reads and writes the JSON files the CLI works with:
// requests, responses, stock lists and run archives.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/piwi3910/BarCut/internal/model"
	"github.com/piwi3910/BarCut/internal/schemas"
)

// LoadRequest reads a request file, validating it against the request
// schema before decoding.
func LoadRequest(path string) (model.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Request{}, fmt.Errorf("failed to read request file: %w", err)
	}
	return DecodeRequest(data)
}

// DecodeRequest validates and decodes request JSON.
func DecodeRequest(data []byte) (model.Request, error) {
	if err := schemas.ValidateRequest(data); err != nil {
		return model.Request{}, err
	}
	var req model.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return model.Request{}, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}

// SaveRequest writes a request as indented JSON.
func SaveRequest(path string, req model.Request) error {
	return writeJSON(path, req)
}

// SaveResponse writes a response as indented JSON.
func SaveResponse(path string, resp model.Response) error {
	return writeJSON(path, resp)
}

// writeJSON marshals v and writes it to path, creating parent directories.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
