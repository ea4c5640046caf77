package project

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/piwi3910/BarCut/internal/model"
)

const archiveVersion = "1.0.0"

// RunArchive bundles a request with the response it produced.
type RunArchive struct {
	Version   string         `json:"version"`
	ID        string         `json:"id"`
	CreatedAt string         `json:"created_at"`
	Request   model.Request  `json:"request"`
	Response  model.Response `json:"response"`
}

// NewRunArchive stamps a request/response pair with an ID and time.
func NewRunArchive(req model.Request, resp model.Response) RunArchive {
	return RunArchive{
		Version:   archiveVersion,
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Request:   req,
		Response:  resp,
	}
}

// SaveRunArchive writes an archive to a JSON file.
func SaveRunArchive(path string, archive RunArchive) error {
	return writeJSON(path, archive)
}

// LoadRunArchive reads an archive written by SaveRunArchive.
func LoadRunArchive(path string) (RunArchive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunArchive{}, fmt.Errorf("failed to read archive file: %w", err)
	}
	var archive RunArchive
	if err := json.Unmarshal(data, &archive); err != nil {
		return RunArchive{}, fmt.Errorf("failed to parse archive file: %w", err)
	}
	if archive.Version == "" {
		return RunArchive{}, fmt.Errorf("invalid archive file: missing version field")
	}
	return archive, nil
}
