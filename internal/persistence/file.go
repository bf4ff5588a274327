package persistence

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
)

// Load reads and parses the document at path. A missing file yields a
// fresh empty document with no error logged (this is the expected shape
// for a level's first run). A file that exists but fails to read or parse
// yields an empty document too, with the failure logged at error level —
// per spec §4.9/§7, a corrupt file must never prevent the service from
// starting.
func Load(logger *slog.Logger, path string) *Document {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewDocument()
	}
	if err != nil {
		logIfPresent(logger, "failed to read graph file, starting from empty graph", "path", path, "error", err)
		return NewDocument()
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		logIfPresent(logger, "graph file is malformed JSON, starting from empty graph", "path", path, "error", err)
		return NewDocument()
	}
	if doc.Nodes == nil {
		doc.Nodes = make(map[string]NodeDoc)
	}
	if doc.Edges == nil {
		doc.Edges = make(map[string]EdgeDoc)
	}
	if doc.Meta.Versions == nil {
		doc.Meta.Versions = make(map[string]VersionDoc)
	}
	return &doc
}

// Save writes doc to path atomically: marshal, write to a temp file in the
// same directory, fsync, then rename over path. A crash at any point before
// the rename leaves the previous file at path untouched (spec §4.9, tested
// by property 4 / scenario S6). Any failure removes the temp file and
// returns an error; the caller's dirty flag should remain set so the next
// maintenance tick retries.
func Save(doc *Document, path string) (err error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			return mkErr
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return err
	}

	succeeded = true
	return nil
}

func logIfPresent(logger *slog.Logger, msg string, args ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error(msg, args...)
}
