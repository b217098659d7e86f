package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ishanwen-byte/symrule-go/internal/types"
	"github.com/ishanwen-byte/symrule-go/pkg/gp"
)

// Checkpoint is a best-effort snapshot of search progress. Individuals
// are stored in canonical textual form and re-parsed on load, so the
// format stays independent of the node representation.
type Checkpoint struct {
	Version    string             `json:"version"`
	CreatedAt  time.Time          `json:"created_at"`
	Generation int                `json:"generation"`
	HallOfFame []types.HofEntry   `json:"hall_of_fame"`
	History    []types.BestRecord `json:"history"`
}

// SaveCheckpoint writes the current search state under the configured
// checkpoint directory. A missing directory configuration is a no-op.
func (e *Engine) SaveCheckpoint() error {
	if e.cfg.CheckpointDir == "" {
		return nil
	}

	checkpoint := Checkpoint{
		Version:    "1.0",
		CreatedAt:  time.Now(),
		Generation: e.generation,
		HallOfFame: e.hof.Top(e.hof.Len()),
		History:    e.History(),
	}

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	if err := os.MkdirAll(e.cfg.CheckpointDir, 0755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	file := filepath.Join(e.cfg.CheckpointDir, fmt.Sprintf("checkpoint_%d.json", e.generation))
	if err := os.WriteFile(file, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}

	latest := filepath.Join(e.cfg.CheckpointDir, "latest.json")
	if err := os.WriteFile(latest, data, 0644); err != nil {
		return fmt.Errorf("failed to write latest checkpoint: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"generation": e.generation,
		"file":       file,
	}).Info("Saved checkpoint")

	return nil
}

// LoadCheckpoint restores the hall of fame, history and generation
// counter from a checkpoint file. Entries that no longer parse against
// the active primitive set are skipped with a warning.
func (e *Engine) LoadCheckpoint(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var checkpoint Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}

	e.hof.Clear()
	for _, entry := range checkpoint.HallOfFame {
		ind, err := e.parser.Parse(entry.Expression)
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"expression": entry.Expression,
				"error":      err.Error(),
			}).Warn("Skipping unparsable checkpoint entry")
			continue
		}
		ind.SetFitness(entry.Fitness)
		e.hof.Update([]*gp.Individual{ind})
	}

	e.history = checkpoint.History
	e.generation = checkpoint.Generation

	e.logger.WithFields(logrus.Fields{
		"generation": checkpoint.Generation,
		"entries":    e.hof.Len(),
		"file":       path,
	}).Info("Loaded checkpoint")

	return nil
}
