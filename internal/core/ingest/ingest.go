// Package ingest writes segmented episodes into the store in fixed-size
// chunks.
package ingest

import (
	"context"
	"fmt"

	"github.com/agenthands/ambridge/internal/config"
	"github.com/agenthands/ambridge/internal/core/model"
	"github.com/agenthands/ambridge/internal/logger"
	"github.com/agenthands/ambridge/internal/store"
)

type Ingester struct {
	Store     store.Store
	ChunkSize int
	log       *logger.Logger
}

// Result reports what a run wrote. Chunks counts committed chunks only.
type Result struct {
	Episodes     int
	Skipped      int
	Chunks       int
	NodesCreated int
	PIDs         []string
}

func NewIngester(s store.Store, chunkSize int, log *logger.Logger) *Ingester {
	if chunkSize <= 0 {
		chunkSize = config.DefaultChunkSize
	}
	return &Ingester{Store: s, ChunkSize: chunkSize, log: logger.OrNop(log)}
}

// ToInput derives the store write for one episode, assigning scene ids from
// their positions.
func ToInput(ep model.SegmentedEpisode) model.EpisodeInput {
	in := model.EpisodeInput{
		PID:      ep.PID,
		Date:     ep.Date,
		Synopsis: ep.Synopsis,
		Scenes:   make([]model.SceneInput, 0, len(ep.Scenes)),
	}
	for i, text := range ep.Scenes {
		in.Scenes = append(in.Scenes, model.SceneInput{ID: model.SceneID(ep.PID, i), Index: i, Text: text})
	}
	return in
}

// Ingest upserts the episodes chunk by chunk. A failing chunk stops the run;
// chunks committed before it stay, and the partial Result is returned with
// the error.
func (in *Ingester) Ingest(ctx context.Context, episodes []model.SegmentedEpisode) (Result, error) {
	var res Result
	inputs := make([]model.EpisodeInput, 0, len(episodes))
	for _, ep := range episodes {
		if _, err := model.ParseDate(ep.Date); err != nil {
			in.log.Warn("skipping episode with bad date", "pid", ep.PID, "date", ep.Date)
			res.Skipped++
			continue
		}
		inputs = append(inputs, ToInput(ep))
	}

	total := (len(inputs) + in.ChunkSize - 1) / in.ChunkSize
	for start := 0; start < len(inputs); start += in.ChunkSize {
		end := start + in.ChunkSize
		if end > len(inputs) {
			end = len(inputs)
		}
		chunk := inputs[start:end]
		created, err := in.Store.UpsertEpisodes(ctx, chunk)
		if err != nil {
			return res, fmt.Errorf("ingest chunk %d/%d: %w", res.Chunks+1, total, err)
		}
		res.Chunks++
		res.NodesCreated += created
		res.Episodes += len(chunk)
		for _, ep := range chunk {
			res.PIDs = append(res.PIDs, ep.PID)
		}
		in.log.Info("ingested chunk", "chunk", res.Chunks, "of", total, "episodes", len(chunk), "nodes_created", created)
	}
	return res, nil
}
