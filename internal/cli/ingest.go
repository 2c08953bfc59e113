package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/nevindra/pdfvec/ingest"
)

func (a *App) ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "extract, chunk and store a document",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "collection", Usage: "target collection (default: pdf_documents)"},
			&cli.IntFlag{Name: "chunk-size", Usage: "maximum chunk length in characters (default: 1000)"},
			&cli.IntFlag{Name: "chunk-overlap", Usage: "characters shared by consecutive chunks (default: 200)"},
			&cli.IntFlag{Name: "batch-size", Usage: "records per store request, 1 to 100 (default: 20)"},
			&cli.StringFlag{Name: "mode", Usage: "delegated (store embeds) or local (provider embeds)"},
			&cli.StringFlag{Name: "source-id", Usage: "source id recorded on every chunk (default: file name)"},
			&cli.StringFlag{Name: "duplicates", Usage: "upsert or reject existing record ids"},
		},
		Action: a.ingestAction,
	}
}

func (a *App) ingestAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return errors.New("ingest: expected exactly one document path")
	}
	path := cmd.Args().First()
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	cfg := a.cfg
	if cmd.IsSet("collection") {
		cfg.Ingest.Collection = cmd.String("collection")
	}
	if cmd.IsSet("chunk-size") {
		cfg.Ingest.ChunkSize = cmd.Int("chunk-size")
	}
	if cmd.IsSet("chunk-overlap") {
		cfg.Ingest.ChunkOverlap = cmd.Int("chunk-overlap")
	}
	if cmd.IsSet("batch-size") {
		cfg.Ingest.BatchSize = cmd.Int("batch-size")
	}
	if cmd.IsSet("mode") {
		cfg.Embedding.Mode = cmd.String("mode")
	}
	if cmd.IsSet("duplicates") {
		cfg.Ingest.Duplicates = cmd.String("duplicates")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	chunker, err := ingest.NewRecursiveChunker(
		ingest.WithChunkSize(cfg.Ingest.ChunkSize),
		ingest.WithChunkOverlap(cfg.Ingest.ChunkOverlap),
	)
	if err != nil {
		return err
	}
	vec, err := a.vectorization(cfg)
	if err != nil {
		return err
	}
	store, err := a.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ing := ingest.NewIngestor(store, vec,
		ingest.WithBatchSize(cfg.Ingest.BatchSize),
		ingest.WithBatchDelay(cfg.BatchDelay()),
		ingest.WithDuplicatePolicy(cfg.DuplicatePolicy()),
		ingest.WithCollectionSpec(collectionSpec(cfg)),
		ingest.WithLogger(a.log),
	)
	opts := []ingest.PipelineOption{ingest.WithPipelineLogger(a.log)}
	if id := cmd.String("source-id"); id != "" {
		opts = append(opts, ingest.WithSourceID(id))
	}
	pipeline := ingest.NewPipeline(chunker, ing, opts...)

	summary, err := pipeline.IngestFile(ctx, path, cfg.Ingest.Collection)
	if err != nil {
		// Batches that already ran are still reported.
		if len(summary.Batches) > 0 {
			renderSummary(a.stdout, summary)
		}
		return err
	}
	renderSummary(a.stdout, summary)
	if n := summary.FailedBatches(); n > 0 {
		return fmt.Errorf("ingest: %d of %d batches failed: %w", n, len(summary.Batches), summary.Err())
	}
	return nil
}
