package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/urfave/cli/v3"

	pdfvec "github.com/nevindra/pdfvec"
)

func (a *App) queryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "search a collection by similarity",
		ArgsUsage: "[text]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "collection", Usage: "collection to search (default: pdf_documents)"},
			&cli.IntFlag{Name: "limit", Usage: "maximum number of results (default: 5)"},
			&cli.BoolFlag{Name: "list-collections", Usage: "list the collections instead of searching"},
		},
		Action: a.queryAction,
	}
}

func (a *App) queryAction(ctx context.Context, cmd *cli.Command) error {
	cfg := a.cfg
	if cmd.IsSet("collection") {
		cfg.Ingest.Collection = cmd.String("collection")
	}
	if cmd.IsSet("limit") {
		cfg.Query.Limit = cmd.Int("limit")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	text := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	list := cmd.Bool("list-collections")
	if text == "" && !list {
		return errors.New("query: missing query text (or pass --list-collections)")
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

	client := pdfvec.NewQueryClient(store, vec,
		pdfvec.QueryPreviewLength(cfg.Query.PreviewLength),
		pdfvec.QueryLogger(a.log),
	)
	if list {
		names, err := client.ListCollections(ctx)
		if err != nil {
			return err
		}
		renderCollections(a.stdout, names)
		if text == "" {
			return nil
		}
	}

	results, err := client.Query(ctx, text, cfg.Ingest.Collection, cfg.Query.Limit)
	if err != nil {
		return err
	}
	renderResults(a.stdout, text, cfg.Ingest.Collection, results)
	return nil
}

func (a *App) collectionsAction(ctx context.Context, _ *cli.Command) error {
	names, err := a.listCollections(ctx)
	if err != nil {
		return err
	}
	renderCollections(a.stdout, names)
	return nil
}

func (a *App) pingAction(ctx context.Context, _ *cli.Command) error {
	names, err := a.listCollections(ctx)
	if err != nil {
		return err
	}
	renderPing(a.stdout, a.cfg.Store.Backend, names)
	return nil
}

func (a *App) listCollections(ctx context.Context) ([]string, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := a.openStore(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.ListCollections(ctx)
}
