package astra

import (
	"context"
	"fmt"
	"slices"

	pdfvec "github.com/nevindra/pdfvec"
)

// ListCollections returns the names of the collections in the keyspace.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	resp, err := s.command(ctx, "", map[string]any{"findCollections": map[string]any{}})
	if err != nil {
		return nil, fmt.Errorf("astra: find collections: %w", err)
	}
	if err := resp.err(); err != nil {
		return nil, fmt.Errorf("astra: find collections: %w", err)
	}
	var st findCollectionsStatus
	if err := resp.status(&st); err != nil {
		return nil, fmt.Errorf("astra: decode collections: %w", err)
	}
	return st.Collections, nil
}

// EnsureCollection creates a vector collection for spec unless one with the
// same name exists. Existing collections are not altered.
func (s *Store) EnsureCollection(ctx context.Context, spec pdfvec.CollectionSpec) error {
	if err := pdfvec.ValidateCollectionName(spec.Name); err != nil {
		return err
	}
	names, err := s.ListCollections(ctx)
	if err != nil {
		return err
	}
	if slices.Contains(names, spec.Name) {
		s.logger.Debug("astra collection exists", "collection", spec.Name)
		return nil
	}

	vector, err := s.vectorOptions(spec)
	if err != nil {
		return err
	}
	cmd := map[string]any{"createCollection": map[string]any{
		"name":    spec.Name,
		"options": map[string]any{"vector": vector},
	}}
	resp, err := s.command(ctx, "", cmd)
	if err != nil {
		return fmt.Errorf("astra: create collection %s: %w", spec.Name, err)
	}
	if err := resp.err(); err != nil {
		return fmt.Errorf("astra: create collection %s: %w", spec.Name, err)
	}
	s.logger.Info("astra collection created", "collection", spec.Name, "mode", spec.Mode)
	return nil
}

func (s *Store) vectorOptions(spec pdfvec.CollectionSpec) (map[string]any, error) {
	metric := spec.Metric
	if metric == "" {
		metric = "cosine"
	}
	vector := map[string]any{"metric": metric}
	switch spec.Mode {
	case pdfvec.ModeLocal:
		if spec.Dimensions <= 0 {
			return nil, fmt.Errorf("astra: collection %s: local mode needs a vector dimension", spec.Name)
		}
		vector["dimension"] = spec.Dimensions
	case pdfvec.ModeDelegated:
		provider, model := spec.VectorizeProvider, spec.VectorizeModel
		if provider == "" {
			provider, model = s.vectorizeProvider, s.vectorizeModel
		}
		vector["service"] = map[string]any{"provider": provider, "modelName": model}
		if spec.Dimensions > 0 {
			vector["dimension"] = spec.Dimensions
		}
	default:
		return nil, fmt.Errorf("astra: %w: %q", pdfvec.ErrUnsupportedMode, spec.Mode)
	}
	return vector, nil
}
