package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/smarthealth/platform/pkg/common/logger"
)

// FragmentStore is the per-source similarity query; *Repository satisfies
// it.
type FragmentStore interface {
	SimilarBySource(ctx context.Context, sourceType string, patientID int64, queryVector []float32, limit, yearsBack int) ([]Fragment, error)
}

type Service struct {
	embedder Embedder
	store    FragmentStore
}

func NewService(embedder Embedder, store FragmentStore) *Service {
	return &Service{embedder: embedder, store: store}
}

// Search embeds the question once, queries every source type, and applies
// the uniform post-query pipeline: min-score filter, optional source-type
// filter, descending sort, global top-k truncation.
//
// A failure against one source type degrades to zero fragments from that
// type; only the embedding call is fatal.
func (s *Service) Search(ctx context.Context, patientID int64, question string, opts SearchOptions) ([]Fragment, error) {
	opts = opts.withDefaults()

	queryVector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	var fragments []Fragment
	for _, sourceType := range SourceTypes {
		rows, err := s.store.SimilarBySource(ctx, sourceType, patientID, queryVector, opts.PerSourceLimit, opts.YearsBack)
		if err != nil {
			logger.Log.WithError(err).WithFields(map[string]interface{}{
				"source_type": sourceType,
				"patient_id":  patientID,
			}).Warn("Similarity query failed, skipping source type")
			continue
		}
		fragments = append(fragments, rows...)
	}

	filtered := fragments[:0]
	for _, f := range fragments {
		if f.RelevanceScore < opts.MinScore {
			continue
		}
		if len(opts.AllowedSources) > 0 && !containsString(opts.AllowedSources, f.SourceType) {
			continue
		}
		filtered = append(filtered, f)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].RelevanceScore > filtered[j].RelevanceScore
	})

	if len(filtered) > opts.TopK {
		filtered = filtered[:opts.TopK]
	}

	return filtered, nil
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
