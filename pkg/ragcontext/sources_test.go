package ragcontext

import (
	"strings"
	"testing"
	"time"

	"github.com/smarthealth/platform/pkg/clinical"
	"github.com/smarthealth/platform/pkg/retrieval"
)

func TestBuildSourcesOrderAndShape(t *testing.T) {
	sources := BuildSources(testFragments(), testBundle())

	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}

	first := sources[0]
	if first.Type != SourceKindVector {
		t.Fatalf("first source should be tagged %s, got %s", SourceKindVector, first.Type)
	}
	if first.ID != 1 {
		t.Fatalf("display ids should start at 1, got %d", first.ID)
	}
	if first.SourceType != retrieval.SourceAppointment || first.SourceID != 10 {
		t.Fatalf("unexpected provenance: %+v", first)
	}
	if first.RelevanceScore == nil || *first.RelevanceScore != 0.9 {
		t.Fatalf("vector source should carry its relevance score: %+v", first)
	}

	second := sources[1]
	if second.Type != SourceKindClinical {
		t.Fatalf("second source should be tagged %s, got %s", SourceKindClinical, second.Type)
	}
	if second.ID != 2 {
		t.Fatalf("display ids should increment, got %d", second.ID)
	}
	if second.Date == nil {
		t.Fatal("appointment source should carry its date")
	}
	if second.Snippet != "Control de hipertensión" {
		t.Fatalf("appointment source should carry the reason snippet, got %q", second.Snippet)
	}
}

func TestBuildSourcesIsStable(t *testing.T) {
	first := BuildSources(testFragments(), testBundle())
	second := BuildSources(testFragments(), testBundle())

	if len(first) != len(second) {
		t.Fatal("source count changed between identical calls")
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Type != second[i].Type || first[i].SourceID != second[i].SourceID {
			t.Fatalf("source %d differs between identical calls", i)
		}
	}
}

func TestBuildSourcesTruncatesSnippet(t *testing.T) {
	long := strings.Repeat("texto clínico ", 40)
	fragments := []retrieval.Fragment{{
		SourceType:     retrieval.SourceMedicalRecord,
		SourceID:       1,
		Text:           long,
		RelevanceScore: 0.5,
	}}

	sources := BuildSources(fragments, &clinical.RecordBundle{})
	if got := len([]rune(sources[0].Snippet)); got > 250 {
		t.Fatalf("snippet should be capped at 250 chars, got %d", got)
	}
}

func TestBuildMetadata(t *testing.T) {
	bundle := testBundle()
	fragments := testFragments()

	metadata := BuildMetadata(bundle, fragments, 120*time.Second, 345)

	if metadata.TotalRecordsAnalyzed != bundle.TotalRecords() {
		t.Fatalf("expected %d records analyzed, got %d", bundle.TotalRecords(), metadata.TotalRecordsAnalyzed)
	}
	if metadata.VectorResults != 1 {
		t.Fatalf("expected 1 vector result, got %d", metadata.VectorResults)
	}
	if metadata.QueryTimeMS != 120000 {
		t.Fatalf("expected 120000 ms, got %d", metadata.QueryTimeMS)
	}
	if metadata.ContextTokens != 345 {
		t.Fatalf("expected 345 context tokens, got %d", metadata.ContextTokens)
	}
	// sources_used = fragments + appointments
	if metadata.SourcesUsed != 2 {
		t.Fatalf("expected 2 sources used, got %d", metadata.SourcesUsed)
	}
	if metadata.FallbackMode {
		t.Fatal("fallback mode should default to false")
	}
}

func TestBuildMetadataRoundsElapsed(t *testing.T) {
	metadata := BuildMetadata(&clinical.RecordBundle{}, nil, 1_499_600*time.Microsecond, 0)
	if metadata.QueryTimeMS != 1500 {
		t.Fatalf("expected rounded 1500 ms, got %d", metadata.QueryTimeMS)
	}
}
