package analysis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/crucible-sim/crucible/internal/genai"
	"github.com/crucible-sim/crucible/internal/models"
	"github.com/crucible-sim/crucible/internal/store"
)

// fakeClient implements generationClient with a canned analysis result.
type fakeClient struct {
	mu     sync.Mutex
	calls  int
	result analysisWire
	err    error
}

func (f *fakeClient) GenerateJSON(_ context.Context, _, _ string, _ *genai.Schema, _ genai.GenerateConfig, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	*out.(*analysisWire) = f.result
	return nil
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func cannedResult() analysisWire {
	heatmap := make(map[string]float64)
	for i, metric := range models.HeatmapMetrics() {
		heatmap[metric] = float64(5 + i%3)
	}
	return analysisWire{
		OverallScore:       78,
		KeyStrengths:       []string{"Decisive under pressure", "Clear ownership of outcomes"},
		GrowthAreas:        []string{"Surface dissenting views earlier"},
		ActionableFeedback: "Assign a devil's advocate before committing to irreversible calls.",
		HeatmapData:        heatmap,
	}
}

func seedRecord(t *testing.T, st store.Store, entries int) *models.Record {
	t.Helper()

	rec := &models.Record{
		TeamSize: 4,
		Domain:   "Healthcare",
		Scenario: models.Scenario{
			Title:       "The Breach",
			Description: "Customer data has leaked.",
			KeyDecision: "Disclose now or verify first?",
		},
		Status:    models.StatusCompleted,
		CreatedAt: time.Now().UTC(),
	}
	roles := []models.Role{models.RoleHost, models.RoleTeam, models.RoleHost, models.RoleTeam}
	for i := 0; i < entries; i++ {
		rec.Transcript = append(rec.Transcript, models.TranscriptEntry{
			Role:      roles[i%len(roles)],
			Content:   "line",
			CreatedAt: time.Now().UTC(),
		})
	}
	_, err := st.Create(rec)
	require.NoError(t, err)
	return rec
}

func newTestAnalyzer(t *testing.T, client *fakeClient) (*Analyzer, store.Store) {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return NewAnalyzer(st, client, genai.GenerateConfig{Temperature: 0.3}, nil), st
}

func TestAnalyze(t *testing.T) {
	client := &fakeClient{result: cannedResult()}
	analyzer, st := newTestAnalyzer(t, client)
	rec := seedRecord(t, st, 4)

	analysis, err := analyzer.Analyze(context.Background(), rec.ID)
	require.NoError(t, err)

	require.Equal(t, 78.0, analysis.OverallScore)
	require.Len(t, analysis.HeatmapData, 6)
	for _, metric := range models.HeatmapMetrics() {
		require.Contains(t, analysis.HeatmapData, metric)
	}

	stored, err := st.Get(rec.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusAnalyzed, stored.Status)
	require.NotNil(t, stored.Analysis)
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	client := &fakeClient{result: cannedResult()}
	analyzer, st := newTestAnalyzer(t, client)
	rec := seedRecord(t, st, 4)

	first, err := analyzer.Analyze(context.Background(), rec.ID)
	require.NoError(t, err)

	second, err := analyzer.Analyze(context.Background(), rec.ID)
	require.NoError(t, err)

	require.Equal(t, first, second, "repeated calls must return the identical analysis")
	require.Equal(t, 1, client.callCount(), "only one upstream generation call may be issued")
}

func TestAnalyzeCollapsesConcurrentCalls(t *testing.T) {
	client := &fakeClient{result: cannedResult()}
	analyzer, st := newTestAnalyzer(t, client)
	rec := seedRecord(t, st, 4)

	const callers = 8
	results := make([]*models.Analysis, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = analyzer.Analyze(context.Background(), rec.ID)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, results[0], results[i], "every caller must see the same analysis")
	}
	require.Equal(t, 1, client.callCount(), "concurrent calls must collapse to one upstream call")
}

func TestAnalyzeInsufficientData(t *testing.T) {
	client := &fakeClient{result: cannedResult()}
	analyzer, st := newTestAnalyzer(t, client)
	rec := seedRecord(t, st, 1)

	_, err := analyzer.Analyze(context.Background(), rec.ID)
	require.ErrorIs(t, err, ErrInsufficientData)
	require.Zero(t, client.callCount())

	// Nothing was written.
	stored, err := st.Get(rec.ID)
	require.NoError(t, err)
	require.Nil(t, stored.Analysis)
	require.Equal(t, models.StatusCompleted, stored.Status)
}

func TestAnalyzeUnknownID(t *testing.T) {
	client := &fakeClient{result: cannedResult()}
	analyzer, _ := newTestAnalyzer(t, client)

	_, err := analyzer.Analyze(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAnalyzePassesThroughOutOfRangeScores(t *testing.T) {
	result := cannedResult()
	result.OverallScore = 140
	result.HeatmapData[models.MetricAdaptability] = 14

	client := &fakeClient{result: result}
	analyzer, st := newTestAnalyzer(t, client)
	rec := seedRecord(t, st, 4)

	analysis, err := analyzer.Analyze(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Equal(t, 140.0, analysis.OverallScore)
	require.Equal(t, 14.0, analysis.HeatmapData[models.MetricAdaptability])
}

func TestAnalyzeReturnsCopy(t *testing.T) {
	client := &fakeClient{result: cannedResult()}
	analyzer, st := newTestAnalyzer(t, client)
	rec := seedRecord(t, st, 4)

	first, err := analyzer.Analyze(context.Background(), rec.ID)
	require.NoError(t, err)
	first.HeatmapData[models.MetricCommunication] = -99

	second, err := analyzer.Analyze(context.Background(), rec.ID)
	require.NoError(t, err)
	require.NotEqual(t, -99.0, second.HeatmapData[models.MetricCommunication])
}
