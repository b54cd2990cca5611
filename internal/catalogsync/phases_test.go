package catalogsync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catalog-sync/internal/catalog"
	"github.com/sells-group/catalog-sync/internal/classify"
	"github.com/sells-group/catalog-sync/internal/facet"
	"github.com/sells-group/catalog-sync/internal/fetcher"
	"github.com/sells-group/catalog-sync/internal/model"
	"github.com/sells-group/catalog-sync/internal/pricing"
	"github.com/sells-group/catalog-sync/internal/resilience"
	"github.com/sells-group/catalog-sync/internal/search"
	"github.com/sells-group/catalog-sync/internal/transform"
	"github.com/sells-group/catalog-sync/pkg/searchindex"
)

// feedLine builds a 77-field inventory line.
func feedLine(stock, name, dept, qty, lifecycle string) string {
	fields := make([]string, 77)
	for i := range fields {
		fields[i] = "N"
	}
	fields[0] = stock
	fields[1] = "000000000000"
	fields[2] = name
	fields[3] = dept
	fields[5] = "100.00"
	fields[6] = "80.00"
	fields[8] = qty
	fields[10] = "Acme"
	fields[12] = lifecycle
	fields[13] = ""
	fields[70] = "0"
	return strings.Join(fields, ";")
}

func writeFile(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
}

type lastReport struct{ done, total int }

func (l *lastReport) fn() ProgressFunc {
	return func(done, total int) { l.done, l.total = done, total }
}

func TestFetchPhase_DownloadsFeedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "drop", "inventory.txt"), "a", "b")
	writeFile(t, filepath.Join(root, "drop", "qty.csv"), "stock,qty")
	local := filepath.Join(t.TempDir(), "local")

	phase := FetchPhase(FetchConfig{
		Source:    fetcher.DirSource{Root: root},
		RemoteDir: "drop",
		LocalDir:  local,
		Required:  []string{"inventory.txt"},
		Optional:  []string{"qty.csv", "deleted.txt"},
		Retry:     fastRetry(),
	})

	var rep lastReport
	res, err := phase(context.Background(), rep.fn())
	require.NoError(t, err)
	assert.Equal(t, []string{"inventory.txt", "qty.csv"}, res.Files)
	assert.Equal(t, rep.total, rep.done)
	assert.Positive(t, rep.total)

	data, err := os.ReadFile(filepath.Join(local, "inventory.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(data))
	assert.NoFileExists(t, filepath.Join(local, "deleted.txt"))
}

func TestFetchPhase_MissingRequiredFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "drop"), 0o755))

	phase := FetchPhase(FetchConfig{
		Source:    fetcher.DirSource{Root: root},
		RemoteDir: "drop",
		LocalDir:  t.TempDir(),
		Required:  []string{"inventory.txt"},
		Retry:     fastRetry(),
	})
	_, err := phase(context.Background(), func(int, int) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inventory.txt not found")
}

type flakySource struct {
	fetcher.Source
	failures atomic.Int32
}

func (f *flakySource) Fetch(ctx context.Context, remote, local string, progress fetcher.ProgressFunc) (int64, error) {
	if f.failures.Add(-1) >= 0 {
		return 0, resilience.NewTransientError(errors.New("426 connection closed"), 426)
	}
	return f.Source.Fetch(ctx, remote, local, progress)
}

func TestFetchPhase_RetriesTransientDownload(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "drop", "inventory.txt"), "a")
	src := &flakySource{Source: fetcher.DirSource{Root: root}}
	src.failures.Store(2)

	phase := FetchPhase(FetchConfig{
		Source:    src,
		RemoteDir: "drop",
		LocalDir:  t.TempDir(),
		Required:  []string{"inventory.txt"},
		Retry:     fastRetry(),
	})
	res, err := phase(context.Background(), func(int, int) {})
	require.NoError(t, err)
	assert.Equal(t, []string{"inventory.txt"}, res.Files)
}

func newTransformLoad(t *testing.T, dir string, mem *catalog.MemoryStore) PhaseFunc {
	t.Helper()
	return TransformLoadPhase(TransformLoadConfig{
		LocalDir:      dir,
		InventoryFile: "inventory.txt",
		QuantityFile:  "qty.csv",
		DeletedFile:   "deleted.txt",
		Delimiter:     ";",
		Transformer:   newTransformer(),
		Writer:        catalog.NewWriter(mem, mem),
		Workers:       2,
		BatchSize:     2,
	})
}

func seedFeed(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, "inventory.txt"),
		feedLine("RUG1103", "RUGER 10/22 CARBINE 22LR 18.5IN BLK", "05", "12", ""),
		feedLine("VTXVIPER", "Vortex Viper 4-16x44 Scope", "08", "3", ""),
		"SHORT;line;only",
		feedLine("OLDSKU", "Retired Widget", "14", "0", "D"),
		feedLine("MAGPUL30", "Magpul PMAG 30 AR/M4 GEN M3 5.56 30RD", "10", "40", ""),
	)
	writeFile(t, filepath.Join(dir, "qty.csv"),
		"stock,qty",
		"VTXVIPER,0",
		"UNKNOWN,7",
	)
	writeFile(t, filepath.Join(dir, "deleted.txt"),
		"MAGPUL30;Magpul PMAG 30;DELETED",
	)
}

func TestTransformLoadPhase_LoadsFeedAndSideFiles(t *testing.T) {
	dir := t.TempDir()
	seedFeed(t, dir)
	mem := catalog.NewMemoryStore()

	var rep lastReport
	res, err := newTransformLoad(t, dir, mem)(context.Background(), rep.fn())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 3, res.Inserted)
	assert.Equal(t, 1, res.Malformed)
	assert.Equal(t, 2, res.Skipped, "deleted inventory line and quantity header")
	assert.Zero(t, res.Updated, "every feed line was new")
	assert.Equal(t, 1, res.QuantityUpdated, "one quantity line matched")
	assert.Equal(t, 1, res.Deleted, "one deletion matched")
	assert.Zero(t, res.Errored)
	assert.Equal(t, 3, mem.Len())
	assert.Equal(t, rep.total, rep.done)

	ctx := context.Background()
	scope, err := mem.FindBySKU(ctx, "VTXVIPER")
	require.NoError(t, err)
	require.NotNil(t, scope)
	assert.Zero(t, scope.StockQuantity)
	assert.False(t, scope.InStock)
	assert.Equal(t, "4-16X", scope.Facets[model.FacetFrameSize])

	mag, err := mem.FindBySKU(ctx, "MAGPUL30")
	require.NoError(t, err)
	require.NotNil(t, mag)
	assert.False(t, mag.Active)
	assert.Equal(t, model.LifecycleDeleted, mag.Lifecycle)

	missing, err := mem.FindBySKU(ctx, "OLDSKU")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTransformLoadPhase_RerunIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	seedFeed(t, dir)
	mem := catalog.NewMemoryStore()
	phase := newTransformLoad(t, dir, mem)

	_, err := phase(context.Background(), func(int, int) {})
	require.NoError(t, err)
	first, _ := mem.FindBySKU(context.Background(), "RUG1103")

	res, err := phase(context.Background(), func(int, int) {})
	require.NoError(t, err)
	assert.Zero(t, res.Inserted)
	assert.Equal(t, 3, mem.Len())

	second, _ := mem.FindBySKU(context.Background(), "RUG1103")
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Category, second.Category)
}

func TestTransformLoadPhase_MissingInventory(t *testing.T) {
	mem := catalog.NewMemoryStore()
	_, err := newTransformLoad(t, t.TempDir(), mem)(context.Background(), func(int, int) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inventory")
}

func TestTransformLoadPhase_Canceled(t *testing.T) {
	dir := t.TempDir()
	seedFeed(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTransformLoad(t, dir, catalog.NewMemoryStore())(ctx, func(int, int) {})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

type recordingIndex struct {
	objects int
	deleted int
}

func (r *recordingIndex) Clear(context.Context, string) (*searchindex.TaskResponse, error) {
	return &searchindex.TaskResponse{}, nil
}

func (r *recordingIndex) BatchUpsert(_ context.Context, _ string, objects []searchindex.Object) (*searchindex.TaskResponse, error) {
	r.objects += len(objects)
	return &searchindex.TaskResponse{}, nil
}

func (r *recordingIndex) BatchDelete(_ context.Context, _ string, ids []string) (*searchindex.TaskResponse, error) {
	r.deleted += len(ids)
	return &searchindex.TaskResponse{}, nil
}

func (r *recordingIndex) ConfigureFacets(context.Context, string, []string) (*searchindex.TaskResponse, error) {
	return &searchindex.TaskResponse{}, nil
}

func (r *recordingIndex) Query(context.Context, string, searchindex.QueryRequest) (*searchindex.QueryResponse, error) {
	return &searchindex.QueryResponse{}, nil
}

func TestIndexPublishPhase(t *testing.T) {
	mem := catalog.NewMemoryStore()
	for _, sku := range []string{"A1", "B2", "C3"} {
		_, err := mem.Insert(context.Background(), &model.Product{SKU: sku, Name: sku, Active: true})
		require.NoError(t, err)
	}
	idx := &recordingIndex{}
	pub := search.NewPublisher(mem, idx, search.Options{Index: "products", BatchSize: 2, Retry: fastRetry()})

	var rep lastReport
	res, err := IndexPublishPhase(pub, nil)(context.Background(), rep.fn())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Published)
	assert.Equal(t, 3, idx.objects)
	assert.Equal(t, 3, rep.done)
}

func newTransformer() *transform.Transformer {
	return transform.New(facet.NewExtractor(), classify.New(), pricing.DefaultRules())
}
