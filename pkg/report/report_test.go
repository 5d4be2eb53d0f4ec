package report

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"shopscraper/pkg/config"
	"shopscraper/pkg/logger"
	"shopscraper/pkg/models"
	"shopscraper/pkg/storage"
)

func newBuilder(t *testing.T) (*Builder, *storage.Manager, config.OutputConfig) {
	t.Helper()
	cfg := config.DefaultConfig().Output
	cfg.Directory = t.TempDir()

	store, err := storage.NewManager(cfg.Directory, cfg.ImagesDir, cfg.DebugDir)
	require.NoError(t, err)
	return NewBuilder(cfg, store, logger.NewNopLogger()), store, cfg
}

func sampleReport() *models.Report {
	id := "E482305-000"
	img := "images/men/tops/E482305-000.jpg"
	return &models.Report{
		Metadata: models.RunMetadata{
			RunID:             "9b2f3c1e-0000-4000-8000-000000000000",
			Datetime:          "2026-10-19T12:00:00.5+00:00",
			ScraperVersion:    "1.0.0",
			DurationSeconds:   12.34,
			TotalProducts:     2,
			TotalFailed:       1,
			TotalDuplicates:   3,
			CategoriesScraped: 1,
			Categories:        []string{"men/tops"},
			CategoriesAborted: []string{"men/outerwear"},
		},
		Products: map[string][]models.ProductRecord{
			"men/tops": {
				{ProductID: &id, Name: "Tシャツ Café <crème> & co", Price: "$19.90", URL: "https://shop.test/ca/en/products/E482305-000/00", Image: &img},
				{ProductID: nil, Name: "Gift Card", Price: "$25.00", URL: "https://shop.test/ca/en/gift-card", Image: nil},
			},
		},
	}
}

func TestReportRoundTrip(t *testing.T) {
	b, _, cfg := newBuilder(t)
	original := sampleReport()

	require.NoError(t, b.WriteJSON(original))

	raw, err := os.ReadFile(cfg.ReportPath())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Tシャツ Café <crème> & co", "non-ASCII and HTML characters stay literal")
	assert.Contains(t, string(raw), `"product_id": null`)
	assert.Contains(t, string(raw), `"image": null`)
	assert.Contains(t, string(raw), "\n  \"metadata\"")

	loaded, err := Load(cfg.ReportPath())
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestWriteArchive(t *testing.T) {
	b, store, cfg := newBuilder(t)
	require.NoError(t, b.Prepare())

	for _, name := range []string{"E1-000", "E2-000"} {
		_, err := store.SaveImage(bytes.NewReader([]byte("jpeg "+name)), "men/tops", name)
		require.NoError(t, err)
	}
	require.NoError(t, b.Write(sampleReport()))

	zr, err := zip.OpenReader(cfg.ArchivePath())
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"images/men/tops/E1-000.jpg", "images/men/tops/E2-000.jpg", "prices.json"}, names)

	for _, f := range zr.File {
		if f.Name != "images/men/tops/E2-000.jpg" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		buf := new(bytes.Buffer)
		_, err = buf.ReadFrom(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, "jpeg E2-000", buf.String())
	}

	assert.NoFileExists(t, cfg.ArchivePath()+".tmp")
}

func TestPrepareRemovesStaleImages(t *testing.T) {
	b, _, cfg := newBuilder(t)
	stale := filepath.Join(cfg.Directory, "images", "old", "stale.jpg")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

	require.NoError(t, b.Prepare())
	require.NoError(t, b.Write(&models.Report{Products: map[string][]models.ProductRecord{}}))

	zr, err := zip.OpenReader(cfg.ArchivePath())
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 1)
	assert.Equal(t, "prices.json", zr.File[0].Name)
}

func TestWriteFailsWhenOutputUnwritable(t *testing.T) {
	b, _, cfg := newBuilder(t)
	// A directory where the report file should be makes the rename fail.
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.ReportPath(), "blocker"), 0755))

	err := b.Write(sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output error")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
