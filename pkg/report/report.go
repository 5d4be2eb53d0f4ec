// Package report writes a run's report document and the archive bundling
// it with the downloaded images.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zip"
	"shopscraper/pkg/config"
	"shopscraper/pkg/errors"
	"shopscraper/pkg/logger"
	"shopscraper/pkg/models"
	"shopscraper/pkg/storage"
)

// Builder writes reports into an output directory
type Builder struct {
	cfg    config.OutputConfig
	store  *storage.Manager
	logger logger.Logger
}

// NewBuilder creates a builder writing alongside the images managed by store
func NewBuilder(cfg config.OutputConfig, store *storage.Manager, log logger.Logger) *Builder {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Builder{cfg: cfg, store: store, logger: log.WithField("component", "report")}
}

// Prepare clears images left by a previous run
func (b *Builder) Prepare() error {
	if err := b.store.Reset(); err != nil {
		return errors.Wrap(errors.ErrorTypeOutput, "failed to prepare image directory", err)
	}
	b.logger.Info("Cleaned up old images folder")
	return nil
}

// Write writes the JSON report, then the archive
func (b *Builder) Write(report *models.Report) error {
	if err := b.WriteJSON(report); err != nil {
		return err
	}
	return b.WriteArchive()
}

// Encode renders report as indented UTF-8 JSON with non-ASCII text kept
// literal.
func Encode(report *models.Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJSON writes the report document
func (b *Builder) WriteJSON(report *models.Report) error {
	data, err := Encode(report)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeOutput, "failed to encode report", err)
	}

	path := b.cfg.ReportPath()
	if err := storage.WriteFileAtomic(path, bytes.NewReader(data)); err != nil {
		return errors.Wrap(errors.ErrorTypeOutput, "failed to write report", err)
	}

	b.logger.InfoWithFields("Prices saved", map[string]interface{}{
		"path":       path,
		"products":   report.Metadata.TotalProducts,
		"categories": report.Metadata.CategoriesScraped,
	})
	return nil
}

// WriteArchive zips the report document and every saved image. Entries keep
// their paths relative to the output directory.
func (b *Builder) WriteArchive() error {
	images, err := b.store.Files()
	if err != nil {
		return errors.Wrap(errors.ErrorTypeOutput, "failed to list images", err)
	}

	path := b.cfg.ArchivePath()
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(errors.ErrorTypeOutput, "failed to create archive directory", err)
	}

	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeOutput, "failed to create archive", err)
	}

	err = b.fillArchive(f, images)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return errors.Wrap(errors.ErrorTypeOutput, "failed to write archive", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(errors.ErrorTypeOutput, "failed to rename archive", err)
	}

	b.logger.InfoWithFields("Created archive", map[string]interface{}{
		"path":   path,
		"images": len(images),
	})
	return nil
}

func (b *Builder) fillArchive(w io.Writer, images []string) error {
	zw := zip.NewWriter(w)

	entries := append([]string{b.cfg.ReportFile}, images...)
	for _, rel := range entries {
		if err := addFile(zw, filepath.Join(b.cfg.Directory, filepath.FromSlash(rel)), rel); err != nil {
			zw.Close()
			return err
		}
	}
	return zw.Close()
}

func addFile(zw *zip.Writer, src, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.ToSlash(name)
	header.Method = zip.Deflate
	header.Modified = info.ModTime().Truncate(time.Second)

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	return nil
}

// Load reads a report document back
func Load(path string) (*models.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeOutput, "failed to read report", err)
	}

	var report models.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeOutput, "failed to parse report", err)
	}
	return &report, nil
}
