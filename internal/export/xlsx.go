package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	xdraw "golang.org/x/image/draw"
)

const (
	sheetName       = "Export"
	DefaultFilename = "storyboard.xlsx"

	// Excel measures row height in points and column width in character
	// units; these approximate the 200x150 px image box at 96 DPI.
	screenshotRowHeight = 112.5
	screenshotColWidth  = 28.5
)

// XLSXWriter turns an export table into a workbook on disk.
type XLSXWriter struct {
	logger *slog.Logger
}

func NewXLSXWriter(logger *slog.Logger) *XLSXWriter {
	return &XLSXWriter{logger: logger}
}

// Write renders the table into outputDir/filename and returns the full
// path. The workbook lands via a temp file and rename, so a failed write
// never leaves a truncated file behind.
func (w *XLSXWriter) Write(ctx context.Context, table Table, outputDir, filename string) (string, error) {
	if err := ValidateOutputDir(outputDir); err != nil {
		return "", err
	}

	filename = SanitizeName(filename, 120)
	if filename == "" {
		filename = DefaultFilename
	}
	if filepath.Ext(filename) != ".xlsx" {
		filename += ".xlsx"
	}

	thumbs := w.renderThumbnails(ctx, table)

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for col, header := range table.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return "", err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return "", err
		}
	}

	for i, tableRow := range table.Rows {
		row := i + 2 // data starts under the header row

		cells := append([]string{tableRow.LensNumber, tableRow.Timestamp, ""}, tableRow.Values...)
		for col, value := range cells {
			if col == 2 {
				continue // screenshot column
			}
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return "", err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return "", err
			}
		}

		if thumb := thumbs[i]; thumb != nil {
			cell, _ := excelize.CoordinatesToCellName(3, row)
			err := f.AddPictureFromBytes(sheetName, cell, &excelize.Picture{
				Extension: ".png",
				File:      thumb,
				Format:    &excelize.GraphicOptions{LockAspectRatio: false},
			})
			if err != nil {
				return "", fmt.Errorf("embedding screenshot in row %d: %w", row, err)
			}
		}

		if err := f.SetRowHeight(sheetName, row, screenshotRowHeight); err != nil {
			return "", err
		}
	}

	if err := f.SetColWidth(sheetName, "C", "C", screenshotColWidth); err != nil {
		return "", err
	}

	outPath := filepath.Join(outputDir, filename)
	if err := w.saveAtomic(f, outPath); err != nil {
		return "", err
	}

	if w.logger != nil {
		w.logger.Info("storyboard exported", "path", outPath, "rows", len(table.Rows))
	}
	return outPath, nil
}

// renderThumbnails scales every screenshot into the export box up front,
// a few at a time. A frame whose image cannot be decoded exports with an
// empty screenshot cell instead of failing the workbook.
func (w *XLSXWriter) renderThumbnails(ctx context.Context, table Table) [][]byte {
	thumbs := make([][]byte, len(table.Rows))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, row := range table.Rows {
		if len(row.Image) == 0 {
			continue
		}
		i, data := i, row.Image
		g.Go(func() error {
			thumb, err := scaleToBox(data)
			if err != nil {
				if w.logger != nil {
					w.logger.Warn("screenshot undecodable, exporting without it", "row", i+2, "error", err)
				}
				return nil
			}
			thumbs[i] = thumb
			return nil
		})
	}

	g.Wait()
	return thumbs
}

func scaleToBox(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, ImageBoxWidth, ImageBoxHeight))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (w *XLSXWriter) saveAtomic(f *excelize.File, outPath string) error {
	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".export-*.xlsx")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := f.Write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("moving workbook into place: %w", err)
	}
	return nil
}
