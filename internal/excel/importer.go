package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/lumi/pkg/models"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ErrUnsupportedFormat is returned for files that are neither xlsx nor csv
var ErrUnsupportedFormat = errors.New("excel: unsupported file format")

// VocabularyAdder stores imported words
type VocabularyAdder interface {
	AddVocabulary(ctx context.Context, userID int64, word, translation, category string) (models.ReviewableItem, error)
}

// ImportConfig defines the import configuration
type ImportConfig struct {
	WordColumn        string // Column with the word
	TranslationColumn string // Column with the translation
	CategoryColumn    string // Column with the category, optional
	SheetName         string // Sheet to import, the first sheet when empty
	StartRow          int    // The row to start importing from (1-based index)
	MaxRows           int    // Rows processed at most, 0 for no limit
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		WordColumn:        "A",
		TranslationColumn: "B",
		CategoryColumn:    "C",
		StartRow:          2, // skip header
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Skipped        int
	Errors         []string
}

// Importer turns spreadsheet rows into vocabulary items
type Importer struct {
	adder VocabularyAdder
	log   *zap.Logger
}

// NewImporter creates an importer
func NewImporter(adder VocabularyAdder, log *zap.Logger) *Importer {
	return &Importer{adder: adder, log: log}
}

// ImportFile imports words from an .xlsx or .csv file on disk
func (im *Importer) ImportFile(ctx context.Context, userID int64, path string, config ImportConfig) (*ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return im.Import(ctx, userID, filepath.Base(path), f, config)
}

// Import imports words from r. The format is chosen by the extension of name.
func (im *Importer) Import(ctx context.Context, userID int64, name string, r io.Reader, config ImportConfig) (*ImportResult, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		rows, err = readExcel(r, config.SheetName)
	case ".csv":
		rows, err = readCSV(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: make([]string, 0)}
	seen := make(map[string]bool)
	currentCategory := ""

	for i, row := range rows {
		rowNum := i + 1
		if rowNum < config.StartRow {
			continue
		}
		if config.MaxRows > 0 && result.TotalProcessed >= config.MaxRows {
			break
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		word := cleanWord(cell(row, config.WordColumn))
		translation := strings.TrimSpace(cell(row, config.TranslationColumn))
		category := strings.TrimSpace(cell(row, config.CategoryColumn))

		if word == "" && translation == "" {
			continue
		}
		// A lone word without translation is a category header, e.g. "Animals,,"
		if translation == "" && category == "" {
			currentCategory = strings.Trim(word, "\"")
			continue
		}
		if category == "" {
			category = currentCategory
		}

		result.TotalProcessed++

		if word == "" || translation == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: word and translation are required", rowNum))
			continue
		}

		key := strings.ToLower(word) + "\x00" + strings.ToLower(translation)
		if seen[key] {
			result.Skipped++
			continue
		}
		seen[key] = true

		if _, err := im.adder.AddVocabulary(ctx, userID, word, translation, category); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}
		result.Created++
	}

	im.log.Info("vocabulary imported",
		zap.Int64("user_id", userID),
		zap.String("file", name),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)),
	)

	return result, nil
}

func readExcel(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV: %w", err)
	}
	return rows, nil
}

func cell(row []string, column string) string {
	if column == "" {
		return ""
	}
	if idx := columnToIndex(column); idx >= 0 && idx < len(row) {
		return row[idx]
	}
	return ""
}

// cleanWord drops trailing notes in parentheses, e.g. "go (went, gone)"
func cleanWord(word string) string {
	if i := strings.Index(word, "("); i > 0 {
		return strings.TrimSpace(word[:i])
	}
	return strings.TrimSpace(word)
}

// Helper function to convert Excel column letter to index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
