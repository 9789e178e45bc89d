package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/example/lumi/internal/excel"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handleDocument imports an uploaded spreadsheet into the user's vocabulary
func (b *Bot) handleDocument(ctx context.Context, chatID, userID int64, doc *tgbotapi.Document) error {
	if b.deps.Importer == nil {
		return b.sendText(chatID, "Vocabulary import is not available.")
	}
	if int64(doc.FileSize) > b.cfg.MaxUploadBytes {
		return b.sendText(chatID, fmt.Sprintf("The file is too large. The limit is %d KB.", b.cfg.MaxUploadBytes>>10))
	}

	url, err := b.api.GetFileDirectURL(doc.FileID)
	if err != nil {
		return fmt.Errorf("failed to get file url: %w", err)
	}

	body, err := b.download(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	result, err := b.deps.Importer.Import(ctx, userID, doc.FileName, io.LimitReader(body, b.cfg.MaxUploadBytes), excel.DefaultImportConfig())
	if errors.Is(err, excel.ErrUnsupportedFormat) {
		return b.sendText(chatID, "Please send an .xlsx or .csv file with word, translation and category columns.")
	}
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", doc.FileName, err)
	}

	b.log.Info("vocabulary imported",
		zap.Int64("user_id", userID),
		zap.String("file", doc.FileName),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
	)
	return b.sendText(chatID, formatImport(result))
}

func (b *Bot) download(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func formatImport(r *excel.ImportResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📥 Import finished\n\nRows processed: %d\nAdded: %d\nSkipped: %d", r.TotalProcessed, r.Created, r.Skipped)

	if len(r.Errors) > 0 {
		fmt.Fprintf(&sb, "\nErrors: %d\n", len(r.Errors))
		for i, e := range r.Errors {
			if i == maxImportErrors {
				fmt.Fprintf(&sb, "…and %d more\n", len(r.Errors)-maxImportErrors)
				break
			}
			fmt.Fprintf(&sb, "• %s\n", e)
		}
	}
	return sb.String()
}
