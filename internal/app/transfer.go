package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/jsamuelsen/quote-sync/internal/domain"
)

// Transfer exports and imports the record collection as JSON documents.
type Transfer struct {
	store *Store
	exec  *Executor
	now   func() time.Time
}

// NewTransfer creates a Transfer over store.
func NewTransfer(store *Store, logger *slog.Logger, now func() time.Time) *Transfer {
	if now == nil {
		now = time.Now
	}

	return &Transfer{
		store: store,
		exec:  NewExecutor(logger),
		now:   now,
	}
}

// ExportFileName names an export after the current date.
func (t *Transfer) ExportFileName() string {
	return "quotes-" + t.now().Format(time.DateOnly) + ".json"
}

// Export writes every record as a pretty-printed JSON array.
func (t *Transfer) Export(w io.Writer) error {
	records := t.store.Snapshot()

	dtos := make([]recordDTO, len(records))
	for i, q := range records {
		dtos[i] = toDTO(q)
	}

	data, err := json.MarshalIndent(dtos, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}

	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}

	return nil
}

// importBatch carries a document through the import stages.
type importBatch struct {
	doc     []byte
	drafts  []domain.QuoteDraft
	invalid int
	result  ImportResult
}

// Import decodes a document that is either a bare array of records or an
// object holding one under "quotes", then merges it with ImportMany.
// A malformed document is a domain.ParseError and changes nothing.
// Elements that do not decode as records count as skipped.
func (t *Transfer) Import(ctx context.Context, document []byte) (ImportResult, error) {
	batch := &importBatch{doc: bytes.TrimSpace(document)}

	err := Run(ctx, t.exec, "import_quotes", batch,
		Step[importBatch]{Stage: StageValidate, Run: func(_ context.Context, b *importBatch) error {
			if len(b.doc) == 0 {
				return domain.NewParseError("import", "empty document")
			}

			return nil
		}},
		Step[importBatch]{Stage: StageDecode, Run: func(_ context.Context, b *importBatch) error {
			raw, err := parseImportDocument(b.doc)
			if err != nil {
				return err
			}

			b.drafts, b.invalid = decodeDrafts(raw)

			return nil
		}},
		Step[importBatch]{Stage: StageCommit, Run: func(ctx context.Context, b *importBatch) error {
			result, err := t.store.ImportMany(ctx, b.drafts)
			b.result = ImportResult{Added: result.Added, Skipped: result.Skipped + b.invalid}

			return err
		}},
	)
	if err != nil {
		return ImportResult{}, err
	}

	return batch.result, nil
}

// parseImportDocument accepts `[...]` or `{"quotes": [...]}`.
func parseImportDocument(doc []byte) ([]json.RawMessage, error) {
	switch doc[0] {
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(doc, &raw); err != nil {
			return nil, domain.NewParseError("import", err.Error())
		}

		return raw, nil

	case '{':
		var wrapped struct {
			Quotes *[]json.RawMessage `json:"quotes"`
		}
		if err := json.Unmarshal(doc, &wrapped); err != nil {
			return nil, domain.NewParseError("import", err.Error())
		}

		if wrapped.Quotes == nil {
			return nil, domain.NewParseError("import", `object has no "quotes" array`)
		}

		return *wrapped.Quotes, nil

	default:
		return nil, domain.NewParseError("import", "document must be an array or an object with a quotes array")
	}
}
