package app

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-sync/internal/domain"
)

func TestTransfer_ExportFileName(t *testing.T) {
	tr := NewTransfer(nil, discardLogger(), func() time.Time {
		return time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC)
	})

	assert.Equal(t, "quotes-2026-03-09.json", tr.ExportFileName())
}

func TestTransfer_ExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()

	src, _ := newTestStore(t)
	_, err := src.Add(ctx, "Stay hungry", "Life")
	require.NoError(t, err)
	_, err = src.Add(ctx, "Less is more", "Design")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewTransfer(src, discardLogger(), nil).Export(&buf))

	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("]\n")))
	assert.Contains(t, buf.String(), "\n  {\n    \"id\": \"q_1\"")

	var exported []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &exported))
	require.Len(t, exported, 2)
	assert.Equal(t, "Stay hungry", exported[0]["text"])
	assert.Equal(t, true, exported[0]["dirty"])
	assert.Equal(t, "local", exported[0]["source"])

	dst, _ := newTestStore(t)
	result, err := NewTransfer(dst, discardLogger(), nil).Import(ctx, buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Added: 2}, result)

	texts := make([]string, 0, 2)
	for _, q := range dst.Snapshot() {
		texts = append(texts, q.Text)
	}
	assert.ElementsMatch(t, []string{"Stay hungry", "Less is more"}, texts)

	// A second import of the same document adds nothing.
	result, err = NewTransfer(dst, discardLogger(), nil).Import(ctx, buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Skipped: 2}, result)
}

func TestTransfer_Import(t *testing.T) {
	tests := []struct {
		name      string
		document  string
		want      ImportResult
		wantParse bool
		wantTexts []string
	}{
		{
			name:      "bare array",
			document:  `[{"text":"One","category":"A"},{"text":"Two","category":"B"}]`,
			want:      ImportResult{Added: 2},
			wantTexts: []string{"One", "Two"},
		},
		{
			name:      "wrapped object",
			document:  `{"quotes":[{"text":"One","category":"A"}]}`,
			want:      ImportResult{Added: 1},
			wantTexts: []string{"One"},
		},
		{
			name:      "undecodable and invalid elements are skipped",
			document:  `[{"text":42,"category":"A"},{"text":"  ","category":"A"},"junk",{"text":"Ok","category":"A"}]`,
			want:      ImportResult{Added: 1, Skipped: 3},
			wantTexts: []string{"Ok"},
		},
		{
			name:      "empty array",
			document:  `[]`,
			want:      ImportResult{},
			wantTexts: []string{},
		},
		{name: "malformed json", document: `[{"text":`, wantParse: true},
		{name: "object without quotes", document: `{"items":[]}`, wantParse: true},
		{name: "scalar document", document: `"hello"`, wantParse: true},
		{name: "empty document", document: "  \n", wantParse: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, kv := newTestStore(t)
			tr := NewTransfer(store, discardLogger(), nil)

			got, err := tr.Import(context.Background(), []byte(tt.document))

			if tt.wantParse {
				require.Error(t, err)
				assert.True(t, domain.IsParse(err), "got %v", err)
				_, stopped := FailedStage(err)
				assert.True(t, stopped)
				assert.Empty(t, store.Snapshot())
				assert.Zero(t, kv.sets)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			texts := []string{}
			for _, q := range store.Snapshot() {
				texts = append(texts, q.Text)
				assert.True(t, q.Dirty, "imported records await push")
			}
			assert.Equal(t, tt.wantTexts, texts)
		})
	}
}

func TestTransfer_ImportStorageFailure(t *testing.T) {
	store, _ := newTestStore(t)
	store.kv = failingKV{}

	_, err := NewTransfer(store, discardLogger(), nil).
		Import(context.Background(), []byte(`[{"text":"One","category":"A"}]`))

	require.Error(t, err)
	assert.True(t, domain.IsStorage(err))

	stage, ok := FailedStage(err)
	require.True(t, ok)
	assert.Equal(t, StageCommit, stage)
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, error) {
	return nil, domain.NewStorageError("get", "", assert.AnError)
}

func (failingKV) Set(_ context.Context, key string, _ []byte) error {
	return domain.NewStorageError("set", key, assert.AnError)
}

func (failingKV) Close() error { return nil }
