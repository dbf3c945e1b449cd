package catalog

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/meilisearch/meilisearch-go"
)

// MeilisearchConfig captures connection settings for optional search synchronization.
type MeilisearchConfig struct {
	Host   string `json:"host" yaml:"host"`
	APIKey string `json:"api_key" yaml:"api_key"`
	Index  string `json:"index" yaml:"index"`
}

type meilisearchTarget struct {
	client *meilisearch.Client
	index  *meilisearch.Index
	logger *slog.Logger
}

func (c *Catalog) initMeilisearch() {
	target, err := newMeilisearchTarget(context.Background(), c.opts.Meilisearch, c.loggerOrDefault())
	if err != nil {
		c.loggerOrDefault().Warn("Failed to initialize Meilisearch", "error", err)
		return
	}
	if target == nil {
		return
	}
	c.RegisterSyncTarget(target)
}

func newMeilisearchTarget(ctx context.Context, cfg MeilisearchConfig, logger *slog.Logger) (SyncTarget, error) {
	host := strings.TrimSpace(cfg.Host)
	indexName := strings.TrimSpace(cfg.Index)
	if indexName == "" {
		return nil, nil
	}
	if host == "" {
		host = "http://localhost:7700"
	}

	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: strings.TrimSpace(cfg.APIKey),
	})
	index := client.Index(indexName)

	t := &meilisearchTarget{client: client, index: index, logger: logger}
	if err := t.ensureIndex(ctx, indexName); err != nil {
		return nil, err
	}
	logger.Info("Meilisearch target ready", "host", host, "index", indexName)
	return t, nil
}

func (t *meilisearchTarget) ensureIndex(ctx context.Context, indexName string) error {
	_, err := t.client.GetIndex(indexName)
	if err != nil {
		var meiliErr *meilisearch.Error
		if !errors.As(err, &meiliErr) || meiliErr.MeilisearchApiError.Code != "index_not_found" {
			return err
		}
		task, createErr := t.client.CreateIndex(&meilisearch.IndexConfig{Uid: indexName, PrimaryKey: "id"})
		if createErr != nil {
			return createErr
		}
		if err := t.waitForTask(ctx, task); err != nil {
			return err
		}
	}

	if err := t.ensureSearchableAttributes(ctx, []string{"name", "path"}); err != nil {
		return err
	}
	return t.ensureFilterableAttributes(ctx, []string{"extension", "is_dir", "mime_type"})
}

func (t *meilisearchTarget) ensureSearchableAttributes(ctx context.Context, desired []string) error {
	currentPtr, err := t.index.GetSearchableAttributes()
	if err != nil {
		return err
	}
	if slices.Equal(derefSlice(currentPtr), desired) {
		return nil
	}
	task, err := t.index.UpdateSearchableAttributes(&desired)
	if err != nil {
		return err
	}
	return t.waitForTask(ctx, task)
}

func (t *meilisearchTarget) ensureFilterableAttributes(ctx context.Context, desired []string) error {
	currentPtr, err := t.index.GetFilterableAttributes()
	if err != nil {
		return err
	}
	if slices.Equal(derefSlice(currentPtr), desired) {
		return nil
	}
	task, err := t.index.UpdateFilterableAttributes(&desired)
	if err != nil {
		return err
	}
	return t.waitForTask(ctx, task)
}

func (t *meilisearchTarget) waitForTask(ctx context.Context, task *meilisearch.TaskInfo) error {
	if task == nil || task.TaskUID == 0 {
		return nil
	}
	_, err := t.client.WaitForTask(task.TaskUID, meilisearch.WaitParams{Context: ctx})
	return err
}

// ApplyChanges satisfies the SyncTarget interface.
func (t *meilisearchTarget) ApplyChanges(ctx context.Context, changes ChangeSet) error {
	if changes.IsEmpty() {
		return nil
	}

	if len(changes.Upserts) > 0 {
		task, err := t.index.AddDocuments(makeMeiliDocuments(changes.Upserts))
		if err != nil {
			return err
		}
		if err := t.waitForTask(ctx, task); err != nil {
			return err
		}
	}

	if len(changes.Deletions) > 0 {
		ids := make([]string, 0, len(changes.Deletions))
		for _, rel := range changes.Deletions {
			ids = append(ids, entryDocumentID(rel))
		}
		task, err := t.index.DeleteDocuments(ids)
		if err != nil {
			return err
		}
		if err := t.waitForTask(ctx, task); err != nil {
			return err
		}
	}

	t.logger.Debug("Applied changes to Meilisearch", "upserts", len(changes.Upserts), "deletions", len(changes.Deletions))
	return nil
}

func makeMeiliDocuments(entries []Entry) []meiliEntryDocument {
	docs := make([]meiliEntryDocument, 0, len(entries))
	for _, entry := range entries {
		name := path.Base(entry.Path)
		var ext string
		if !entry.IsDir {
			ext = strings.TrimPrefix(path.Ext(name), ".")
		}
		docs = append(docs, meiliEntryDocument{
			ID:          entryDocumentID(entry.Path),
			Path:        entry.Path,
			Name:        name,
			Extension:   ext,
			IsDir:       entry.IsDir,
			Size:        entry.Size,
			ModTime:     entry.ModTime.Unix(),
			ContentHash: entry.ContentHash,
			MimeType:    entry.MimeType,
		})
	}
	return docs
}

// entryDocumentID maps a relative path onto the restricted Meilisearch id
// alphabet.
func entryDocumentID(rel string) string {
	sum := md5.Sum([]byte(rel))
	return hex.EncodeToString(sum[:])
}

func derefSlice(ptr *[]string) []string {
	if ptr == nil {
		return nil
	}
	return *ptr
}

// meiliEntryDocument represents an entry stored in Meilisearch.
type meiliEntryDocument struct {
	ID          string `json:"id"`
	Path        string `json:"path"`
	Name        string `json:"name"`
	Extension   string `json:"extension,omitempty"`
	IsDir       bool   `json:"is_dir"`
	Size        int64  `json:"size"`
	ModTime     int64  `json:"mod_time"`
	ContentHash string `json:"content_hash,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
}
