package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/contentsearch/internal/embedder"
	"github.com/dshills/contentsearch/internal/storage"
	"github.com/dshills/contentsearch/pkg/types"
)

var (
	// ErrImportInProgress is returned when another import holds the lock
	ErrImportInProgress = errors.New("import already in progress")
	// ErrInvalidDump wraps decode failures
	ErrInvalidDump = errors.New("invalid dump")
)

// hashKeyPrefix namespaces file hashes in the key-value table
const hashKeyPrefix = "import_hash:"

// Importer loads content dumps into the store: read -> validate -> upsert
type Importer struct {
	storage  storage.Storage
	embedder embedder.Embedder // optional; warms the embedding cache
	lock     ImportLock
	logger   *slog.Logger

	onImport func(*Statistics)
}

// Config contains configuration for an import run
type Config struct {
	Workers int  // Number of files parsed concurrently (default: runtime.NumCPU())
	Force   bool // Re-import files whose content hash is unchanged
}

// Statistics contains statistics about an import run
type Statistics struct {
	FilesImported int
	FilesSkipped  int
	FilesFailed   int
	ItemsImported int
	ItemsFailed   int
	UsersImported int
	ItemsWarmed   int // embeddings precomputed for imported items
	Duration      time.Duration
	ErrorMessages []string
}

// Option customises an Importer
type Option func(*Importer)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(im *Importer) {
		if logger != nil {
			im.logger = logger
		}
	}
}

// WithEmbedder precomputes embeddings of imported items with emb, so the
// first searches after an import are served from its cache
func WithEmbedder(emb embedder.Embedder) Option {
	return func(im *Importer) {
		im.embedder = emb
	}
}

// WithOnImport registers a callback run after every import that changed the store
func WithOnImport(fn func(*Statistics)) Option {
	return func(im *Importer) {
		im.onImport = fn
	}
}

// New creates a new Importer instance
func New(store storage.Storage, opts ...Option) *Importer {
	im := &Importer{
		storage: store,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// ImportPaths imports files and directories. Directories are searched
// recursively for .yaml, .yml and .json files; hidden directories are skipped.
func (im *Importer) ImportPaths(ctx context.Context, paths []string, config *Config) (*Statistics, error) {
	var files []string
	for _, p := range paths {
		found, err := discoverFiles(p)
		if err != nil {
			return nil, fmt.Errorf("failed to discover files: %w", err)
		}
		files = append(files, found...)
	}
	return im.ImportFiles(ctx, files, config)
}

// ImportFiles imports the given dump files concurrently, one transaction per
// file. A failing file is recorded in the statistics and does not stop the run.
func (im *Importer) ImportFiles(ctx context.Context, files []string, config *Config) (*Statistics, error) {
	if !im.lock.TryAcquire() {
		return nil, ErrImportInProgress
	}
	defer im.lock.Release()

	if config == nil {
		config = &Config{}
	}
	workers := config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	startTime := time.Now()
	stats := &Statistics{ErrorMessages: make([]string, 0)}

	var (
		imported, skipped, failed     int32
		itemsOK, itemsFailed, usersOK int32
		mu                            sync.Mutex // Protect stats.ErrorMessages and texts
		texts                         []string
	)
	recordError := func(msg string) {
		mu.Lock()
		stats.ErrorMessages = append(stats.ErrorMessages, msg)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := im.importFile(gctx, file, config.Force)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				atomic.AddInt32(&failed, 1)
				recordError(fmt.Sprintf("%s: %v", file, err))
				return nil
			}
			if res.skipped {
				atomic.AddInt32(&skipped, 1)
				return nil
			}
			atomic.AddInt32(&imported, 1)
			atomic.AddInt32(&itemsOK, int32(res.items))
			atomic.AddInt32(&itemsFailed, int32(len(res.invalid)))
			atomic.AddInt32(&usersOK, int32(res.users))
			for _, msg := range res.invalid {
				recordError(fmt.Sprintf("%s: %s", file, msg))
			}
			mu.Lock()
			texts = append(texts, res.texts...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.FilesImported = int(imported)
	stats.FilesSkipped = int(skipped)
	stats.FilesFailed = int(failed)
	stats.ItemsImported = int(itemsOK)
	stats.ItemsFailed = int(itemsFailed)
	stats.UsersImported = int(usersOK)
	stats.ItemsWarmed = im.warm(ctx, texts)
	stats.Duration = time.Since(startTime)
	sort.Strings(stats.ErrorMessages)

	im.logger.Info("import finished",
		"files_imported", stats.FilesImported,
		"files_skipped", stats.FilesSkipped,
		"files_failed", stats.FilesFailed,
		"items", stats.ItemsImported,
		"users", stats.UsersImported,
		"warmed", stats.ItemsWarmed,
		"duration", stats.Duration)

	if stats.ItemsImported > 0 || stats.UsersImported > 0 {
		if im.onImport != nil {
			im.onImport(stats)
		}
	}
	return stats, nil
}

// warm embeds texts in chunks of embedder.DefaultBatchSize and returns how
// many embeddings were produced. A failing chunk is logged and skipped; the
// import itself has already been committed.
func (im *Importer) warm(ctx context.Context, texts []string) int {
	if im.embedder == nil {
		return 0
	}

	seen := make(map[string]bool, len(texts))
	unique := make([]string, 0, len(texts))
	for _, text := range texts {
		if strings.TrimSpace(text) == "" || seen[text] {
			continue
		}
		seen[text] = true
		unique = append(unique, text)
	}

	warmed := 0
	for start := 0; start < len(unique); start += embedder.DefaultBatchSize {
		end := min(start+embedder.DefaultBatchSize, len(unique))
		resp, err := im.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: unique[start:end]})
		if err != nil {
			im.logger.Warn("failed to warm embedding cache", "texts", end-start, "error", err)
			continue
		}
		warmed += len(resp.Embeddings)
	}
	return warmed
}

// fileResult is the outcome of importing one file
type fileResult struct {
	skipped bool
	items   int
	users   int
	invalid []string
	texts   []string // embeddable text of every stored item
}

// importFile imports a single file within a transaction
func (im *Importer) importFile(ctx context.Context, path string, force bool) (*fileResult, error) {
	hash, err := computeFileHash(path)
	if err != nil {
		return nil, err
	}

	dump, err := ReadDump(path)
	if err != nil {
		return nil, err
	}

	tx, err := im.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	hashKey := hashKeyPrefix + absPath(path)
	if !force {
		unchanged, err := checkFileUnchanged(ctx, tx, hashKey, hash)
		if err != nil {
			return nil, err
		}
		if unchanged {
			return &fileResult{skipped: true}, nil
		}
	}

	res := &fileResult{}
	for _, item := range dump.Items() {
		if err := types.ValidateItem(item); err != nil {
			res.invalid = append(res.invalid, fmt.Sprintf("%s %q: %v", item.Kind(), item.Projection().ID, err))
			continue
		}
		if err := tx.UpsertItem(ctx, item); err != nil {
			return nil, fmt.Errorf("failed to store %s %q: %w", item.Kind(), item.Projection().ID, err)
		}
		res.items++
		res.texts = append(res.texts, item.Projection().EmbeddableText())
	}

	for _, user := range dump.Users {
		if user == nil {
			continue
		}
		if strings.TrimSpace(user.ID) == "" {
			res.invalid = append(res.invalid, "user: missing id")
			continue
		}
		if err := tx.UpsertUser(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to store user %q: %w", user.ID, err)
		}
		res.users++
	}

	if err := tx.SetValue(ctx, hashKey, []byte(hex.EncodeToString(hash[:]))); err != nil {
		return nil, fmt.Errorf("failed to record file hash: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return res, nil
}

// checkFileUnchanged reports whether the stored hash for key matches hash
func checkFileUnchanged(ctx context.Context, store storage.Storage, key string, hash [32]byte) (bool, error) {
	stored, err := store.GetValue(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return string(stored) == hex.EncodeToString(hash[:]), nil
}

// discoverFiles returns path itself when it is a file, or every importable
// file under it when it is a directory
func discoverFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if !Supported(root) {
			return nil, fmt.Errorf("%s: unsupported file type", root)
		}
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Skip hidden directories
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if Supported(path) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// computeFileHash computes SHA-256 hash of a file
func computeFileHash(filePath string) ([32]byte, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return [32]byte{}, err
	}
	defer func() { _ = file.Close() }()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return [32]byte{}, err
	}

	var result [32]byte
	copy(result[:], hash.Sum(nil))
	return result, nil
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
