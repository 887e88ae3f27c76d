package knowledge

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/valorlife/membercenter/internal/observability"
	"github.com/valorlife/membercenter/internal/tracing"
)

func init() {
	// Auto-register sqlite-vec extension
	sqlite_vec.Auto()
}

// SearchResult represents a search result with relevance score
type SearchResult struct {
	ChunkID      string   `json:"chunk_id"`
	DocPath      string   `json:"doc_path"`
	Heading      string   `json:"heading,omitempty"`
	Content      string   `json:"content"`
	Score        float64  `json:"score"`
	VectorScore  *float64 `json:"vector_score,omitempty"`
	KeywordScore *float64 `json:"keyword_score,omitempty"`
}

// SearchOptions configures search behavior
type SearchOptions struct {
	Limit         int     `json:"limit"`
	VectorWeight  float64 `json:"vector_weight"`
	KeywordWeight float64 `json:"keyword_weight"`
	MinScore      float64 `json:"min_score"`
}

// IndexStatus represents the current state of the knowledge index
type IndexStatus struct {
	TotalDocs    int        `json:"total_docs"`
	TotalChunks  int        `json:"total_chunks"`
	IsDirty      bool       `json:"is_dirty"`
	IsSyncing    bool       `json:"is_syncing"`
	LastSyncTime *time.Time `json:"last_sync_time,omitempty"`
}

// Manager handles knowledge base indexing and search
type Manager struct {
	db                *sql.DB
	docsDir           string
	logger            zerolog.Logger
	embeddingProvider EmbeddingProvider
	watcher           *DocWatcher
	mu                sync.RWMutex
	isDirty           bool
	isSyncing         bool
	lastSyncTime      *time.Time
}

// Config holds knowledge manager configuration
type Config struct {
	DocsDir           string
	DBPath            string
	Logger            zerolog.Logger
	EmbeddingProvider EmbeddingProvider // Optional, if nil search is keyword-only
}

// NewManager creates a new knowledge manager
func NewManager(cfg Config) (*Manager, error) {
	observability.EnsureRegistered()

	if cfg.DocsDir == "" {
		return nil, errors.New("docs directory is required")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	// Open database with FTS5 support
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_fts5=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	m := &Manager{
		db:                db,
		docsDir:           cfg.DocsDir,
		logger:            cfg.Logger,
		embeddingProvider: cfg.EmbeddingProvider,
		isDirty:           true, // Start dirty to trigger initial sync
	}

	// Initialize schema
	if err := m.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// Watch the docs directory for changes
	watcher, err := NewDocWatcher(cfg.Logger, func() {
		m.MarkDirty()
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create doc watcher: %w", err)
	}

	if err := watcher.Watch(cfg.DocsDir); err != nil {
		watcher.Stop()
		db.Close()
		return nil, fmt.Errorf("failed to watch docs directory: %w", err)
	}

	m.watcher = watcher

	m.logger.Info().Str("docsDir", cfg.DocsDir).Msg("Knowledge manager initialized")
	return m, nil
}

// initSchema creates database tables
func (m *Manager) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS docs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL UNIQUE,
			content_hash TEXT NOT NULL,
			indexed_at INTEGER NOT NULL,
			size_bytes INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_docs_path ON docs(path);

		CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			doc_id INTEGER NOT NULL,
			content TEXT NOT NULL,
			heading TEXT,
			start_offset INTEGER NOT NULL,
			end_offset INTEGER NOT NULL,
			FOREIGN KEY (doc_id) REFERENCES docs(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_chunks_doc ON chunks(doc_id);

		CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
			chunk_id UNINDEXED,
			content,
			tokenize='porter unicode61'
		);

		CREATE TABLE IF NOT EXISTS embedding_cache (
			content_hash TEXT PRIMARY KEY,
			embedding BLOB NOT NULL,
			dimension INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);
	`

	if _, err := m.db.Exec(schema); err != nil {
		return err
	}

	// Create vector table if embedding provider is available
	if m.embeddingProvider != nil {
		dimension := m.embeddingProvider.Dimension()
		vectorSchema := fmt.Sprintf(`
			CREATE VIRTUAL TABLE IF NOT EXISTS embeddings USING vec0(
				chunk_id TEXT PRIMARY KEY,
				embedding float[%d] distance_metric=cosine
			);
		`, dimension)

		if _, err := m.db.Exec(vectorSchema); err != nil {
			return fmt.Errorf("failed to create vector table: %w", err)
		}
	}

	return nil
}

// Search performs hybrid search (vector + keyword) over the knowledge base.
func (m *Manager) Search(ctx context.Context, query string, opts *SearchOptions) ([]SearchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := tracing.StartSpan(
		ctx,
		"membercenter.knowledge",
		"knowledge.search",
		attribute.String("query", query),
	)
	defer span.End()

	logger := tracing.LoggerFromContext(ctx, m.logger)
	start := time.Now()
	defer func() { observability.RecordKnowledgeSearch(time.Since(start)) }()

	if query == "" {
		return []SearchResult{}, nil
	}

	// Set defaults
	if opts == nil {
		opts = &SearchOptions{
			Limit:         20,
			VectorWeight:  0.7,
			KeywordWeight: 0.3,
		}
	}

	// Sync if dirty
	m.mu.RLock()
	dirty := m.isDirty
	m.mu.RUnlock()

	if dirty {
		if err := m.Sync(ctx); err != nil {
			logger.Warn().Err(err).Msg("Sync failed before search")
		}
	}

	// Perform vector and keyword search in parallel
	var vectorResults []vectorSearchResult
	var keywordResults []keywordSearchResult
	var vectorErr, keywordErr error

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		if m.embeddingProvider != nil {
			vectorResults, vectorErr = m.vectorSearch(ctx, query, 200)
		}
	}()

	go func() {
		defer wg.Done()
		keywordResults, keywordErr = m.keywordSearch(query, 200)
	}()

	wg.Wait()

	// Handle errors with graceful degradation
	if vectorErr != nil {
		logger.Warn().Err(vectorErr).Msg("Vector search failed, using keyword only")
	}
	if keywordErr != nil {
		logger.Warn().Err(keywordErr).Msg("Keyword search failed, using vector only")
	}

	if vectorErr != nil && keywordErr != nil {
		span.RecordError(vectorErr)
		span.RecordError(keywordErr)
		span.SetStatus(codes.Error, "both search methods failed")
		return nil, fmt.Errorf("both search methods failed")
	}

	// Merge results
	results := m.mergeResults(vectorResults, keywordResults, opts)

	// Limit results
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	logger.Debug().
		Str("query", query).
		Int("results", len(results)).
		Msg("Knowledge search completed")

	return results, nil
}

type vectorSearchResult struct {
	chunkID    string
	similarity float64 // cosine similarity (-1 to 1)
}

type keywordSearchResult struct {
	chunkID   string
	bm25Score float64
}

// vectorSearch performs vector similarity search
func (m *Manager) vectorSearch(ctx context.Context, query string, limit int) ([]vectorSearchResult, error) {
	// Generate query embedding
	embedding, err := m.embeddingProvider.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	embeddingJSON, err := json.Marshal(embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding: %w", err)
	}

	sql := `
		SELECT
			chunk_id,
			vec_distance_cosine(embedding, ?) as distance
		FROM embeddings
		ORDER BY distance ASC
		LIMIT ?
	`

	rows, err := m.db.QueryContext(ctx, sql, string(embeddingJSON), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []vectorSearchResult
	for rows.Next() {
		var chunkID string
		var distance float64
		if err := rows.Scan(&chunkID, &distance); err != nil {
			return nil, err
		}

		results = append(results, vectorSearchResult{
			chunkID:    chunkID,
			similarity: 1.0 - distance,
		})
	}

	return results, nil
}

// keywordSearch performs FTS5 keyword search
func (m *Manager) keywordSearch(query string, limit int) ([]keywordSearchResult, error) {
	sql := `
		SELECT chunk_id, bm25(chunks_fts) as score
		FROM chunks_fts
		WHERE chunks_fts MATCH ?
		ORDER BY score
		LIMIT ?
	`

	rows, err := m.db.Query(sql, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []keywordSearchResult
	for rows.Next() {
		var chunkID string
		var score float64
		if err := rows.Scan(&chunkID, &score); err != nil {
			return nil, err
		}

		// BM25 scores are negative, convert to positive
		results = append(results, keywordSearchResult{
			chunkID:   chunkID,
			bm25Score: -score,
		})
	}

	return results, nil
}

// mergeResults combines vector and keyword search results
func (m *Manager) mergeResults(vectorResults []vectorSearchResult, keywordResults []keywordSearchResult, opts *SearchOptions) []SearchResult {
	vectorMap := make(map[string]float64)
	keywordMap := make(map[string]float64)

	var maxKeyword float64
	for _, r := range vectorResults {
		vectorMap[r.chunkID] = r.similarity
	}
	for _, r := range keywordResults {
		keywordMap[r.chunkID] = r.bm25Score
		if r.bm25Score > maxKeyword {
			maxKeyword = r.bm25Score
		}
	}

	chunkIDs := make(map[string]bool)
	for id := range vectorMap {
		chunkIDs[id] = true
	}
	for id := range keywordMap {
		chunkIDs[id] = true
	}

	type scoredResult struct {
		chunkID      string
		score        float64
		vectorScore  *float64
		keywordScore *float64
	}

	var scored []scoredResult
	for chunkID := range chunkIDs {
		var normalizedVector, normalizedKeyword float64

		// Map similarity [-1, 1] to [0, 1]
		if vectorScore, ok := vectorMap[chunkID]; ok {
			normalizedVector = (vectorScore + 1) / 2
		}

		if keywordScore, ok := keywordMap[chunkID]; ok && maxKeyword > 0 {
			normalizedKeyword = keywordScore / maxKeyword
		}

		combinedScore := (normalizedVector * opts.VectorWeight) + (normalizedKeyword * opts.KeywordWeight)

		if opts.MinScore > 0 && combinedScore < opts.MinScore {
			continue
		}

		var vecPtr, keyPtr *float64
		if _, ok := vectorMap[chunkID]; ok {
			v := normalizedVector
			vecPtr = &v
		}
		if _, ok := keywordMap[chunkID]; ok {
			k := normalizedKeyword
			keyPtr = &k
		}

		scored = append(scored, scoredResult{
			chunkID:      chunkID,
			score:        combinedScore,
			vectorScore:  vecPtr,
			keywordScore: keyPtr,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	// Fetch chunk details
	results := make([]SearchResult, 0, len(scored))
	for _, s := range scored {
		var content, docPath string
		var heading sql.NullString
		err := m.db.QueryRow(`
			SELECT c.content, c.heading, d.path
			FROM chunks c
			JOIN docs d ON c.doc_id = d.id
			WHERE c.id = ?
		`, s.chunkID).Scan(&content, &heading, &docPath)

		if err != nil {
			m.logger.Warn().Err(err).Str("chunkID", s.chunkID).Msg("Failed to fetch chunk details")
			continue
		}

		results = append(results, SearchResult{
			ChunkID:      s.chunkID,
			DocPath:      docPath,
			Heading:      heading.String,
			Content:      content,
			Score:        s.score,
			VectorScore:  s.vectorScore,
			KeywordScore: s.keywordScore,
		})
	}

	return results
}

// Sync indexes the docs directory
func (m *Manager) Sync(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := tracing.StartSpan(ctx, "membercenter.knowledge", "knowledge.sync")
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, m.logger)

	m.mu.Lock()
	if m.isSyncing {
		m.mu.Unlock()
		span.SetStatus(codes.Error, "sync already in progress")
		return errors.New("sync already in progress")
	}
	m.isSyncing = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.isSyncing = false
		m.isDirty = false
		now := time.Now()
		m.lastSyncTime = &now
		m.mu.Unlock()
	}()

	logger.Info().Msg("Starting knowledge sync")
	start := time.Now()
	defer func() { observability.RecordKnowledgeSync(time.Since(start)) }()

	// Find all markdown docs
	var mdDocs []string
	err := filepath.WalkDir(m.docsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			span.RecordError(err)
			return err
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			relPath, _ := filepath.Rel(m.docsDir, path)
			mdDocs = append(mdDocs, relPath)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to walk docs directory: %w", err)
	}

	docsIndexed := 0
	docsSkipped := 0
	chunksCreated := 0

	for _, relPath := range mdDocs {
		fullPath := filepath.Join(m.docsDir, relPath)
		indexed, chunks, err := m.indexDoc(ctx, fullPath, relPath)
		if err != nil {
			logger.Warn().Err(err).Str("doc", relPath).Msg("Failed to index doc")
			span.RecordError(err)
			continue
		}
		if indexed {
			docsIndexed++
			chunksCreated += chunks
		} else {
			docsSkipped++
		}
	}

	// Prune deleted docs
	pruned, err := m.pruneDeletedDocs(mdDocs)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to prune deleted docs")
		span.RecordError(err)
	}

	duration := time.Since(start)
	logger.Info().
		Int("docs_indexed", docsIndexed).
		Int("docs_skipped", docsSkipped).
		Int("chunks_created", chunksCreated).
		Int("docs_pruned", pruned).
		Dur("duration", duration).
		Msg("Knowledge sync completed")

	status := m.Status()
	observability.SetKnowledgeChunks(status.TotalChunks)

	return nil
}

// indexDoc indexes a single document
func (m *Manager) indexDoc(ctx context.Context, fullPath, relPath string) (bool, int, error) {
	content, err := os.ReadFile(fullPath)
	if err != nil {
		return false, 0, err
	}

	hash := sha256.Sum256(content)
	contentHash := hex.EncodeToString(hash[:])

	// Skip unchanged docs
	var existingHash string
	err = m.db.QueryRow("SELECT content_hash FROM docs WHERE path = ?", relPath).Scan(&existingHash)
	if err == nil && existingHash == contentHash {
		return false, 0, nil
	}

	tx, err := m.db.Begin()
	if err != nil {
		return false, 0, err
	}
	defer tx.Rollback()

	// Delete existing doc entry (cascades to chunks)
	if _, err := tx.Exec("DELETE FROM docs WHERE path = ?", relPath); err != nil {
		return false, 0, err
	}

	stat, _ := os.Stat(fullPath)
	result, err := tx.Exec(
		"INSERT INTO docs (path, content_hash, indexed_at, size_bytes) VALUES (?, ?, ?, ?)",
		relPath, contentHash, time.Now().Unix(), stat.Size(),
	)
	if err != nil {
		return false, 0, err
	}

	docID, _ := result.LastInsertId()

	chunks := chunkDocument(string(content))

	for i, chunk := range chunks {
		chunkID := fmt.Sprintf("%s#%d", relPath, i)

		_, err := tx.Exec(
			"INSERT INTO chunks (id, doc_id, content, heading, start_offset, end_offset) VALUES (?, ?, ?, ?, ?, ?)",
			chunkID, docID, chunk.content, chunk.heading, chunk.startOffset, chunk.endOffset,
		)
		if err != nil {
			return false, 0, err
		}

		_, err = tx.Exec(
			"INSERT INTO chunks_fts (chunk_id, content) VALUES (?, ?)",
			chunkID, chunk.content,
		)
		if err != nil {
			return false, 0, err
		}

		if m.embeddingProvider != nil {
			if err := m.storeEmbedding(ctx, tx, chunkID, chunk.content); err != nil {
				m.logger.Warn().Err(err).Str("chunk", chunkID).Msg("Failed to store embedding")
				// Continue processing other chunks
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, 0, err
	}

	return true, len(chunks), nil
}

// storeEmbedding generates and stores embedding for a chunk
func (m *Manager) storeEmbedding(ctx context.Context, tx *sql.Tx, chunkID, content string) error {
	contentHashBytes := sha256.Sum256([]byte(content))
	contentHash := hex.EncodeToString(contentHashBytes[:])

	var cachedEmbedding []byte
	err := tx.QueryRow("SELECT embedding FROM embedding_cache WHERE content_hash = ?", contentHash).Scan(&cachedEmbedding)

	var embedding []float32
	if err == nil {
		if err := json.Unmarshal(cachedEmbedding, &embedding); err != nil {
			return fmt.Errorf("failed to unmarshal cached embedding: %w", err)
		}
	} else {
		embedding, err = m.embeddingProvider.GenerateEmbedding(ctx, content)
		if err != nil {
			return fmt.Errorf("failed to generate embedding: %w", err)
		}

		embeddingJSON, err := json.Marshal(embedding)
		if err != nil {
			return fmt.Errorf("failed to marshal embedding: %w", err)
		}

		_, err = tx.Exec(
			"INSERT OR REPLACE INTO embedding_cache (content_hash, embedding, dimension, created_at) VALUES (?, ?, ?, ?)",
			contentHash, embeddingJSON, len(embedding), time.Now().Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to cache embedding: %w", err)
		}
	}

	embeddingJSON, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding for storage: %w", err)
	}

	_, err = tx.Exec(
		"INSERT OR REPLACE INTO embeddings (chunk_id, embedding) VALUES (?, ?)",
		chunkID, string(embeddingJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to store embedding in vector table: %w", err)
	}

	return nil
}

type docChunk struct {
	content     string
	heading     string
	startOffset int
	endOffset   int
}

// chunkDocument splits a markdown document into chunks, tracking the
// nearest heading so results can cite the section they came from.
func chunkDocument(content string) []docChunk {
	const minSize = 500
	const maxSize = 1000
	const overlap = 50

	var chunks []docChunk
	lines := strings.Split(content, "\n")

	var currentChunk strings.Builder
	currentHeading := ""
	chunkHeading := ""
	startOffset := 0
	currentOffset := 0

	for _, line := range lines {
		lineLen := len(line) + 1 // +1 for newline

		if strings.HasPrefix(line, "#") {
			currentHeading = strings.TrimSpace(strings.TrimLeft(line, "#"))
			if currentChunk.Len() == 0 {
				chunkHeading = currentHeading
			}
		}

		// If adding this line exceeds maxSize and we have content, create chunk
		if currentChunk.Len() > 0 && currentChunk.Len()+lineLen > maxSize {
			chunks = append(chunks, docChunk{
				content:     strings.TrimSpace(currentChunk.String()),
				heading:     chunkHeading,
				startOffset: startOffset,
				endOffset:   currentOffset,
			})

			// Start new chunk with overlap
			chunkText := currentChunk.String()
			if len(chunkText) > overlap {
				overlapText := chunkText[len(chunkText)-overlap:]
				currentChunk.Reset()
				currentChunk.WriteString(overlapText)
				startOffset = currentOffset - overlap
			} else {
				currentChunk.Reset()
				startOffset = currentOffset
			}
			chunkHeading = currentHeading
		}

		currentChunk.WriteString(line)
		currentChunk.WriteString("\n")
		currentOffset += lineLen
	}

	// Add final chunk if it meets minSize or is the only chunk
	if currentChunk.Len() >= minSize || len(chunks) == 0 {
		if trimmed := strings.TrimSpace(currentChunk.String()); trimmed != "" {
			chunks = append(chunks, docChunk{
				content:     trimmed,
				heading:     chunkHeading,
				startOffset: startOffset,
				endOffset:   currentOffset,
			})
		}
	}

	return chunks
}

// pruneDeletedDocs removes docs that no longer exist on disk
func (m *Manager) pruneDeletedDocs(existingDocs []string) (int, error) {
	rows, err := m.db.Query("SELECT path FROM docs")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	existingSet := make(map[string]bool)
	for _, d := range existingDocs {
		existingSet[d] = true
	}

	var toDelete []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return 0, err
		}
		if !existingSet[path] {
			toDelete = append(toDelete, path)
		}
	}

	for _, path := range toDelete {
		if _, err := m.db.Exec("DELETE FROM docs WHERE path = ?", path); err != nil {
			return 0, err
		}
	}

	return len(toDelete), nil
}

// Status returns current knowledge index status
func (m *Manager) Status() IndexStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var status IndexStatus
	status.IsDirty = m.isDirty
	status.IsSyncing = m.isSyncing
	status.LastSyncTime = m.lastSyncTime

	m.db.QueryRow("SELECT COUNT(*) FROM docs").Scan(&status.TotalDocs)
	m.db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&status.TotalChunks)

	return status
}

// Close closes the knowledge manager
func (m *Manager) Close() error {
	m.logger.Info().Msg("Closing knowledge manager")

	if m.watcher != nil {
		m.watcher.Stop()
	}

	return m.db.Close()
}

// MarkDirty marks the index as needing sync
func (m *Manager) MarkDirty() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isDirty = true
}
