package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestManager(t *testing.T) (*Manager, string) {
	t.Helper()

	docsDir := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)

	m, err := NewManager(Config{
		DocsDir:           docsDir,
		DBPath:            dbPath,
		Logger:            logger,
		EmbeddingProvider: NewMockEmbeddingProvider(384),
	})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	return m, docsDir
}

func TestNewManager(t *testing.T) {
	m, _ := createTestManager(t)

	assert.NotNil(t, m)
	assert.NotNil(t, m.db)
	assert.NotNil(t, m.watcher)
}

func TestNewManager_InvalidConfig(t *testing.T) {
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)

	tests := []struct {
		name   string
		config Config
	}{
		{
			name: "empty docs dir",
			config: Config{
				DocsDir: "",
				DBPath:  "/tmp/test.db",
				Logger:  logger,
			},
		},
		{
			name: "empty db path",
			config: Config{
				DocsDir: "/tmp",
				DBPath:  "",
				Logger:  logger,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager(tt.config)
			assert.Error(t, err)
			assert.Nil(t, m)
		})
	}
}

func TestSync_EmptyDocsDir(t *testing.T) {
	m, _ := createTestManager(t)

	err := m.Sync(context.Background())
	require.NoError(t, err)

	status := m.Status()
	assert.Equal(t, 0, status.TotalDocs)
	assert.Equal(t, 0, status.TotalChunks)
	assert.False(t, status.IsDirty)
}

func TestSync_IndexesPlanDocs(t *testing.T) {
	m, docsDir := createTestManager(t)

	docs := map[string]string{
		"sgli.md": "# SGLI Overview\n\nServicemembers' Group Life Insurance provides coverage up to $400,000.",
		"vgli.md": "# VGLI Overview\n\nVeterans' Group Life Insurance lets you keep coverage after separation.",
	}

	for name, content := range docs {
		err := os.WriteFile(filepath.Join(docsDir, name), []byte(content), 0644)
		require.NoError(t, err)
	}

	err := m.Sync(context.Background())
	require.NoError(t, err)

	status := m.Status()
	assert.Equal(t, 2, status.TotalDocs)
	assert.Greater(t, status.TotalChunks, 0)
	assert.NotNil(t, status.LastSyncTime)
}

func TestSync_SkipsUnchangedDocs(t *testing.T) {
	m, docsDir := createTestManager(t)

	err := os.WriteFile(filepath.Join(docsDir, "plan.md"), []byte("# Plan\n\nDetails."), 0644)
	require.NoError(t, err)

	require.NoError(t, m.Sync(context.Background()))
	first := m.Status()

	// Second sync with no changes keeps the index stable
	require.NoError(t, m.Sync(context.Background()))
	second := m.Status()

	assert.Equal(t, first.TotalDocs, second.TotalDocs)
	assert.Equal(t, first.TotalChunks, second.TotalChunks)
}

func TestSync_PrunesDeletedDocs(t *testing.T) {
	m, docsDir := createTestManager(t)

	path := filepath.Join(docsDir, "gone.md")
	err := os.WriteFile(path, []byte("# Gone\n\nSoon to be deleted."), 0644)
	require.NoError(t, err)

	require.NoError(t, m.Sync(context.Background()))
	assert.Equal(t, 1, m.Status().TotalDocs)

	require.NoError(t, os.Remove(path))
	require.NoError(t, m.Sync(context.Background()))
	assert.Equal(t, 0, m.Status().TotalDocs)
}

func TestSearch_KeywordMatch(t *testing.T) {
	m, docsDir := createTestManager(t)

	err := os.WriteFile(filepath.Join(docsDir, "sgli.md"), []byte(
		"# SGLI Coverage\n\nServicemembers' Group Life Insurance offers coverage in $50,000 increments up to $400,000.",
	), 0644)
	require.NoError(t, err)

	results, err := m.Search(context.Background(), "coverage increments", nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "sgli.md", results[0].DocPath)
	assert.Equal(t, "SGLI Coverage", results[0].Heading)
	assert.Contains(t, results[0].Content, "increments")
	assert.Greater(t, results[0].Score, 0.0)
}

func TestSearch_EmptyQuery(t *testing.T) {
	m, _ := createTestManager(t)

	results, err := m.Search(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_RespectsLimit(t *testing.T) {
	m, docsDir := createTestManager(t)

	for i := 0; i < 5; i++ {
		err := os.WriteFile(
			filepath.Join(docsDir, string(rune('a'+i))+".md"),
			[]byte("# Premiums\n\nMonthly premium rates depend on coverage amount."),
			0644,
		)
		require.NoError(t, err)
	}

	results, err := m.Search(context.Background(), "premium rates", &SearchOptions{
		Limit:         2,
		VectorWeight:  0.7,
		KeywordWeight: 0.3,
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 2)
}

func TestMarkDirty(t *testing.T) {
	m, _ := createTestManager(t)

	require.NoError(t, m.Sync(context.Background()))
	assert.False(t, m.Status().IsDirty)

	m.MarkDirty()
	assert.True(t, m.Status().IsDirty)
}

func TestChunkDocument(t *testing.T) {
	t.Run("small doc is one chunk", func(t *testing.T) {
		chunks := chunkDocument("# Heading\n\nShort body.")
		require.Len(t, chunks, 1)
		assert.Equal(t, "Heading", chunks[0].heading)
		assert.Contains(t, chunks[0].content, "Short body.")
	})

	t.Run("long doc splits into overlapping chunks", func(t *testing.T) {
		var b []byte
		b = append(b, []byte("# Plans\n")...)
		for i := 0; i < 100; i++ {
			b = append(b, []byte("This line pads out the document to force multiple chunks.\n")...)
		}

		chunks := chunkDocument(string(b))
		assert.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			assert.Equal(t, "Plans", c.heading)
			assert.LessOrEqual(t, len(c.content), 1100)
		}
	})

	t.Run("empty doc yields no chunks", func(t *testing.T) {
		assert.Empty(t, chunkDocument(""))
	})
}
