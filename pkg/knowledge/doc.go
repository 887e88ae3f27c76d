// Package knowledge indexes benefit plan documents for hybrid retrieval.
//
// Invariants:
// - The index is rebuilt lazily: file changes mark it dirty, searches resync first.
// - Vector and keyword search run in parallel and degrade to either one alone.
// - Chunks carry the nearest markdown heading for citation.
//
// Usage:
//
//	mgr, _ := knowledge.NewManager(knowledge.Config{DocsDir: "knowledge", DBPath: "data/knowledge.db", Logger: logger})
//	results, _ := mgr.Search(ctx, "SGLI coverage amounts", nil)
package knowledge
