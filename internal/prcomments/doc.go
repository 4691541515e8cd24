// Package prcomments implements SPEC_FULL.md §6.3: the PR ingestion
// boundary. It accepts externally collected PR comments (from any
// platform) and turns them into PR-Comment records with their required
// embeddings computed, plus a thin google/go-github adapter that turns
// GitHub review-comment API payloads into that same input shape. Neither
// path performs sentiment scoring or auto-resolve decisions — those are
// outside the core (§1).
package prcomments
