package vectorstore

import "strings"

// Predicate selects records for Search/DeleteWhere. A nil Predicate matches
// everything.
type Predicate func(Record) bool

// And combines predicates, matching only when every one does.
func And(preds ...Predicate) Predicate {
	return func(r Record) bool {
		for _, p := range preds {
			if p != nil && !p(r) {
				return false
			}
		}
		return true
	}
}

// Or combines predicates, matching when any one does. An empty Or matches
// nothing.
func Or(preds ...Predicate) Predicate {
	return func(r Record) bool {
		for _, p := range preds {
			if p != nil && p(r) {
				return true
			}
		}
		return len(preds) == 0
	}
}

// Not negates a predicate.
func Not(p Predicate) Predicate {
	return func(r Record) bool {
		if p == nil {
			return false
		}
		return !p(r)
	}
}

// ByProjectPath matches records whose ProjectPath equals path exactly.
func ByProjectPath(path string) Predicate {
	return func(r Record) bool { return r.ProjectPath == path }
}

// ByIDPrefix matches records whose ID starts with prefix, e.g. restricting
// document_chunk_embeddings to one originalDocumentPath before a re-chunk.
func ByIDPrefix(prefix string) Predicate {
	return func(r Record) bool { return strings.HasPrefix(r.ID, prefix) }
}

// ByMetadataString matches records whose Metadata[key] equals value
// (string-typed metadata fields only; numeric/bool fields need a dedicated
// predicate since JSON round-tripping yields float64/bool values).
func ByMetadataString(key, value string) Predicate {
	return func(r Record) bool {
		v, ok := r.Metadata[key]
		if !ok {
			return false
		}
		s, ok := v.(string)
		return ok && s == value
	}
}

// ExcludeTestFiles matches records whose path metadata does not look like a
// test file (a "_test."/".test." name or a "/test/"/"/tests/" directory).
// Records without a string path under pathKey match.
func ExcludeTestFiles(pathKey string) Predicate {
	return func(r Record) bool {
		v, ok := r.Metadata[pathKey]
		if !ok {
			return true
		}
		path, ok := v.(string)
		if !ok {
			return true
		}
		lower := strings.ToLower(path)
		return !strings.Contains(lower, "_test.") && !strings.Contains(lower, ".test.") && !strings.Contains(lower, "/test/") && !strings.Contains(lower, "/tests/")
	}
}
