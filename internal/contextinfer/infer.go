package contextinfer

import (
	"path/filepath"
	"sort"
	"strings"
)

// InferContext classifies a code blob or document (§4.4). title is the
// document's H1 (or empty for code); sampleChunks are representative text
// samples (chunk bodies for documents, the file content for code). The
// function is pure: no I/O, no shared state, suitable for memoising by the
// caller keyed on (path, titleHash).
func InferContext(path, title string, sampleChunks []string, language string) InferredContext {
	searchText := buildSearchText(title, path, sampleChunks)

	dominantTech := scoreTech(searchText, language)
	area, matchedKeywords := scoreAreas(searchText, path, dominantTech)
	isReadme := isGeneralPurposeReadmeStyle(searchText, path)

	return InferredContext{
		Area:                        area,
		DominantTech:                dominantTech,
		Keywords:                    boundKeywords(matchedKeywords),
		IsGeneralPurposeReadmeStyle: isReadme,
	}
}

// buildSearchText concatenates H1×2, the filename, and up to sampleWindow
// characters of chunk text, lower-cased for case-insensitive matching.
func buildSearchText(title, path string, sampleChunks []string) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString(" ")
	b.WriteString(title)
	b.WriteString(" ")
	b.WriteString(filepath.Base(path))
	b.WriteString(" ")

	remaining := sampleWindow
	for _, chunk := range sampleChunks {
		if remaining <= 0 {
			break
		}
		c := chunk
		if len(c) > remaining {
			c = c[:remaining]
		}
		b.WriteString(c)
		b.WriteString(" ")
		remaining -= len(c)
	}
	return strings.ToLower(b.String())
}

// scoreTech runs the independent technology-vocabulary sweep, returning
// technologies whose score reaches techThreshold, ordered by descending
// score then name for determinism.
func scoreTech(searchText, language string) []string {
	type scored struct {
		name  string
		score float64
	}
	var hits []scored
	for tech, keywords := range techVocabulary {
		var score float64
		for _, kw := range keywords {
			score += float64(strings.Count(searchText, strings.ToLower(kw)))
		}
		if strings.EqualFold(language, tech) {
			score += techThreshold
		}
		if score >= techThreshold {
			hits = append(hits, scored{name: tech, score: score})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].name < hits[j].name
	})
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}
	return out
}

// scoreAreas scores every candidate area, applying the dominantTech boost
// and path-based hints, and returns the winner plus the keyword tokens that
// contributed to its score. Falls back per §4.4 when no area clears
// confidenceFloor.
func scoreAreas(searchText, path string, dominantTech []string) (Area, []string) {
	techSet := make(map[string]bool, len(dominantTech))
	for _, t := range dominantTech {
		techSet[t] = true
	}

	scores := make(map[Area]float64)
	matched := make(map[Area][]string)
	for area, keywords := range areaKeywords {
		var score float64
		var hits []string
		for kw, weight := range keywords {
			if n := strings.Count(searchText, kw); n > 0 {
				score += weight * float64(n)
				hits = append(hits, kw)
			}
		}
		if boostedAreas[area] && areaTechOverlap(area, techSet) {
			score += 1.5
		}
		scores[area] = score
		matched[area] = hits
	}

	lowerPath := strings.ToLower(path)
	for hint, area := range pathHints {
		if strings.Contains(lowerPath, hint) {
			scores[area] += 1.0
		}
	}

	var best Area
	var bestScore float64
	for area, score := range scores {
		if score > bestScore || (score == bestScore && area < best) {
			best, bestScore = area, score
		}
	}

	if bestScore >= confidenceFloor {
		return best, matched[best]
	}

	// Fallback ladder per §4.4.
	if strings.HasSuffix(lowerPath, ".md") || strings.HasSuffix(lowerPath, ".mdx") {
		return GeneralProjectDoc, matched[best]
	}
	if bestScore > 0 {
		return GeneralTechnical, matched[best]
	}
	return Unknown, nil
}

// areaTechOverlap reports whether any technology conventionally associated
// with area is present in the dominantTech set.
func areaTechOverlap(area Area, techSet map[string]bool) bool {
	var assoc []string
	switch area {
	case Frontend:
		assoc = []string{"React", "Vue", "Angular", "TypeScript"}
	case Backend:
		assoc = []string{"Go", "Python", "PostgreSQL", "GraphQL", "gRPC"}
	case DevOps:
		assoc = []string{"Docker", "Kubernetes", "Terraform"}
	case ToolingInternal:
		assoc = []string{"Go", "Python"}
	}
	for _, a := range assoc {
		if techSet[a] {
			return true
		}
	}
	return false
}

// isGeneralPurposeReadmeStyle sums README-style keyword weights and flags a
// root-level README with any non-zero signal.
func isGeneralPurposeReadmeStyle(searchText, path string) bool {
	var score float64
	for kw, weight := range readmeStyleKeywords {
		if n := strings.Count(searchText, kw); n > 0 {
			score += weight * float64(n)
		}
	}
	if score >= readmeStyleThreshold {
		return true
	}

	base := strings.ToLower(filepath.Base(path))
	dir := filepath.Dir(path)
	isRoot := dir == "." || dir == "/" || dir == ""
	isReadmeName := base == "readme.md" || base == "readme"
	return isRoot && isReadmeName && score > 0
}

// boundKeywords caps the matched-keyword set to maxKeywords, deduplicated
// and sorted for determinism.
func boundKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	var out []string
	for _, k := range keywords {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	if len(out) > maxKeywords {
		out = out[:maxKeywords]
	}
	return out
}
