package vectorstore

import "sort"

// rrfK is the rank-fusion constant from §4.3: RRFScore = sum(1/(k+rank_i)).
const rrfK = 60

// fuseRRF combines ranked channels (vector, FTS) into one ranked list by
// reciprocal-rank fusion. Channels need not share the same candidate set;
// an ID present in only one channel is still scored using that channel's
// rank alone.
func fuseRRF(channels ...[]scoredID) []scoredID {
	fused := make(map[string]float64)
	for _, channel := range channels {
		for rank, c := range channel {
			fused[c.id] += 1.0 / float64(rrfK+rank+1)
		}
	}

	out := make([]scoredID, 0, len(fused))
	for id, score := range fused {
		out = append(out, scoredID{id: id, score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].id < out[j].id
	})
	return out
}

// channelScores returns, per ID, the larger of its vector and FTS native
// [0,1] similarity score — the value exposed on Row.Score (§4.3), distinct
// from the RRF rank score used only to order the fused list.
func channelScores(vector, fts []scoredID) map[string]float64 {
	out := make(map[string]float64, len(vector)+len(fts))
	for _, c := range vector {
		out[c.id] = c.score
	}
	for _, c := range fts {
		if existing, ok := out[c.id]; !ok || c.score > existing {
			out[c.id] = c.score
		}
	}
	return out
}

// channelMembership reports, for every ID in fused, which channels
// contributed it (vector and/or FTS), used to set Row.MatchedVector and
// Row.MatchedFTS.
func channelMembership(vector, fts []scoredID) (inVector, inFTS map[string]bool) {
	inVector = make(map[string]bool, len(vector))
	for _, c := range vector {
		inVector[c.id] = true
	}
	inFTS = make(map[string]bool, len(fts))
	for _, c := range fts {
		inFTS[c.id] = true
	}
	return inVector, inFTS
}
