// Package contextinfer implements SPEC_FULL.md §4.4's Context Inferer: a
// pure, I/O-free classifier that tags a code blob or documentation chunk
// with an inferred area, dominant technologies, keywords, and a
// README-style flag, consumed by the multi-signal re-ranker (§4.6).
package contextinfer
