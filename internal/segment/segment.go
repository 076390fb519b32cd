// Package segment turns raw documents into the hierarchical inputs the
// attention pipeline consumes: BPE token ids, a sentence-unit id per
// token, and per-document lengths.
//
// Tokenization uses OpenAI's tiktoken encodings via pkoukk/tiktoken-go.
package segment

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/strata-ml/strata/internal/logger"
)

// Segmenter splits documents into sentence units and encodes each unit
// into BPE tokens. A Segmenter is safe for concurrent use.
type Segmenter struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// New creates a segmenter over the named tiktoken encoding, e.g.
// "cl100k_base" (GPT-4) or "p50k_base" (GPT-3).
func New(encodingName string) (*Segmenter, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encodingName, err)
	}
	return &Segmenter{encoding: encoding, name: encodingName}, nil
}

// Encoding returns the name of the underlying tiktoken encoding.
func (s *Segmenter) Encoding() string {
	return s.name
}

// Document is one segmented document. TokenIDs and UnitIDs run in
// parallel: UnitIDs[i] is the zero-based sentence unit containing
// token i. Units holds the sentence texts in order.
type Document struct {
	TokenIDs []int32
	UnitIDs  []int32
	Units    []string
}

// Len returns the number of tokens in the document.
func (d Document) Len() int {
	return len(d.TokenIDs)
}

// NumUnits returns the number of sentence units in the document.
func (d Document) NumUnits() int {
	return len(d.Units)
}

// Segment splits text into sentence units and encodes each unit.
// Empty documents come back with zero tokens and zero units; the
// attention pipeline treats their rows under the zero-length contract.
func (s *Segmenter) Segment(text string) Document {
	units := SplitSentences(text)

	doc := Document{Units: units}
	for u, sentence := range units {
		tokens := s.encoding.Encode(sentence, nil, nil)
		for _, tok := range tokens {
			doc.TokenIDs = append(doc.TokenIDs, int32(tok)) //nolint:gosec // G115: vocab size < 2^31
			doc.UnitIDs = append(doc.UnitIDs, int32(u))     //nolint:gosec // G115: unit count < 2^31
		}
	}

	logger.Log.Debug("segmented document",
		"encoding", s.name,
		"units", doc.NumUnits(),
		"tokens", doc.Len())
	return doc
}

// Decode converts token ids back to text.
func (s *Segmenter) Decode(tokens []int32) string {
	intTokens := make([]int, len(tokens))
	for i, tok := range tokens {
		intTokens[i] = int(tok)
	}
	return s.encoding.Decode(intTokens)
}

// DecodeToken renders a single token id, for inspecting attention
// weights per position.
func (s *Segmenter) DecodeToken(token int32) string {
	return s.encoding.Decode([]int{int(token)})
}

// SplitSentences splits text into sentences on ., ! and ? boundaries,
// keeping the terminator with its sentence. Whitespace-only pieces are
// dropped. It is deliberately simple: the attention pipeline only needs
// a consistent position-to-unit partition, not linguistic accuracy.
func SplitSentences(text string) []string {
	var units []string
	var b strings.Builder

	flush := func() {
		if u := strings.TrimSpace(b.String()); u != "" {
			units = append(units, u)
		}
		b.Reset()
	}

	for _, r := range text {
		if r == '\n' {
			flush()
			continue
		}
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			flush()
		}
	}
	flush()

	return units
}

// Batch is a rectangular batch of segmented documents, padded to the
// longest document. Padding token ids are 0 and padding unit ids are 0,
// matching the unit-assignment convention the hierarchical rescaler
// relies on; Lengths marks where the real tokens stop.
type Batch struct {
	TokenIDs []int32 // (batch, MaxLen), row-major
	UnitIDs  []int32 // (batch, MaxLen), row-major
	Lengths  []int32 // (batch,)
	MaxLen   int
	MaxUnits int
}

// Pad lays out documents into a rectangular batch. An empty slice
// yields a zero-size batch.
func Pad(docs []Document) Batch {
	batch := Batch{Lengths: make([]int32, len(docs))}
	for i, doc := range docs {
		batch.Lengths[i] = int32(doc.Len()) //nolint:gosec // G115: document length < 2^31
		if doc.Len() > batch.MaxLen {
			batch.MaxLen = doc.Len()
		}
		if doc.NumUnits() > batch.MaxUnits {
			batch.MaxUnits = doc.NumUnits()
		}
	}

	batch.TokenIDs = make([]int32, len(docs)*batch.MaxLen)
	batch.UnitIDs = make([]int32, len(docs)*batch.MaxLen)
	for i, doc := range docs {
		copy(batch.TokenIDs[i*batch.MaxLen:], doc.TokenIDs)
		copy(batch.UnitIDs[i*batch.MaxLen:], doc.UnitIDs)
	}
	return batch
}
