// Copyright 2025 The Strata Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package segment provides the public API for turning documents into
// hierarchical attention inputs: BPE token ids, per-token sentence
// unit ids, and per-document lengths.
//
// Example:
//
//	seg, err := segment.New("cl100k_base")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	doc := seg.Segment("The cat sat. The dog barked.")
//	batch := segment.Pad([]segment.Document{doc})
package segment

import (
	"github.com/strata-ml/strata/internal/segment"
)

// Segmenter splits documents into sentence units and encodes each
// unit into BPE tokens.
type Segmenter = segment.Segmenter

// New creates a segmenter over the named tiktoken encoding, e.g.
// "cl100k_base".
func New(encodingName string) (*Segmenter, error) {
	return segment.New(encodingName)
}

// Document is one segmented document: parallel token and unit id
// slices plus the sentence texts.
type Document = segment.Document

// Batch is a rectangular, zero-padded batch of documents.
type Batch = segment.Batch

// Pad lays out documents into a rectangular batch with unit-0 padding.
func Pad(docs []Document) Batch {
	return segment.Pad(docs)
}

// SplitSentences splits text into sentence units on ., ! and ?
// boundaries.
func SplitSentences(text string) []string {
	return segment.SplitSentences(text)
}
