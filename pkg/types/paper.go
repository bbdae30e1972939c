// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the arxiv-harvester
// components.
package types

import "strings"

// Paper holds the canonical metadata record for one harvested paper.
// Records are produced by the arXiv client and persisted by the store;
// both payload shapes the API emits normalize into this one struct.
type Paper struct {
	// ID is the full identifier: the source abs URL when the API
	// provides one (e.g. "http://arxiv.org/abs/2104.12345v1"), or the
	// bare token otherwise. Storage primary key.
	ID string `json:"id" yaml:"id"`

	// ArxivID is the short identifier, the trailing path segment of ID
	// (e.g. "2104.12345v1"). Natural key for lookup and deduplication.
	ArxivID string `json:"arxiv_id,omitempty" yaml:"arxiv_id,omitempty"`

	// Title is the paper title. Required for persistence.
	Title string `json:"title" yaml:"title"`

	// Summary is the abstract text.
	Summary string `json:"summary" yaml:"summary"`

	// Authors lists author display names in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// PublishedDate is the publication timestamp as reported by the
	// source, ISO-8601-like. Stored as text; parseable values are
	// normalized to RFC3339 UTC at ingestion, anything else passes
	// through untouched.
	PublishedDate string `json:"published_date" yaml:"published_date"`

	// PDFURL is the download link for the PDF, when the source offers one.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// Category is the primary classification tag (e.g. "cs.AI").
	Category string `json:"category,omitempty" yaml:"category,omitempty"`

	// CreatedAt and UpdatedAt are store-assigned timestamps, refreshed
	// on every upsert. Empty on records that have not been persisted.
	CreatedAt string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// ShortID returns the paper's short identifier, deriving it from ID
// when the ArxivID field is unset.
func (p Paper) ShortID() string {
	if p.ArxivID != "" {
		return p.ArxivID
	}
	return ShortID(p.ID)
}

// ShortID extracts the trailing path segment of a full identifier
// ("http://arxiv.org/abs/2104.12345v1" becomes "2104.12345v1").
// A bare token without slashes is returned unchanged.
func ShortID(identifier string) string {
	if idx := strings.LastIndex(identifier, "/"); idx >= 0 {
		return identifier[idx+1:]
	}
	return identifier
}
