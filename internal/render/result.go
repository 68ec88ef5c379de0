package render

import (
	"encoding/json"
	"time"

	"github.com/CageChen/syntaxia/internal/highlight"
	"github.com/CageChen/syntaxia/internal/markdown"
	"github.com/CageChen/syntaxia/internal/tree"
)

// ContentKind tags what a result presents.
type ContentKind string

// Content kinds.
const (
	KindMarkdown        ContentKind = "markdown"
	KindHighlightedCode ContentKind = "highlighted-code"
	KindListing         ContentKind = "listing"
	KindRawText         ContentKind = "raw-text"
	KindUnsupported     ContentKind = "unsupported"
)

// Result is the outcome of RenderPath. It is one of *Listing, *Rendered or
// *Raw.
type Result interface {
	// Type is "listing", "rendered" or "raw".
	Type() string
	result()
}

// Listing is a rendered directory.
type Listing struct {
	Path string `json:"path"`
	// Parent is the normalized parent path, nil at the root.
	Parent  *string      `json:"parent"`
	Entries []tree.Entry `json:"entries"`
	// Project is set for first-level directories.
	Project *Project `json:"project,omitempty"`
}

// Project describes a first-level directory.
type Project struct {
	Name   string    `json:"name"`
	Readme *Rendered `json:"readme,omitempty"`
	// Source names the file Readme was rendered from.
	Source string   `json:"source,omitempty"`
	Tags   []string `json:"tags"`
	About  string   `json:"about,omitempty"`
}

// Rendered is an HTML fragment produced from a file. Values may be shared
// through the render cache and must not be modified.
type Rendered struct {
	Path     string             `json:"path"`
	Kind     ContentKind        `json:"kind"`
	HTML     string             `json:"html"`
	Title    string             `json:"title,omitempty"`
	TOC      []markdown.TOCItem `json:"toc,omitempty"`
	Language highlight.Language `json:"language,omitempty"`
	Lines    int                `json:"lines,omitempty"`
	ModTime  time.Time          `json:"last_modified"`
}

// Raw is a file that is passed through without rendering. Reason explains
// why when the file could not be previewed.
type Raw struct {
	Path     string    `json:"path"`
	Content  []byte    `json:"-"`
	MIMEHint string    `json:"mime_hint"`
	Size     int64     `json:"size"`
	TooLarge bool      `json:"too_large,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	ModTime  time.Time `json:"last_modified"`
}

func (*Listing) Type() string  { return "listing" }
func (*Rendered) Type() string { return "rendered" }
func (*Raw) Type() string      { return "raw" }

func (*Listing) result()  {}
func (*Rendered) result() {}
func (*Raw) result()      {}

// MarshalJSON adds the "type" discriminator.
func (l *Listing) MarshalJSON() ([]byte, error) {
	type listing Listing
	return json.Marshal(struct {
		Type string      `json:"type"`
		Kind ContentKind `json:"kind"`
		*listing
	}{l.Type(), KindListing, (*listing)(l)})
}

// MarshalJSON adds the "type" discriminator.
func (r *Rendered) MarshalJSON() ([]byte, error) {
	type rendered Rendered
	return json.Marshal(struct {
		Type string `json:"type"`
		*rendered
	}{r.Type(), (*rendered)(r)})
}

// MarshalJSON adds the "type" discriminator.
func (r *Raw) MarshalJSON() ([]byte, error) {
	type raw Raw
	return json.Marshal(struct {
		Type string      `json:"type"`
		Kind ContentKind `json:"kind"`
		*raw
	}{r.Type(), KindUnsupported, (*raw)(r)})
}
