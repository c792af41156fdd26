// Package domain holds the shared types exchanged between the repositories,
// the HTTP layer and the reader client.
package domain

import "time"

// ReadingProgress is the last-read position of one user in one document.
// There is at most one record per (userId, documentId) pair; writes are
// upserts with last-write-wins semantics.
type ReadingProgress struct {
	UserID     string    `json:"userId" bson:"userId"`
	DocumentID string    `json:"documentId" bson:"documentId"`
	Page       int       `json:"page" bson:"page"`
	TotalPages int       `json:"totalPages" bson:"totalPages"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Note is a user-authored annotation on a document. Text is the plain-text
// body supplied at creation time; Content carries sanitized rich HTML once
// the note has been edited, with PlainText as its projection for previews
// and search.
type Note struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	DocumentID string    `json:"documentId"`
	Page       int       `json:"page,omitempty"`
	Text       string    `json:"text,omitempty"`
	Content    string    `json:"content,omitempty"`
	PlainText  string    `json:"plainText,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Document is the metadata of an uploaded PDF. StorageKey is set when the
// bytes live in object storage; otherwise they are stored inline next to
// the metadata.
type Document struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Title      string    `json:"title"`
	FileName   string    `json:"fileName"`
	MimeType   string    `json:"mimeType"`
	TotalPages int       `json:"totalPages,omitempty"`
	StorageKey string    `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}

// DocumentFile is a document together with its raw bytes.
type DocumentFile struct {
	Document
	Data []byte `json:"-"`
}

// ClampPage forces page into [1, max(totalPages, 1)]. totalPages may be 0
// while the viewer has not parsed the PDF yet, so the upper bound never
// drops below 1.
func ClampPage(page, totalPages int) int {
	maxPage := totalPages
	if maxPage < 1 {
		maxPage = 1
	}
	if page < 1 {
		return 1
	}
	if page > maxPage {
		return maxPage
	}
	return page
}
