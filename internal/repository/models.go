// Package repository implements the system's relational metadata
// store: documents, collections, embedding presence rows, their parse
// and chunk configs, and the append-only embedding report log. It is
// the only component that owns cross-entity referential integrity;
// vectors and bytes live elsewhere and are reconciled by the sync
// routines in the document and collection services.
package repository

import (
	"time"

	"github.com/google/uuid"

	"github.com/vectorkit/vectorkit/internal/chunk"
	"github.com/vectorkit/vectorkit/internal/parser"
)

// Extension is the closed set of file extensions a document may have.
type Extension string

const (
	ExtTXT  Extension = "txt"
	ExtMD   Extension = "md"
	ExtXML  Extension = "xml"
	ExtJSON Extension = "json"
	ExtCSV  Extension = "csv"
	ExtPDF  Extension = "pdf"
	ExtDOCX Extension = "docx"
	ExtXLSX Extension = "xlsx"
)

// Document is a row in the documents table.
type Document struct {
	ID        uuid.UUID
	Name      string
	Path      string
	Ext       Extension
	Hash      string
	Source    string
	Label     *string
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Ready reports whether the document has both a parse and chunk
// config on file, per D3.
func (d Document) Ready(hasParseConfig, hasChunkConfig bool) bool {
	return hasParseConfig && hasChunkConfig
}

// Collection is a row in the collections table.
type Collection struct {
	ID         uuid.UUID
	Name       string
	Model      string
	EmbedderID string
	VectorDBID string
	Groups     []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Embedding is a presence record: it marks that Document has been
// embedded into Collection, not the vector itself.
type Embedding struct {
	ID           uuid.UUID
	DocumentID   uuid.UUID
	CollectionID uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Outdated reports whether this embedding predates its document's
// most recent update, per E3.
func (e Embedding) Outdated(documentUpdatedAt time.Time) bool {
	return e.CreatedAt.Before(documentUpdatedAt)
}

// ReportKind discriminates the two Report shapes.
type ReportKind string

const (
	ReportAddition ReportKind = "addition"
	ReportRemoval  ReportKind = "removal"
)

// Report is an append-only audit row. Addition and removal reports
// share a table; fields not meaningful to a removal report (embedder,
// model, vector DB id, totals, cache hit) are left zero. Neither
// shape is FK-constrained to its subject: collection and document are
// stored denormalized by name/id string so the report survives
// deletion of either.
type Report struct {
	ID           uuid.UUID
	Kind         ReportKind
	Collection   string
	Document     string
	EmbedderID   string
	Model        string
	VectorDBID   string
	TotalVectors int
	TokensUsed   int
	CacheHit     bool
	StartedAt    time.Time
	FinishedAt   time.Time
}

// ParseConfigRow is a document's stored parse configuration.
type ParseConfigRow struct {
	DocumentID uuid.UUID
	Config     parser.Config
}

// ChunkConfigRow is a document's stored chunk configuration.
type ChunkConfigRow struct {
	DocumentID uuid.UUID
	Config     chunk.Config
}

// DocumentWithCollections is a document joined with the names of the
// collections it has been embedded into, for list-with-collection-joins.
type DocumentWithCollections struct {
	Document
	Collections []string
}

// CollectionDisplay is a collection joined with its embedded document
// count, for list-display.
type CollectionDisplay struct {
	Collection
	DocumentCount int
}
