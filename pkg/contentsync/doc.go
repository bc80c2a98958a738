// Package contentsync keeps a document's three persistence backends in
// agreement: a durable blob store holding the raw content, a relational
// metadata store holding filenames and timestamps, and a semantic search
// index holding a rebuildable projection of the text.
//
// The package exposes two write paths. The document synchronizer handles
// create/update/delete of named text documents and owns the ordering
// contract between the three stores (blob before metadata before index).
// The asset ingestion pipeline validates, stores and measures uploaded
// binary media.
//
// Basic usage:
//
//	svc, err := contentsync.New(
//	    contentsync.WithRepository(memory.New()),
//	    contentsync.WithBlobStore(memorystorage.New()),
//	)
//	if err != nil { ... }
//	doc, err := svc.CreateOrReplaceDocument(ctx, "notes.txt", []byte("hello"))
package contentsync
