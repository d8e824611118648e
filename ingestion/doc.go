// Package ingestion builds the searchable catalog.
//
// A Builder turns the raw catalog snapshot into the embedded snapshot,
// calling the embedding provider once per rebuild and caching the result on
// disk. A Pipeline feeds the embedded catalog to the store:
//
//	reset -> create index -> populate
//
// It only runs when forced or when the store holds no documents.
// WaitForReady gates both on the store answering a ping.
package ingestion
