// Package rag implements the corrective retrieval pipeline: knowledge
// expansion, a versioned in-memory corpus index, hybrid sparse+dense
// retrieval with score fusion, cross-encoder reranking, grounded
// generation with citation markers, and a corrective validation loop.
package rag
