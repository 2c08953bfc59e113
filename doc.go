// Package pdfvec ingests documents into a hosted vector database and
// retrieves them with semantic search.
//
// The root package defines the contracts every component is built on: the
// chunk data model, the [VectorStore] and [EmbeddingProvider] interfaces, the
// [Vectorization] variants that decide where embeddings are computed, the
// error taxonomy, and the [QueryClient]. Embedding and nearest-neighbour
// search are always delegated to the remote store or provider.
//
// # Quick Start
//
//	store := astra.New(endpoint, token)
//	chunker, _ := ingest.NewRecursiveChunker(ingest.WithChunkSize(1000), ingest.WithChunkOverlap(200))
//	ing := ingest.NewIngestor(store, pdfvec.DelegatedVectorize{})
//	pipe := ingest.NewPipeline(chunker, ing)
//
//	summary, err := pipe.IngestFile(ctx, "paper.pdf", "pdf_documents")
//
//	qc := pdfvec.NewQueryClient(store, pdfvec.DelegatedVectorize{})
//	results, err := qc.Query(ctx, "what is biological aging?", "pdf_documents", 5)
//
// # Included Implementations
//
// Stores: store/astra (Astra DB Data API), store/postgres (PostgreSQL with pgvector).
// Embeddings: provider/openai, provider/gemini.
// Observability: observer (OpenTelemetry).
//
// See cmd/pdfvec for the command-line front end.
package pdfvec
