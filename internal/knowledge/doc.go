// Package knowledge turns documents into knowledge chunks.
//
// The pipeline is load (format specific text extraction), Clean, then token based
// splitting with overlap. Ingestor runs the pipeline for a batch of documents and
// persists the result through a ports.KnowledgeSink.
package knowledge
