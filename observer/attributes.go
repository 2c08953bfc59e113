package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for spans and metrics.
var (
	AttrStoreBackend    = attribute.Key("store.backend")
	AttrStoreOperation  = attribute.Key("store.operation")
	AttrStoreCollection = attribute.Key("store.collection")
	AttrStoreRecords    = attribute.Key("store.records")
	AttrStoreInserted   = attribute.Key("store.inserted")
	AttrStoreReplaced   = attribute.Key("store.replaced")
	AttrStoreRejected   = attribute.Key("store.rejected")
	AttrStoreMatches    = attribute.Key("store.matches")
	AttrStoreLimit      = attribute.Key("store.limit")

	AttrEmbedModel      = attribute.Key("embedding.model")
	AttrEmbedProvider   = attribute.Key("embedding.provider")
	AttrEmbedTextCount  = attribute.Key("embedding.text_count")
	AttrEmbedDimensions = attribute.Key("embedding.dimensions")

	AttrStatus = attribute.Key("status")
)
