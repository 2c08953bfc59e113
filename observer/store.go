package observer

import (
	"context"
	"time"

	pdfvec "github.com/nevindra/pdfvec"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ObservedStore wraps a pdfvec.VectorStore with OTEL instrumentation.
type ObservedStore struct {
	inner pdfvec.VectorStore
	inst  *Instruments
}

var _ pdfvec.VectorStore = (*ObservedStore)(nil)

// WrapStore returns an instrumented vector store.
func WrapStore(inner pdfvec.VectorStore, inst *Instruments) *ObservedStore {
	return &ObservedStore{inner: inner, inst: inst}
}

func (o *ObservedStore) Name() string { return o.inner.Name() }
func (o *ObservedStore) Close() error { return o.inner.Close() }

func (o *ObservedStore) EnsureCollection(ctx context.Context, spec pdfvec.CollectionSpec) error {
	ctx, done := o.start(ctx, "ensure_collection", spec.Name)
	err := o.inner.EnsureCollection(ctx, spec)
	done(err)
	return err
}

func (o *ObservedStore) ListCollections(ctx context.Context) ([]string, error) {
	ctx, done := o.start(ctx, "list_collections", "")
	names, err := o.inner.ListCollections(ctx)
	done(err)
	return names, err
}

func (o *ObservedStore) InsertMany(ctx context.Context, collection string, records []pdfvec.ChunkRecord, policy pdfvec.DuplicatePolicy) (pdfvec.InsertResult, error) {
	ctx, done := o.start(ctx, "insert_many", collection, AttrStoreRecords.Int(len(records)))
	res, err := o.inner.InsertMany(ctx, collection, records, policy)
	trace.SpanFromContext(ctx).SetAttributes(
		AttrStoreInserted.Int(res.Inserted),
		AttrStoreReplaced.Int(res.Replaced),
		AttrStoreRejected.Int(len(res.Rejected)),
	)
	if n := res.Stored(); n > 0 {
		o.inst.StoreRecordsInserted.Add(ctx, int64(n), metric.WithAttributes(
			AttrStoreBackend.String(o.inner.Name()),
			AttrStoreCollection.String(collection),
		))
	}
	done(err)
	return res, err
}

func (o *ObservedStore) Search(ctx context.Context, collection string, q pdfvec.SearchQuery) ([]pdfvec.Match, error) {
	ctx, done := o.start(ctx, "search", collection, AttrStoreLimit.Int(q.Limit))
	matches, err := o.inner.Search(ctx, collection, q)
	trace.SpanFromContext(ctx).SetAttributes(AttrStoreMatches.Int(len(matches)))
	done(err)
	return matches, err
}

// start opens a span for op and returns a func that records the outcome.
func (o *ObservedStore) start(ctx context.Context, op, collection string, extra ...attribute.KeyValue) (context.Context, func(error)) {
	attrs := append([]attribute.KeyValue{
		AttrStoreBackend.String(o.inner.Name()),
		AttrStoreOperation.String(op),
		AttrStoreCollection.String(collection),
	}, extra...)
	ctx, span := o.inst.Tracer.Start(ctx, "store."+op, trace.WithAttributes(attrs...))
	start := time.Now()

	return ctx, func(err error) {
		defer span.End()
		durationMs := float64(time.Since(start).Milliseconds())
		status := statusOf(err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		o.inst.StoreRequests.Add(ctx, 1, metric.WithAttributes(
			AttrStoreBackend.String(o.inner.Name()),
			AttrStoreOperation.String(op),
			AttrStatus.String(status),
		))
		o.inst.StoreDuration.Record(ctx, durationMs, metric.WithAttributes(
			AttrStoreBackend.String(o.inner.Name()),
			AttrStoreOperation.String(op),
		))

		var rec otellog.Record
		rec.SetSeverity(severityOf(err))
		rec.SetBody(otellog.StringValue("store call completed"))
		rec.AddAttributes(
			otellog.String("store.backend", o.inner.Name()),
			otellog.String("store.operation", op),
			otellog.String("store.collection", collection),
			otellog.Float64("duration_ms", durationMs),
			otellog.String("status", status),
		)
		o.inst.Logger.Emit(ctx, rec)
	}
}
