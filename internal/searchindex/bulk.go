package searchindex

import (
	"context"
	"sync"

	"github.com/blevesearch/bleve"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/corpus"
)

const (
	defaultBulkWorkers   = 12
	defaultBulkQueueSize = 6
	defaultBulkChunkSize = 5000
)

func (o BulkOptions) withDefaults() BulkOptions {
	if o.Workers <= 0 {
		o.Workers = defaultBulkWorkers
	}
	if o.QueueSize <= 0 {
		o.QueueSize = defaultBulkQueueSize
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = defaultBulkChunkSize
	}
	return o
}

func fields(doc corpus.Document) map[string]interface{} {
	f := map[string]interface{}{BodyField: doc.Body}
	if doc.Weight != nil {
		f[WeightField] = *doc.Weight
	}
	return f
}

// BulkLoad groups docs into chunks and indexes them with a pool of workers.
// At most QueueSize chunks wait between the reader and the workers.
func (b *BleveIndex) BulkLoad(ctx context.Context, docs <-chan corpus.Document, opts BulkOptions) (BulkReport, error) {
	opts = opts.withDefaults()
	idx, release, err := b.acquire()
	if err != nil {
		return BulkReport{}, err
	}
	defer release()

	chunks := make(chan []corpus.Document, opts.QueueSize)
	go func() {
		defer close(chunks)
		chunk := make([]corpus.Document, 0, opts.ChunkSize)
		for {
			select {
			case <-ctx.Done():
				return
			case doc, ok := <-docs:
				if !ok {
					if len(chunk) > 0 {
						select {
						case chunks <- chunk:
						case <-ctx.Done():
						}
					}
					return
				}
				chunk = append(chunk, doc)
				if len(chunk) == opts.ChunkSize {
					select {
					case chunks <- chunk:
					case <-ctx.Done():
						return
					}
					chunk = make([]corpus.Document, 0, opts.ChunkSize)
				}
			}
		}
	}()

	var (
		mu     sync.Mutex
		report BulkReport
		wg     sync.WaitGroup
	)
	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range chunks {
				indexed, failures := b.indexChunk(idx, chunk)
				mu.Lock()
				report.Indexed += indexed
				report.Failures = append(report.Failures, failures...)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if b.opts.Metrics != nil {
		b.opts.Metrics.DocsIndexedTotal.WithLabelValues(b.opts.Name).Add(float64(report.Indexed))
		b.opts.Metrics.BulkFailuresTotal.WithLabelValues(b.opts.Name).Add(float64(len(report.Failures)))
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// indexChunk submits one chunk as a single batch. Documents the batch refuses
// fail individually; a failed batch commit fails every document it held.
func (b *BleveIndex) indexChunk(idx bleve.Index, chunk []corpus.Document) (int, []BulkFailure) {
	batch := idx.NewBatch()
	var failures []BulkFailure
	accepted := make([]string, 0, len(chunk))
	for _, doc := range chunk {
		if err := batch.Index(doc.ID, fields(doc)); err != nil {
			failures = append(failures, BulkFailure{ID: doc.ID, Reason: err.Error()})
			continue
		}
		accepted = append(accepted, doc.ID)
	}
	if len(accepted) == 0 {
		return 0, failures
	}
	if err := idx.Batch(batch); err != nil {
		b.logger.Error("batch commit failed", "docs", len(accepted), "error", err)
		for _, id := range accepted {
			failures = append(failures, BulkFailure{ID: id, Reason: err.Error()})
		}
		return 0, failures
	}
	return len(accepted), failures
}
