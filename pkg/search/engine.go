package search

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

var ErrClosed = errors.New("search engine closed")

// Index 警报全文索引
type Index struct {
	cfg    Config
	index  bleve.Index
	mu     sync.RWMutex
	closed bool
}

// Open 打开或创建索引
func Open(cfg Config) (*Index, error) {
	m := BuildIndexMapping(cfg.DefaultAnalyzer)

	var (
		idx bleve.Index
		err error
	)
	switch {
	case cfg.IndexPath == "":
		idx, err = bleve.NewMemOnly(m)
	default:
		if _, statErr := os.Stat(cfg.IndexPath); statErr == nil {
			idx, err = bleve.Open(cfg.IndexPath)
		} else if os.IsNotExist(statErr) {
			idx, err = bleve.New(cfg.IndexPath, m)
		} else {
			err = statErr
		}
	}
	if err != nil {
		return nil, err
	}
	return &Index{cfg: cfg, index: idx}, nil
}

func (e *Index) guard() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrClosed
	}
	return nil
}

func (e *Index) withDeadline(ctx context.Context, fn func(context.Context) error) error {
	if e.cfg.QueryTimeout <= 0 {
		return fn(ctx)
	}
	c, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
	defer cancel()
	ch := make(chan error, 1)
	go func() { ch <- fn(c) }()
	select {
	case <-c.Done():
		return c.Err()
	case err := <-ch:
		return err
	}
}

func (e *Index) Upsert(ctx context.Context, doc AlertDoc) error {
	if err := e.guard(); err != nil {
		return err
	}
	return e.withDeadline(ctx, func(ctx context.Context) error {
		return e.index.Index(doc.ID, doc.fields())
	})
}

// Rebuild 批量重建，启动时从数据库回填
func (e *Index) Rebuild(ctx context.Context, docs []AlertDoc) error {
	if err := e.guard(); err != nil {
		return err
	}
	bs := e.cfg.BatchSize
	if bs <= 0 {
		bs = 200
	}
	for i := 0; i < len(docs); i += bs {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := i + bs
		if end > len(docs) {
			end = len(docs)
		}
		b := e.index.NewBatch()
		for _, d := range docs[i:end] {
			if err := b.Index(d.ID, d.fields()); err != nil {
				return err
			}
		}
		if err := e.index.Batch(b); err != nil {
			return err
		}
	}
	return nil
}

func (e *Index) Delete(ctx context.Context, id string) error {
	if err := e.guard(); err != nil {
		return err
	}
	return e.withDeadline(ctx, func(ctx context.Context) error {
		return e.index.Delete(id)
	})
}

// Search 在文本字段中检索，status 非空时按状态过滤
func (e *Index) Search(ctx context.Context, text, status string, limit int) ([]Hit, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	match := bleve.NewMatchQuery(text)
	match.SetFuzziness(1)
	queries := []query.Query{match}
	if status != "" {
		st := bleve.NewTermQuery(status)
		st.SetField("status")
		queries = append(queries, st)
	}
	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(queries...), limit, 0, false)

	var hits []Hit
	err := e.withDeadline(ctx, func(ctx context.Context) error {
		res, err := e.index.SearchInContext(ctx, req)
		if err != nil {
			return err
		}
		hits = make([]Hit, 0, len(res.Hits))
		for _, h := range res.Hits {
			hits = append(hits, Hit{ID: h.ID, Score: h.Score})
		}
		return nil
	})
	return hits, err
}

func (e *Index) DocCount() (uint64, error) {
	if err := e.guard(); err != nil {
		return 0, err
	}
	return e.index.DocCount()
}

func (e *Index) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.index.Close()
}
