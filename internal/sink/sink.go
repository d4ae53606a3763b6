package sink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/jokeimport/internal/config"
	"github.com/nao1215/jokeimport/internal/model"
)

// NodeCreator is the part of the store the sink writes through.
type NodeCreator interface {
	CreateNode(ctx context.Context, node *model.Node) (string, error)
}

// Sink validates records and creates one node for each valid one.
// It never upserts: saving the same joke twice creates two nodes.
type Sink struct {
	store    NodeCreator
	nodeType func() string
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Sink.
type Option func(*Sink)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) {
		s.logger = logger
	}
}

// WithNodeType sets a fixed node type.
func WithNodeType(nodeType string) Option {
	return func(s *Sink) {
		s.nodeType = func() string { return nodeType }
	}
}

// WithNodeTypeFunc reads the node type on every save, so settings changes
// apply to the next record.
func WithNodeTypeFunc(fn func() string) Option {
	return func(s *Sink) {
		s.nodeType = fn
	}
}

// WithClock overrides the import timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Sink) {
		s.now = now
	}
}

// New creates a Sink writing to store.
func New(store NodeCreator, opts ...Option) *Sink {
	s := &Sink{
		store:    store,
		nodeType: func() string { return config.DefaultNodeType },
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// NodeType returns the node type new records are created with.
func (s *Sink) NodeType() string {
	return s.nodeType()
}

// Save persists one record. Failures are logged and reported through the
// result status; Save never returns an error or panics on bad input.
func (s *Sink) Save(ctx context.Context, rec model.JokeRecord) model.SaveResult {
	result := model.SaveResult{ExternalID: rec.ID}

	if err := rec.Validate(); err != nil {
		s.logFailure(rec.ID, err)
		result.Status = model.StatusInvalid
		result.Err = err
		return result
	}

	node := model.NewNode(s.nodeType(), rec, s.now())
	nid, err := s.store.CreateNode(ctx, node)
	if err != nil {
		err = fmt.Errorf("create node: %w", err)
		s.logFailure(rec.ID, err)
		result.Status = model.StatusStoreFailed
		result.Err = err
		return result
	}

	s.logger.Debug("joke saved", "id", rec.ID, "nid", nid, "type", node.Type)
	result.NID = nid
	result.Status = model.StatusSaved
	return result
}

func (s *Sink) logFailure(id string, err error) {
	s.logger.Error(fmt.Sprintf("Failed to import joke #%s: %s", id, err), "id", id)
}
