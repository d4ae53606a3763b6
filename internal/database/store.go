package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/jokeimport/internal/config"
	"github.com/nao1215/jokeimport/internal/model"
)

// ErrNodeNotFound is returned when a node id does not exist.
var ErrNodeNotFound = errors.New("node not found")

// Store persists nodes.
type Store interface {
	// CreateNode inserts a node and returns its store-assigned id.
	CreateNode(ctx context.Context, node *model.Node) (string, error)

	// GetNode loads one node by id.
	GetNode(ctx context.Context, nid string) (*model.Node, error)

	// ListNodes returns nodes of a type, newest first.
	ListNodes(ctx context.Context, nodeType string, limit, offset int) ([]*model.Node, error)

	// CountNodes returns the number of nodes of a type.
	CountNodes(ctx context.Context, nodeType string) (int, error)

	// DeleteNodes removes every node of a type and returns how many were removed.
	DeleteNodes(ctx context.Context, nodeType string) (int64, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

// Open opens the store selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite, "":
		return OpenNodeDB(cfg.DBDir, DefaultOptions())
	case config.DriverMongo:
		return OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownStoreDriver, cfg.StoreDriver)
	}
}
