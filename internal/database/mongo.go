package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nao1215/jokeimport/internal/model"
)

// NodesCollection is the collection holding every node.
const NodesCollection = "nodes"

// mongoTimeout bounds connect, ping and index creation.
const mongoTimeout = 10 * time.Second

// MongoStore is the MongoDB-backed Store.
type MongoStore struct {
	client *mongo.Client
	nodes  *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

// nodeDocument wraps a node with its ObjectID.
type nodeDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	model.Node `bson:",inline"`
}

// OpenMongo connects to uri and uses the nodes collection of database.
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	s := &MongoStore{
		client: client,
		nodes:  client.Database(database).Collection(NodesCollection),
	}
	if err := s.createIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return s, nil
}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	_, err := s.nodes.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "imported_at", Value: -1}}},
		// Lookup only; upstream ids may repeat.
		{Keys: bson.D{{Key: "field_id", Value: 1}}},
	})
	return err
}

// CreateNode inserts a node document.
func (s *MongoStore) CreateNode(ctx context.Context, node *model.Node) (string, error) {
	doc := nodeDocument{ID: primitive.NewObjectID(), Node: *node}
	if doc.ImportedAt.IsZero() {
		doc.ImportedAt = time.Now().UTC()
	}
	if _, err := s.nodes.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to insert node: %w", err)
	}
	node.NID = doc.ID.Hex()
	return node.NID, nil
}

// GetNode loads a node by its ObjectID hex string.
func (s *MongoStore) GetNode(ctx context.Context, nid string) (*model.Node, error) {
	oid, err := primitive.ObjectIDFromHex(nid)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, nid)
	}

	var doc nodeDocument
	err = s.nodes.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, nid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query node: %w", err)
	}
	return doc.toNode(), nil
}

// ListNodes returns nodes of nodeType, most recently imported first.
func (s *MongoStore) ListNodes(ctx context.Context, nodeType string, limit, offset int) ([]*model.Node, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "imported_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(max(offset, 0)))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.nodes.Find(ctx, bson.M{"type": nodeType}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer cursor.Close(ctx)

	var nodes []*model.Node
	for cursor.Next(ctx) {
		var doc nodeDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode node: %w", err)
		}
		nodes = append(nodes, doc.toNode())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate nodes: %w", err)
	}
	return nodes, nil
}

// CountNodes returns the number of nodes of nodeType.
func (s *MongoStore) CountNodes(ctx context.Context, nodeType string) (int, error) {
	n, err := s.nodes.CountDocuments(ctx, bson.M{"type": nodeType})
	if err != nil {
		return 0, fmt.Errorf("failed to count nodes: %w", err)
	}
	return int(n), nil
}

// DeleteNodes removes every node of nodeType.
func (s *MongoStore) DeleteNodes(ctx context.Context, nodeType string) (int64, error) {
	res, err := s.nodes.DeleteMany(ctx, bson.M{"type": nodeType})
	if err != nil {
		return 0, fmt.Errorf("failed to delete nodes: %w", err)
	}
	return res.DeletedCount, nil
}

// Ping checks the connection.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (d *nodeDocument) toNode() *model.Node {
	n := d.Node
	n.NID = d.ID.Hex()
	return &n
}
