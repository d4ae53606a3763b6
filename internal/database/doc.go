// Package database stores imported jokes as nodes.
//
// Two backends implement Store:
//   - NodeDB: a single SQLite file (modernc.org/sqlite), the default
//   - MongoStore: a MongoDB collection (go.mongodb.org/mongo-driver)
//
// Nodes are append-only from the importer's point of view. There is no
// uniqueness constraint on the upstream joke id, so importing the same joke
// twice stores two nodes. Deletion is by node type and is used when the
// module is uninstalled.
//
// SQLite is the default because it needs no external service and the
// CGO-free driver keeps cross-compilation simple.
package database
