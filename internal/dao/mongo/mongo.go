// Package mongo implements the document catalog backend on MongoDB. Each
// entity family maps to a collection of one database; mutations run inside
// a multi-document transaction, which the server only offers on replica set
// and sharded deployments. Object ids come from a counters collection
// updated outside transaction scope, so ids handed to a rolled-back
// transaction are never reused.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/schemakeep/schemakeep/internal/dao"
	"github.com/schemakeep/schemakeep/internal/metadata"
	"github.com/schemakeep/schemakeep/internal/oid"
)

// DatabaseName is the MongoDB database holding the catalog collections.
const DatabaseName = "schemakeep"

// counterCollection holds one id counter document per entity family.
const counterCollection = "oid_counters"

// Deployment topologies reported by the hello command.
const (
	topologySharded    = "sharded"
	topologyReplicaSet = "replica_set"
	topologyStandalone = "standalone"
)

// Session implements dao.Session over a MongoDB connection.
type Session struct {
	uri      string
	client   *mongo.Client
	db       *mongo.Database
	sess     *mongo.Session
	topology string
	gen      *counterGenerator
}

// NewSession creates a session for the given connection URI. Call Init once
// to bootstrap the collections before the first Connect.
func NewSession(uri string) *Session {
	s := &Session{uri: uri}
	s.gen = &counterGenerator{s: s}
	return s
}

func (s *Session) Connect(ctx context.Context) error {
	if s.client != nil {
		return fmt.Errorf("session already connected: %w", metadata.ErrInternal)
	}
	opts := options.Client().ApplyURI(s.uri)
	client, err := mongo.Connect(opts)
	if err != nil {
		return fmt.Errorf("connecting to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("pinging MongoDB: %w", err)
	}
	topology, err := detectTopology(ctx, client)
	if err != nil {
		_ = client.Disconnect(ctx)
		return err
	}
	s.client = client
	s.db = client.Database(DatabaseName)
	s.topology = topology
	return nil
}

// detectTopology classifies the deployment so Begin can refuse
// transactions where the server cannot run them.
func detectTopology(ctx context.Context, client *mongo.Client) (string, error) {
	var result bson.M
	err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&result)
	if err != nil {
		return "", fmt.Errorf("running hello command: %w", err)
	}
	if msg, ok := result["msg"]; ok && msg == "isdbgrid" {
		return topologySharded, nil
	}
	if _, ok := result["setName"]; ok {
		return topologyReplicaSet, nil
	}
	return topologyStandalone, nil
}

func (s *Session) Begin(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("begin before connect: %w", metadata.ErrInternal)
	}
	if s.sess != nil {
		return fmt.Errorf("transaction already open: %w", metadata.ErrInternal)
	}
	if s.topology == topologyStandalone {
		return fmt.Errorf("transactions on a standalone deployment: %w", metadata.ErrNotSupported)
	}
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("starting MongoDB session: %w", err)
	}
	if err := sess.StartTransaction(); err != nil {
		sess.EndSession(ctx)
		return fmt.Errorf("beginning transaction: %w", err)
	}
	s.sess = sess
	return nil
}

func (s *Session) Commit(ctx context.Context) error {
	if s.sess == nil {
		return fmt.Errorf("commit without open transaction: %w", metadata.ErrInternal)
	}
	err := s.sess.CommitTransaction(ctx)
	s.sess.EndSession(ctx)
	s.sess = nil
	if err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *Session) Rollback(ctx context.Context) error {
	if s.sess == nil {
		return fmt.Errorf("rollback without open transaction: %w", metadata.ErrInternal)
	}
	err := s.sess.AbortTransaction(ctx)
	s.sess.EndSession(ctx)
	s.sess = nil
	if err != nil {
		return fmt.Errorf("rolling back transaction: %w", err)
	}
	return nil
}

func (s *Session) Close(ctx context.Context) error {
	if s.sess != nil {
		return fmt.Errorf("close with open transaction: %w", metadata.ErrInternal)
	}
	if s.client != nil {
		err := s.client.Disconnect(ctx)
		s.client = nil
		s.db = nil
		if err != nil {
			return fmt.Errorf("disconnecting from MongoDB: %w", err)
		}
	}
	return nil
}

func (s *Session) Tables() dao.Tables         { return &tablesDAO{s: s} }
func (s *Session) Columns() dao.Columns       { return &columnsDAO{s: s} }
func (s *Session) Indexes() dao.Indexes       { return &indexesDAO{s: s} }
func (s *Session) Statistics() dao.Statistics { return &statisticsDAO{s: s} }
func (s *Session) DataTypes() dao.DataTypes   { return &datatypesDAO{s: s} }
func (s *Session) Generator() oid.Generator   { return s.gen }

func (s *Session) collection(family metadata.Family) *mongo.Collection {
	return s.db.Collection(string(family))
}

// requireTxn guards mutating operations and binds them to the open
// transaction's session.
func (s *Session) requireTxn(ctx context.Context) (context.Context, error) {
	if s.sess == nil {
		return nil, fmt.Errorf("write outside transaction: %w", metadata.ErrInternal)
	}
	return mongo.NewSessionContext(ctx, s.sess), nil
}

// reader binds reads to the open transaction when one exists, so a session
// observes its own uncommitted writes.
func (s *Session) reader(ctx context.Context) (context.Context, error) {
	if s.client == nil {
		return nil, fmt.Errorf("access before connect: %w", metadata.ErrInternal)
	}
	if s.sess != nil {
		return mongo.NewSessionContext(ctx, s.sess), nil
	}
	return ctx, nil
}

// counterGenerator issues ids from per-family documents in the counters
// collection. Counter updates run outside transaction scope, so a rollback
// never recycles an issued id.
type counterGenerator struct {
	s *Session
}

func (g *counterGenerator) Generate(ctx context.Context, family metadata.Family) (int64, error) {
	if g.s.client == nil {
		return metadata.InvalidObjectID, fmt.Errorf("access before connect: %w", metadata.ErrInternal)
	}
	filter := bson.D{{Key: "_id", Value: string(family)}}
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "counter", Value: int64(1)}}}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc struct {
		Counter int64 `bson:"counter"`
	}
	err := g.s.db.Collection(counterCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err != nil {
		return metadata.InvalidObjectID, fmt.Errorf("generating %s id: %w", family, err)
	}
	return doc.Counter, nil
}

func (g *counterGenerator) Current(ctx context.Context, family metadata.Family) (int64, error) {
	if g.s.client == nil {
		return metadata.InvalidObjectID, fmt.Errorf("access before connect: %w", metadata.ErrInternal)
	}
	var doc struct {
		Counter int64 `bson:"counter"`
	}
	err := g.s.db.Collection(counterCollection).FindOne(ctx, bson.D{{Key: "_id", Value: string(family)}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return metadata.InvalidObjectID, fmt.Errorf("reading %s id counter: %w", family, err)
	}
	return doc.Counter, nil
}

// Init bootstraps the catalog database: entity collections, lookup indexes
// and the seeded datatype rows. Existing objects are left untouched.
func Init(ctx context.Context, uri string) error {
	opts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(opts)
	if err != nil {
		return fmt.Errorf("connecting to MongoDB: %w", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("pinging MongoDB: %w", err)
	}
	db := client.Database(DatabaseName)

	families := []metadata.Family{
		metadata.FamilyTables,
		metadata.FamilyColumns,
		metadata.FamilyIndexes,
		metadata.FamilyStatistics,
		metadata.FamilyDataTypes,
	}
	for _, f := range families {
		if err := db.CreateCollection(ctx, string(f)); err != nil {
			if !strings.Contains(err.Error(), "already exists") {
				return fmt.Errorf("creating collection %s: %w", f, err)
			}
		}
	}

	for _, bi := range bootstrapIndexes {
		if _, err := db.Collection(bi.collection).Indexes().CreateOne(ctx, bi.model); err != nil {
			return fmt.Errorf("creating index on %s: %w", bi.collection, err)
		}
	}

	return seedDataTypes(ctx, db)
}

// bootstrapIndexes back the same uniqueness rules the relational backends
// declare as constraints.
var bootstrapIndexes = []struct {
	collection string
	model      mongo.IndexModel
}{
	{string(metadata.FamilyTables), mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}},
	{string(metadata.FamilyTables), mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}},
	{string(metadata.FamilyColumns), mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}},
	{string(metadata.FamilyColumns), mongo.IndexModel{
		Keys: bson.D{{Key: "table_id", Value: 1}, {Key: "ordinal_position", Value: 1}},
	}},
	{string(metadata.FamilyIndexes), mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}},
	{string(metadata.FamilyIndexes), mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}},
	{string(metadata.FamilyStatistics), mongo.IndexModel{
		Keys:    bson.D{{Key: "table_id", Value: 1}, {Key: "ordinal_position", Value: 1}},
		Options: options.Index().SetUnique(true),
	}},
	{string(metadata.FamilyDataTypes), mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}},
	{string(metadata.FamilyDataTypes), mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}},
}

func seedDataTypes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(string(metadata.FamilyDataTypes))
	n, err := coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("counting datatypes: %w", err)
	}
	if n > 0 {
		return nil
	}

	seed := metadata.SeedDataTypes()
	docs := make([]any, len(seed))
	for i := range seed {
		docs[i] = &seed[i]
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("seeding datatypes: %w", err)
	}
	return nil
}

// compile-time interface checks
var (
	_ dao.Session   = (*Session)(nil)
	_ oid.Generator = (*counterGenerator)(nil)
)
