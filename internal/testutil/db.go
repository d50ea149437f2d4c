package testutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/dochub/internal/app/system/txn"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// TestContext returns a context with a generous timeout for test
// database work.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// SetupTestDB connects to the test MongoDB deployment and returns a
// database unique to this test. The database is dropped and the client
// disconnected on cleanup.
//
// The URI comes from DOCHUB_TEST_MONGO_URI and defaults to a local
// mongod. Tests are skipped when no server is reachable, so the suite
// stays runnable on machines without MongoDB.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	db, _ := setup(t, nil)
	return db
}

// WriteCounter counts write commands issued through the test client.
// Used to assert that no-op upserts really issue zero writes.
type WriteCounter struct {
	n atomic.Int64
}

// Count returns the number of write commands observed so far.
func (w *WriteCounter) Count() int64 { return w.n.Load() }

// Reset zeroes the counter.
func (w *WriteCounter) Reset() { w.n.Store(0) }

var writeCommands = map[string]bool{
	"insert":        true,
	"update":        true,
	"delete":        true,
	"findAndModify": true,
	"bulkWrite":     true,
}

// SetupTestDBWithWrites is SetupTestDB plus a WriteCounter wired into
// the client's command monitor.
func SetupTestDBWithWrites(t *testing.T) (*mongo.Database, *WriteCounter) {
	t.Helper()
	wc := &WriteCounter{}
	monitor := &event.CommandMonitor{
		Started: func(_ context.Context, evt *event.CommandStartedEvent) {
			if writeCommands[evt.CommandName] {
				wc.n.Add(1)
			}
		},
	}
	db, _ := setup(t, monitor)
	return db, wc
}

// RequireTransactions skips the test when the deployment cannot run
// multi-document transactions (a standalone mongod). Rollback and
// atomicity assertions only hold against a replica set.
func RequireTransactions(t *testing.T, db *mongo.Database) {
	t.Helper()
	ctx, cancel := TestContext()
	defer cancel()

	session, err := db.Client().StartSession()
	if err != nil {
		if txn.IsNotSupported(err) {
			t.Skip("skipping: test mongo does not support transactions")
		}
		t.Fatalf("start session: %v", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		err := db.Collection("txn_support_check").FindOne(sc, bson.M{"_id": int64(0)}).Err()
		if errors.Is(err, mongo.ErrNoDocuments) {
			err = nil
		}
		return nil, err
	})
	if err != nil {
		if txn.IsNotSupported(err) {
			t.Skip("skipping: test mongo does not support transactions")
		}
		t.Fatalf("transaction support check: %v", err)
	}
}

func setup(t *testing.T, monitor *event.CommandMonitor) (*mongo.Database, *mongo.Client) {
	t.Helper()

	uri := os.Getenv("DOCHUB_TEST_MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	opts := options.Client().ApplyURI(uri)
	if monitor != nil {
		opts.SetMonitor(monitor)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		t.Skipf("skipping: cannot connect to test mongo at %s: %v", uri, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		t.Skipf("skipping: test mongo at %s not reachable: %v", uri, err)
	}

	name := fmt.Sprintf("dochub_test_%s", strings.ReplaceAll(uuid.NewString(), "-", ""))
	db := client.Database(name)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	return db, client
}
