package database

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newMock(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func mockDB(mt *mtest.T) *DB {
	return &DB{client: mt.Client, db: mt.DB}
}

// found answers a findAndModify with doc as the matched document.
func found(doc interface{}) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "value", Value: doc})
}

func unmatched() bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil})
}

// counted answers the aggregate behind CountDocuments.
func counted(mt *mtest.T, coll string, n int) bson.D {
	ns := mt.DB.Name() + "." + coll
	if n == 0 {
		return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch)
	}
	return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "_id", Value: 1}, {Key: "n", Value: n}})
}

func modified(n int) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: n}, bson.E{Key: "nModified", Value: n})
}

// sent pops the next command the client issued and checks its name.
func sent(mt *mtest.T, name string) bson.Raw {
	mt.Helper()
	started := mt.GetStartedEvent()
	require.NotNil(mt, started, "no %s was sent", name)
	require.Equal(mt, name, started.CommandName)
	return started.Command
}

func asInt(t *testing.T, v bson.RawValue) int {
	t.Helper()
	switch v.Type {
	case bsontype.Int32:
		return int(v.Int32())
	case bsontype.Int64:
		return int(v.Int64())
	}
	t.Fatalf("%v is not an integer", v)
	return 0
}
