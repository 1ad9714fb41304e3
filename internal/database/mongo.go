package database

import (
	"context"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultMongoDatabase = "todos"

// ConnectMongo connects, pings, and returns the database named in the URI path
// (or "todos" when the URI has none).
func ConnectMongo(ctx context.Context, mongoURI string) (*mongo.Client, *mongo.Database, error) {
	// Use longer timeout for Atlas connections
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(mongoURI)
	clientOptions.SetServerSelectionTimeout(10 * time.Second)

	log.Printf("Attempting to connect to MongoDB...")
	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, nil, err
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	defer pingCancel()

	if err = client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, nil, err
	}

	log.Println("✅ Connected to MongoDB")
	return client, client.Database(MongoDatabaseName(mongoURI)), nil
}

// MongoDatabaseName extracts the database name from a URI of the form
// mongodb://host/dbname?opts.
func MongoDatabaseName(mongoURI string) string {
	parts := strings.Split(mongoURI, "/")
	if len(parts) > 3 {
		if dbPart := strings.Split(parts[len(parts)-1], "?")[0]; dbPart != "" {
			return dbPart
		}
	}
	return defaultMongoDatabase
}

// MaskMongoURI hides the password in a connection string for logging.
func MaskMongoURI(mongoURI string) string {
	at := strings.LastIndex(mongoURI, "@")
	if at == -1 {
		return mongoURI
	}
	scheme := strings.Index(mongoURI, "://")
	if scheme == -1 || scheme > at {
		return mongoURI
	}
	creds := mongoURI[scheme+3 : at]
	colon := strings.Index(creds, ":")
	if colon == -1 {
		return mongoURI
	}
	return mongoURI[:scheme+3] + creds[:colon] + ":***" + mongoURI[at:]
}
