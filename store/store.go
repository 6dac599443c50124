// Package store reads and writes network datasets: GeoJSON or JSON files,
// MongoDB collections with a local JSON cache, and headway CSV files.
package store

import (
	"context"
	"errors"
	"fmt"

	"git.fiblab.net/sim/isochrone/layer"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

var log = logrus.WithField("module", "store")

var ErrNoSource = errors.New("no dataset source")

// Source names a collection and its cache file.
type Source interface {
	GetDb() string
	GetColl() string
	GetCachePath() string
}

// Load reads the dataset at path. Collections are downloaded from mongoURI
// unless a cached copy exists in cacheDir; files are read directly.
func Load(ctx context.Context, mongoURI string, path *Path, cacheDir string) (*layer.Dataset, error) {
	if path == nil {
		return nil, ErrNoSource
	}
	if path.File != "" {
		return ReadDatasetFile(path.File)
	}
	return LoadWithCache(cacheDir, path, func() (*layer.Dataset, error) {
		client, err := NewClient(ctx, mongoURI)
		if err != nil {
			return nil, err
		}
		defer client.Disconnect(context.Background())
		return DownloadDataset(ctx, GetMongoColl(client, path))
	})
}

func GetMongoColl(client *mongo.Client, src Source) *mongo.Collection {
	return client.Database(src.GetDb()).Collection(src.GetColl())
}

func validate(ds *layer.Dataset) error {
	if len(ds.Streets) == 0 {
		return fmt.Errorf("%v: no street", ds)
	}
	return nil
}
