package store

import (
	"context"
	"fmt"
	"time"

	"git.fiblab.net/sim/isochrone/layer"
	"github.com/cenkalti/backoff/v4"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	CONNECT_TIMEOUT = 30 * time.Second
	// ping失败后的最大重试次数
	CONNECT_RETRIES = 5
)

// 集合中每个文档保存一个要素，class为图层名
type document[T any] struct {
	Class string `bson:"class"`
	Data  T      `bson:"data"`
}

// NewClient connects to uri and waits until the server answers a ping,
// retrying with exponential backoff.
func NewClient(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetConnectTimeout(CONNECT_TIMEOUT))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), CONNECT_RETRIES), ctx)
	err = backoff.RetryNotify(func() error {
		return client.Ping(ctx, readpref.Primary())
	}, b, func(err error, d time.Duration) {
		log.Warnf("ping mongo failed, retry in %v: %v", d, err)
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

func downloadClass[T any](ctx context.Context, coll *mongo.Collection, kind layer.Kind) ([]T, error) {
	cursor, err := coll.Find(ctx, bson.M{"class": kind.String()})
	if err != nil {
		return nil, fmt.Errorf("find %v: %w", kind, err)
	}
	docs := []document[T]{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %v: %w", kind, err)
	}
	log.Debugf("download %d %v features from %s", len(docs), kind, coll.Name())
	return lo.Map(docs, func(d document[T], _ int) T { return d.Data }), nil
}

// DownloadDataset reads the four layers of coll concurrently.
func DownloadDataset(ctx context.Context, coll *mongo.Collection) (*layer.Dataset, error) {
	ds := &layer.Dataset{}
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) (err error) {
		ds.Streets, err = downloadClass[layer.Street](ctx, coll, layer.KindStreet)
		return
	})
	p.Go(func(ctx context.Context) (err error) {
		ds.Stops, err = downloadClass[layer.Stop](ctx, coll, layer.KindStop)
		return
	})
	p.Go(func(ctx context.Context) (err error) {
		ds.RouteStops, err = downloadClass[layer.RouteStop](ctx, coll, layer.KindRouteStop)
		return
	})
	p.Go(func(ctx context.Context) (err error) {
		ds.Routes, err = downloadClass[layer.Route](ctx, coll, layer.KindRoute)
		return
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}
	if err := validate(ds); err != nil {
		return nil, err
	}
	log.Infof("download %v from %s", ds, coll.Name())
	return ds, nil
}

func documents[T any](kind layer.Kind, records []T) []interface{} {
	return lo.Map(records, func(r T, _ int) interface{} {
		return document[T]{Class: kind.String(), Data: r}
	})
}

// UploadDataset replaces the content of coll with ds.
func UploadDataset(ctx context.Context, coll *mongo.Collection, ds *layer.Dataset) error {
	if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("clear %s: %w", coll.Name(), err)
	}
	docs := []interface{}{}
	docs = append(docs, documents(layer.KindStreet, ds.Streets)...)
	docs = append(docs, documents(layer.KindStop, ds.Stops)...)
	docs = append(docs, documents(layer.KindRouteStop, ds.RouteStops)...)
	docs = append(docs, documents(layer.KindRoute, ds.Routes)...)
	if len(docs) == 0 {
		return nil
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert into %s: %w", coll.Name(), err)
	}
	if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "class", Value: 1}}}); err != nil {
		log.Warnf("create index on %s: %v", coll.Name(), err)
	}
	log.Infof("upload %v to %s", ds, coll.Name())
	return nil
}
