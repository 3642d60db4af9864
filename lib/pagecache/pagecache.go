package pagecache

import (
	"bytes"
	"context"
	"encoding/gob"
	"net/url"
	"time"

	"github.com/PuerkitoBio/purell"
	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("beanscout.lib.pagecache")

var ErrNotFound = badger.ErrKeyNotFound

// Namespaces used by the scraping core.
const (
	NamespaceProducts          = "products"
	NamespaceSitemaps          = "sitemaps"
	NamespaceHtmlPages         = "htmlpages"
	NamespaceExtractedProducts = "extracted_products"
)

const DefaultLifetime = time.Hour * 24

type entry struct {
	Payload   []byte
	ExpiresAt int64
}

// Cache is a badger-backed page/result cache with per-entry expiry.
// Concurrent writers to the same key are not expected during a run;
// last write wins if they occur.
type Cache struct {
	db       *badger.DB
	lifetime time.Duration
}

func Open(dir string, lifetime time.Duration) (*Cache, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	if lifetime == 0 {
		lifetime = DefaultLifetime
	}
	return &Cache{db: db, lifetime: lifetime}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// NormalizeUrlKey produces a stable cache key for a url, so that
// trivially different spellings of the same page share one entry.
func NormalizeUrlKey(raw string) string {
	link, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return purell.NormalizeURL(
		link,
		purell.FlagsSafe|
			purell.FlagsUsuallySafeNonGreedy|
			purell.FlagRemoveDirectoryIndex|
			purell.FlagRemoveFragment|
			purell.FlagSortQuery,
	)
}

func (c *Cache) key(namespace, key string) []byte {
	return []byte(namespace + ":" + key)
}

func (c *Cache) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "get")
	defer span.End()
	span.SetAttributes(
		attribute.String("namespace", namespace),
		attribute.String("key", key),
	)

	tx := c.db.NewTransaction(false)
	defer tx.Discard()

	item, err := tx.Get(c.key(namespace, key))
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read item from badger")
		return nil, err
	}
	serialized, err := item.ValueCopy(nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to copy cached item")
		return nil, err
	}

	var cached entry
	err = gob.NewDecoder(bytes.NewReader(serialized)).Decode(&cached)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to deserialize cached item")
		return nil, err
	}

	if time.Now().Unix() >= cached.ExpiresAt {
		span.AddEvent("delete expired cache key")
		c.delete(namespace, key)
		return nil, ErrNotFound
	}

	return cached.Payload, nil
}

func (c *Cache) Put(ctx context.Context, namespace, key string, payload []byte) error {
	ctx, span := tracer.Start(ctx, "put")
	defer span.End()
	span.SetAttributes(
		attribute.String("namespace", namespace),
		attribute.String("key", key),
	)

	serialized := bytes.NewBuffer(nil)
	err := gob.NewEncoder(serialized).Encode(entry{
		Payload:   payload,
		ExpiresAt: time.Now().Add(c.lifetime).Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to serialize cache entry")
		return err
	}

	tx := c.db.NewTransaction(true)
	err = tx.Set(c.key(namespace, key), serialized.Bytes())
	if err != nil {
		tx.Discard()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set badger item")
		return err
	}
	return tx.Commit()
}

func (c *Cache) delete(namespace, key string) {
	tx := c.db.NewTransaction(true)
	err := tx.Delete(c.key(namespace, key))
	if err != nil {
		tx.Discard()
		return
	}
	tx.Commit()
}
