package preferences

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSStore implements Store on a JetStream key-value bucket.
type NATSStore struct {
	conn *nats.Conn
	kv   jetstream.KeyValue
}

// NewNATSStore connects to url and opens bucket, creating it when it does not
// exist yet.
func NewNATSStore(url, bucket string) (*NATSStore, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating jetstream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kv, err := js.KeyValue(ctx, bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "userstate preferences",
			History:     1,
		})
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening kv bucket %s: %w", bucket, err)
	}

	return &NATSStore{conn: conn, kv: kv}, nil
}

func (n *NATSStore) Get(ctx context.Context, key string) (string, bool, error) {
	entry, err := n.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return string(entry.Value()), true, nil
}

func (n *NATSStore) Set(ctx context.Context, key, value string) error {
	if _, err := n.kv.PutString(ctx, key, value); err != nil {
		return fmt.Errorf("kv put %s: %w", key, err)
	}
	return nil
}

func (n *NATSStore) Remove(ctx context.Context, key string) error {
	if err := n.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("kv delete %s: %w", key, err)
	}
	return nil
}

func (n *NATSStore) Contains(ctx context.Context, key string) (bool, error) {
	_, ok, err := n.Get(ctx, key)
	return ok, err
}

// Close closes the NATS connection.
func (n *NATSStore) Close() error {
	n.conn.Close()
	return nil
}
