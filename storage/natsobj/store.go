package natsobj

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/Incia94/mongoose-storage-driver-preempt/errors"
)

// Store implements storage.Store over a NATS JetStream object store bucket
type Store struct {
	bucket string
	os     jetstream.ObjectStore
}

// NewStore wraps an object store bucket handle
func NewStore(bucket string, os jetstream.ObjectStore) *Store {
	return &Store{bucket: bucket, os: os}
}

// Bucket returns the bucket name the store operates on
func (s *Store) Bucket() string {
	return s.bucket
}

// Put stores data under the given key, overwriting any existing object
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if _, err := s.os.PutBytes(ctx, key, data); err != nil {
		return errors.WrapTransient(err, "Store", "Put",
			fmt.Sprintf("put object %s in bucket %s", key, s.bucket))
	}
	return nil
}

// Get retrieves the data stored under the given key
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.os.GetBytes(ctx, key)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, errors.WrapInvalid(errors.ErrItemNotFound, "Store", "Get",
				fmt.Sprintf("object %s not found in bucket %s", key, s.bucket))
		}
		return nil, errors.WrapTransient(err, "Store", "Get",
			fmt.Sprintf("get object %s from bucket %s", key, s.bucket))
	}
	return data, nil
}

// List returns the keys in the bucket matching the prefix, sorted
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	infos, err := s.os.List(ctx)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrNoObjectsFound) {
			return []string{}, nil
		}
		return nil, errors.WrapTransient(err, "Store", "List",
			fmt.Sprintf("list bucket %s", s.bucket))
	}

	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.Deleted {
			continue
		}
		if prefix == "" || strings.HasPrefix(info.Name, prefix) {
			keys = append(keys, info.Name)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes the object stored under the given key
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.os.Delete(ctx, key); err != nil {
		if stderrors.Is(err, jetstream.ErrObjectNotFound) {
			return errors.WrapInvalid(errors.ErrItemNotFound, "Store", "Delete",
				fmt.Sprintf("object %s not found in bucket %s", key, s.bucket))
		}
		return errors.WrapTransient(err, "Store", "Delete",
			fmt.Sprintf("delete object %s from bucket %s", key, s.bucket))
	}
	return nil
}
