// Package mongo is a Record Store backed by a MongoDB collection.
package mongo

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"dishmap/internal/domain"
)

const collectionName = "upload_records"

type recordDoc struct {
	ID           string    `bson:"_id"`
	Seq          int64     `bson:"seq"`
	OriginalRef  string    `bson:"original_ref"`
	ThumbRef     *string   `bson:"thumb_ref"`
	PreviewRef   *string   `bson:"preview_ref"`
	PlaceID      string    `bson:"place_id"`
	Dish         string    `bson:"dish"`
	UploaderName string    `bson:"uploader_name"`
	CreatedAt    time.Time `bson:"created_at"`
}

type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	seq    atomic.Int64
}

var _ domain.RecordStore = (*Store)(nil)

// Connect opens the client, checks it with a ping and ensures the place index.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	coll := client.Database(database).Collection(collectionName)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "place_id", Value: 1}, {Key: "seq", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo index: %w", err)
	}
	return &Store{client: client, coll: coll}, nil
}

func (s *Store) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

// Append inserts one document. seq is the creation time in nanoseconds, bumped
// so it strictly increases within this process; it defines iteration order.
func (s *Store) Append(ctx context.Context, rec domain.UploadRecord) (string, error) {
	doc := recordDoc{
		ID:           rec.ID,
		Seq:          s.nextSeq(),
		OriginalRef:  rec.OriginalRef,
		ThumbRef:     rec.ThumbRef,
		PreviewRef:   rec.PreviewRef,
		PlaceID:      rec.PlaceID,
		Dish:         rec.Dish,
		UploaderName: rec.UploaderName,
		CreatedAt:    rec.CreatedAt.UTC(),
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("%w: insert record: %v", domain.ErrStoreUnavailable, err)
	}
	return rec.ID, nil
}

func (s *Store) nextSeq() int64 {
	for {
		now := time.Now().UnixNano()
		last := s.seq.Load()
		if now <= last {
			now = last + 1
		}
		if s.seq.CompareAndSwap(last, now) {
			return now
		}
	}
}

func (s *Store) All(ctx context.Context) ([]domain.UploadRecord, error) {
	return s.find(ctx, bson.M{})
}

func (s *Store) FindByPlace(ctx context.Context, placeID string) ([]domain.UploadRecord, error) {
	return s.find(ctx, bson.M{"place_id": placeID})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]domain.UploadRecord, error) {
	cursor, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: find records: %v", domain.ErrStoreUnavailable, err)
	}
	defer cursor.Close(ctx)

	var docs []recordDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decode records: %v", domain.ErrStoreUnavailable, err)
	}
	out := make([]domain.UploadRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.UploadRecord{
			ID:           d.ID,
			OriginalRef:  d.OriginalRef,
			ThumbRef:     d.ThumbRef,
			PreviewRef:   d.PreviewRef,
			PlaceID:      d.PlaceID,
			Dish:         d.Dish,
			UploaderName: d.UploaderName,
			CreatedAt:    d.CreatedAt.UTC(),
		})
	}
	return out, nil
}
