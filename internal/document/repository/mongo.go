package repository

import (
	"context"
	"time"

	"github.com/inkpad/inkpad/internal/document"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store against a MongoDB collection. The owner+parent
// compound index backs the child queries used by sidebar listing and
// archive/restore propagation; the collaborators index backs shared listings.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(col *mongo.Collection) *MongoStore {
	// index creation is idempotent; errors are non-fatal at startup
	col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "parentId", Value: 1}}},
		{Keys: bson.D{{Key: "collaborators", Value: 1}}},
	})
	return &MongoStore{col: col}
}

func (m *MongoStore) Insert(ctx context.Context, doc *document.Document) (string, error) {
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if doc.ID == "" {
		doc.ID = primitive.NewObjectID().Hex()
	}
	if _, err := m.col.InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return doc.ID, nil
}

func (m *MongoStore) Get(ctx context.Context, id string) (*document.Document, error) {
	var d document.Document
	if err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (m *MongoStore) Patch(ctx context.Context, id string, p document.Patch) (*document.Document, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	unset := bson.M{}

	setOrUnset := func(field, val string) {
		if val == "" {
			unset[field] = ""
		} else {
			set[field] = val
		}
	}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Content != nil {
		setOrUnset("content", *p.Content)
	}
	if p.CoverImage != nil {
		setOrUnset("coverImage", *p.CoverImage)
	}
	if p.Icon != nil {
		setOrUnset("icon", *p.Icon)
	}
	if p.ParentID != nil {
		setOrUnset("parentId", *p.ParentID)
	}
	if p.IsArchived != nil {
		set["isArchived"] = *p.IsArchived
	}
	if p.IsPublished != nil {
		set["isPublished"] = *p.IsPublished
	}
	if p.Collaborators != nil {
		if len(*p.Collaborators) == 0 {
			unset["collaborators"] = ""
		} else {
			set["collaborators"] = *p.Collaborators
		}
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d document.Document
	if err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&d); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (m *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) ByOwnerAndParent(ctx context.Context, ownerID, parentID string) ([]*document.Document, error) {
	filter := bson.M{"ownerId": ownerID}
	if parentID == "" {
		// top-level documents have no parentId field
		filter["parentId"] = bson.M{"$exists": false}
	} else {
		filter["parentId"] = parentID
	}
	return m.find(ctx, filter)
}

func (m *MongoStore) ByOwner(ctx context.Context, ownerID string) ([]*document.Document, error) {
	return m.find(ctx, bson.M{"ownerId": ownerID})
}

func (m *MongoStore) ByCollaborator(ctx context.Context, email string) ([]*document.Document, error) {
	return m.find(ctx, bson.M{"collaborators": email})
}

func (m *MongoStore) find(ctx context.Context, filter bson.M) ([]*document.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*document.Document{}
	for cur.Next(ctx) {
		var d document.Document
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, cur.Err()
}
