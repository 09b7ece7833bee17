package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/mcoot/tileworld/internal/model"
	"github.com/mcoot/tileworld/internal/storage"
)

// Storage is a MongoDB-backed implementation of the profile store.
// One document per profile, keyed by profile id, with a unique username index.
type Storage struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type positionDoc struct {
	X float64 `bson:"x"`
	Y float64 `bson:"y"`
}

type appearanceDoc struct {
	SkinColor  int `bson:"skin_color"`
	HairStyle  int `bson:"hair_style"`
	HairColor  int `bson:"hair_color"`
	ShirtColor int `bson:"shirt_color"`
	PantsColor int `bson:"pants_color"`
	HatStyle   int `bson:"hat_style"`
}

type profileDoc struct {
	ID           string        `bson:"_id"`
	Username     string        `bson:"username"`
	DisplayName  string        `bson:"display_name"`
	PasswordHash string        `bson:"password_hash"`
	Appearance   appearanceDoc `bson:"appearance"`
	LastPosition *positionDoc  `bson:"last_position,omitempty"`
	CreatedAt    time.Time     `bson:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at"`
}

// New connects to MongoDB, verifies the connection and ensures indexes
func New(ctx context.Context, cfg Config) (*Storage, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(cfg.URI)
	if cfg.MinPoolSize > 0 {
		clientOptions.SetMinPoolSize(cfg.MinPoolSize)
	}
	if cfg.MaxPoolSize > 0 {
		clientOptions.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := &Storage{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// NewWithCollection creates a storage over an existing collection (for testing)
func NewWithCollection(coll *mongo.Collection) *Storage {
	return &Storage{coll: coll}
}

// EnsureIndexes creates the unique username index
func (s *Storage) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create username index: %w", err)
	}
	return nil
}

// Close disconnects the client if this storage owns one
func (s *Storage) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

// Ensure Storage implements the interface
var _ storage.ProfileStore = (*Storage)(nil)

func (s *Storage) SaveProfile(ctx context.Context, profile *model.Profile) error {
	doc := toDoc(profile)
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return model.ErrUsernameTaken
	}
	return err
}

func (s *Storage) GetProfile(ctx context.Context, id model.ProfileID) (*model.Profile, error) {
	return s.findOne(ctx, bson.M{"_id": string(id)})
}

func (s *Storage) GetProfileByUsername(ctx context.Context, username string) (*model.Profile, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *Storage) UpdatePosition(ctx context.Context, id model.ProfileID, pos model.Position) error {
	return s.set(ctx, id, bson.M{
		"last_position": positionDoc{X: pos.X, Y: pos.Y},
		"updated_at":    time.Now(),
	})
}

func (s *Storage) UpdateAppearance(ctx context.Context, id model.ProfileID, appearance model.Appearance) error {
	return s.set(ctx, id, bson.M{
		"appearance": toAppearanceDoc(appearance),
		"updated_at": time.Now(),
	})
}

func (s *Storage) findOne(ctx context.Context, filter bson.M) (*model.Profile, error) {
	var doc profileDoc
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrProfileNotFound
		}
		return nil, err
	}
	return fromDoc(&doc), nil
}

func (s *Storage) set(ctx context.Context, id model.ProfileID, fields bson.M) error {
	result, err := s.coll.UpdateOne(ctx, bson.M{"_id": string(id)}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return model.ErrProfileNotFound
	}
	return nil
}

func toAppearanceDoc(a model.Appearance) appearanceDoc {
	return appearanceDoc{
		SkinColor:  a.SkinColor,
		HairStyle:  a.HairStyle,
		HairColor:  a.HairColor,
		ShirtColor: a.ShirtColor,
		PantsColor: a.PantsColor,
		HatStyle:   a.HatStyle,
	}
}

func toDoc(p *model.Profile) *profileDoc {
	doc := &profileDoc{
		ID:           string(p.ID),
		Username:     p.Username,
		DisplayName:  p.DisplayName,
		PasswordHash: p.PasswordHash,
		Appearance:   toAppearanceDoc(p.Appearance),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if p.LastPosition != nil {
		doc.LastPosition = &positionDoc{X: p.LastPosition.X, Y: p.LastPosition.Y}
	}
	return doc
}

func fromDoc(d *profileDoc) *model.Profile {
	p := &model.Profile{
		ID:           model.ProfileID(d.ID),
		Username:     d.Username,
		DisplayName:  d.DisplayName,
		PasswordHash: d.PasswordHash,
		Appearance: model.Appearance{
			SkinColor:  d.Appearance.SkinColor,
			HairStyle:  d.Appearance.HairStyle,
			HairColor:  d.Appearance.HairColor,
			ShirtColor: d.Appearance.ShirtColor,
			PantsColor: d.Appearance.PantsColor,
			HatStyle:   d.Appearance.HatStyle,
		},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.LastPosition != nil {
		p.LastPosition = &model.Position{X: d.LastPosition.X, Y: d.LastPosition.Y}
	}
	return p
}
