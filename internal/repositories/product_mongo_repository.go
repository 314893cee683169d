package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"inventory/internal/apperrors"
	"inventory/internal/models"
)

// ProductsCollection is the MongoDB collection holding products.
const ProductsCollection = "products"

type productDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Type        string             `bson:"type"`
	SKU         string             `bson:"sku"`
	ImageURL    string             `bson:"image_url"`
	Description string             `bson:"description"`
	Quantity    int                `bson:"quantity"`
	Price       float64            `bson:"price"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func newProductDocument(p *models.Product) productDocument {
	return productDocument{
		Name:        p.Name,
		Type:        p.Type,
		SKU:         p.SKU,
		ImageURL:    p.ImageURL,
		Description: p.Description,
		Quantity:    p.Quantity,
		Price:       p.Price,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (d productDocument) model() models.Product {
	return models.Product{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Type:        d.Type,
		SKU:         d.SKU,
		ImageURL:    d.ImageURL,
		Description: d.Description,
		Quantity:    d.Quantity,
		Price:       d.Price,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// MongoProductRepository is a MongoDB implementation of ProductRepository.
// Identifiers are ObjectID hex strings.
type MongoProductRepository struct {
	coll *mongo.Collection
}

// NewMongoProductRepository creates a repository on db's products collection.
func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{
		coll: db.Collection(ProductsCollection),
	}
}

// Create inserts a new product document under a fresh ObjectID.
func (r *MongoProductRepository) Create(ctx context.Context, product *models.Product) error {
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	doc := newProductDocument(product)
	doc.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	product.ID = doc.ID.Hex()
	return nil
}

// List returns a page of products in _id order.
func (r *MongoProductRepository) List(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	products := make([]models.Product, 0)
	if filter.Limit <= 0 {
		return products, nil
	}

	query := bson.D{}
	if filter.SKU != "" {
		query = bson.D{{Key: "sku", Value: filter.SKU}}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(filter.Skip)).
		SetLimit(int64(filter.Limit))

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	for _, d := range docs {
		products = append(products, d.model())
	}
	return products, nil
}

// UpdateQuantity atomically sets the quantity of one document and returns it.
func (r *MongoProductRepository) UpdateQuantity(ctx context.Context, id string, quantity int) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.NewMalformedIdentifier(id, err)
	}

	update := bson.M{"$set": bson.M{
		"quantity":   quantity,
		"updated_at": time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc productDocument
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NewNotFound("product", id)
		}
		return nil, fmt.Errorf("failed to update product quantity: %w", err)
	}
	product := doc.model()
	return &product, nil
}
