package databases

// go generate: mockery --name ComplaintDatabase

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/civicpulse/complaints-api/models"
)

const complaintName = "complaints"

// ErrNotFound is returned when no document matches the given id, or the id is not a
// valid object id
var ErrNotFound = errors.New("document not found")

// ComplaintDatabase contains the methods to use with the complaint database
type ComplaintDatabase interface {
	FindByID(ctx context.Context, id string) (*models.Complaint, error)
	Find(ctx context.Context, filter models.ComplaintFilter, limit, page int) ([]models.Complaint, error)
	CountDocuments(ctx context.Context) (int64, error)
	InsertOne(ctx context.Context, complaint models.Complaint) (*models.Complaint, error)
	AtomicUpdate(ctx context.Context, id string, update models.ComplaintUpdate) (*models.Complaint, error)
}

type complaintDatabase struct {
	db DatabaseHelper
}

// NewComplaintDatabase initializes a new instance of complaint database with the provided db connection
func NewComplaintDatabase(db DatabaseHelper) ComplaintDatabase {
	return &complaintDatabase{
		db: db,
	}
}

func (c *complaintDatabase) FindByID(ctx context.Context, id string) (*models.Complaint, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	complaint := &models.Complaint{}
	err = c.db.Collection(complaintName).FindOne(ctx, bson.M{"_id": oid}).Decode(&complaint)
	if err != nil {
		return nil, notFoundOr(err, "failed to find complaint")
	}
	return complaint, nil
}

func (c *complaintDatabase) Find(ctx context.Context, filter models.ComplaintFilter, limit, page int) ([]models.Complaint, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		newMongoPaginate(limit, page).apply(opts)
	}

	cr, err := c.db.Collection(complaintName).Find(ctx, listFilter(filter), opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list complaints")
	}
	var complaints []models.Complaint
	if err = cr.Decode(&complaints); err != nil {
		return nil, errors.Wrap(err, "failed to decode complaints")
	}
	return complaints, nil
}

func (c *complaintDatabase) CountDocuments(ctx context.Context) (int64, error) {
	count, err := c.db.Collection(complaintName).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, errors.Wrap(err, "failed to count complaints")
	}
	return count, nil
}

func (c *complaintDatabase) InsertOne(ctx context.Context, complaint models.Complaint) (*models.Complaint, error) {
	if complaint.ID.IsZero() {
		complaint.ID = primitive.NewObjectID()
	}
	if complaint.Comments == nil {
		complaint.Comments = []models.Comment{}
	}
	if _, err := c.db.Collection(complaintName).InsertOne(ctx, complaint); err != nil {
		return nil, errors.Wrap(err, "failed to insert complaint")
	}
	return &complaint, nil
}

// AtomicUpdate applies update to the complaint with the given id in a single
// findOneAndUpdate and returns the document after the change. ErrNotFound is returned
// when the id is unknown or one of the update guards does not hold.
func (c *complaintDatabase) AtomicUpdate(ctx context.Context, id string, update models.ComplaintUpdate) (*models.Complaint, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var change interface{}
	if update.LikesDelta < 0 || update.FacingDelta < 0 {
		change = updatePipeline(update)
	} else {
		change = updateDocument(update)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	complaint := &models.Complaint{}
	err = c.db.Collection(complaintName).FindOneAndUpdate(ctx, guardFilter(oid, update), change, opts).Decode(&complaint)
	if err != nil {
		return nil, notFoundOr(err, "failed to update complaint")
	}
	return complaint, nil
}

func listFilter(f models.ComplaintFilter) bson.M {
	filter := bson.M{}
	if f.Region != "" {
		filter["region"] = f.Region
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.AuthorID != "" {
		filter["userId"] = f.AuthorID
	}
	return filter
}

func guardFilter(oid primitive.ObjectID, u models.ComplaintUpdate) bson.M {
	filter := bson.M{"_id": oid}
	if u.AuthorID != "" {
		filter["userId"] = u.AuthorID
	}
	if len(u.FromStatuses) > 0 {
		filter["status"] = bson.M{"$in": u.FromStatuses}
	}
	if u.Version != nil {
		// documents written before versioning have no field; treat it as zero
		if *u.Version == 0 {
			filter["version"] = bson.M{"$in": bson.A{0, nil}}
		} else {
			filter["version"] = *u.Version
		}
	}
	return filter
}

// updateDocument renders u as an operator document. Used whenever no counter can go
// below zero.
func updateDocument(u models.ComplaintUpdate) bson.M {
	inc := bson.M{"version": 1}
	if u.LikesDelta != 0 {
		inc["likes"] = u.LikesDelta
	}
	if u.FacingDelta != 0 {
		inc["facingSameIssue"] = u.FacingDelta
	}

	set := bson.M{"updatedAt": u.UpdatedAt}
	if u.Status != "" {
		set["status"] = u.Status
	}
	if u.ProofImage != "" {
		set["proofImage"] = u.ProofImage
	}
	if u.ResolvedAt != nil {
		set["resolvedAt"] = *u.ResolvedAt
	}
	if u.VerifiedAt != nil {
		set["verifiedAt"] = *u.VerifiedAt
	}

	doc := bson.M{"$inc": inc, "$set": set}
	if u.ClearVerifiedAt && u.VerifiedAt == nil {
		doc["$unset"] = bson.M{"verifiedAt": ""}
	}
	if u.Comment != nil {
		doc["$push"] = bson.M{"comments": *u.Comment}
	}
	return doc
}

// updatePipeline renders u as an aggregation pipeline so decrements can be clamped at
// zero inside the same atomic write.
func updatePipeline(u models.ComplaintUpdate) mongo.Pipeline {
	set := bson.D{
		{Key: "likes", Value: clampedAdd("$likes", u.LikesDelta)},
		{Key: "facingSameIssue", Value: clampedAdd("$facingSameIssue", u.FacingDelta)},
		{Key: "version", Value: bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$version", 0}}, 1}}},
		{Key: "updatedAt", Value: u.UpdatedAt},
	}
	if u.Status != "" {
		set = append(set, bson.E{Key: "status", Value: bson.M{"$literal": u.Status}})
	}
	if u.ProofImage != "" {
		set = append(set, bson.E{Key: "proofImage", Value: bson.M{"$literal": u.ProofImage}})
	}
	if u.ResolvedAt != nil {
		set = append(set, bson.E{Key: "resolvedAt", Value: *u.ResolvedAt})
	}
	if u.VerifiedAt != nil {
		set = append(set, bson.E{Key: "verifiedAt", Value: *u.VerifiedAt})
	}
	if u.Comment != nil {
		set = append(set, bson.E{Key: "comments", Value: bson.M{"$concatArrays": bson.A{
			bson.M{"$ifNull": bson.A{"$comments", bson.A{}}},
			bson.A{bson.M{"$literal": *u.Comment}},
		}}})
	}

	pipeline := mongo.Pipeline{{{Key: "$set", Value: set}}}
	if u.ClearVerifiedAt && u.VerifiedAt == nil {
		pipeline = append(pipeline, bson.D{{Key: "$unset", Value: "verifiedAt"}})
	}
	return pipeline
}

func clampedAdd(field string, delta int64) bson.M {
	return bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{field, 0}}, delta}}}}
}

func notFoundOr(err error, message string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return errors.Wrap(err, message)
}
