package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sheetstack/adminhub/apperrors"
	"github.com/sheetstack/adminhub/types"
)

const dbName = "adminhub"

// Service represents struct that deals with database level operations
type Service struct {
	db *mongo.Client
}

// NewService creates a new mongoDb service that handles database level operations
func NewService(db *mongo.Client) *Service {
	return &Service{
		db: db,
	}
}

// Ping checks for db connection
func (s *Service) Ping() error {
	return s.db.Ping(context.TODO(), readpref.Primary())
}

func (s *Service) requests() *mongo.Collection {
	return s.db.Database(dbName).Collection("admin_requests")
}

func (s *Service) users() *mongo.Collection {
	return s.db.Database(dbName).Collection("users")
}

// EnsureIndexes creates the partial unique index that guarantees at most
// one pending admin request per user. With the index in place a losing
// racer on concurrent submissions gets a duplicate key error instead of
// a second pending document.
func (s *Service) EnsureIndexes() error {
	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"status": types.StatusPending}),
	}
	_, err := s.requests().Indexes().CreateOne(context.TODO(), indexModel)
	return err
}

// CreateRequest inserts a new pending adminRequest for the given user
func (s *Service) CreateRequest(newRequest types.AdminRequest) (types.AdminRequest, error) {
	newRequest.ID = primitive.NewObjectID()
	// Set initial request status and attach timestamp
	newRequest.Status = types.StatusPending
	newRequest.CreatedAt = time.Now()
	_, err := s.requests().InsertOne(context.TODO(), newRequest)
	if err != nil {
		if isDuplicateKey(err) {
			return types.AdminRequest{}, &apperrors.ConflictError{Msg: "You already have a pending admin request"}
		}
		return types.AdminRequest{}, err
	}
	return newRequest, nil
}

// GetRequests queries for adminRequests in db, newest created first
func (s *Service) GetRequests(filter interface{}) ([]types.AdminRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.requests().Find(context.TODO(), filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(context.TODO())

	requests := make([]types.AdminRequest, 0)
	for cur.Next(context.TODO()) {
		var request types.AdminRequest
		if err := cur.Decode(&request); err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, cur.Err()
}

// DecideRequest stamps the decision onto a still-pending request in one
// store operation. The status filter makes a second decision on the same
// request observe no document.
func (s *Service) DecideRequest(requestID primitive.ObjectID, status string, adminID primitive.ObjectID) (*types.AdminRequest, error) {
	after := options.After
	opt := options.FindOneAndUpdateOptions{
		ReturnDocument: &after,
	}
	filter := bson.M{"_id": requestID, "status": types.StatusPending}
	update := bson.M{"$set": bson.M{
		"status":      status,
		"processedBy": adminID,
		"processedAt": time.Now(),
	}}
	result := s.requests().FindOneAndUpdate(context.TODO(), filter, update, &opt)
	if result.Err() != nil {
		if result.Err() == mongo.ErrNoDocuments {
			return nil, &apperrors.NotFoundError{Msg: "Request not found or already processed"}
		}
		return nil, result.Err()
	}
	var updated types.AdminRequest
	if err := result.Decode(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// GetUsers queries for user accounts in db, newest created first
func (s *Service) GetUsers(filter interface{}) ([]types.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.users().Find(context.TODO(), filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(context.TODO())

	users := make([]types.User, 0)
	for cur.Next(context.TODO()) {
		var user types.User
		if err := cur.Decode(&user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, cur.Err()
}

// GetUserByID fetches a single user account
func (s *Service) GetUserByID(userID primitive.ObjectID) (*types.User, error) {
	result := s.users().FindOne(context.TODO(), bson.M{"_id": userID})
	if result.Err() != nil {
		if result.Err() == mongo.ErrNoDocuments {
			return nil, &apperrors.NotFoundError{Msg: "User not found"}
		}
		return nil, result.Err()
	}
	var user types.User
	if err := result.Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, &apperrors.NotFoundError{Msg: "User not found"}
		}
		return nil, err
	}
	return &user, nil
}

// PromoteUser sets the user's role to admin
func (s *Service) PromoteUser(userID primitive.ObjectID) error {
	res, err := s.users().UpdateOne(context.TODO(),
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"role": types.RoleAdmin}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return &apperrors.NotFoundError{Msg: "User not found"}
	}
	return nil
}

// UpdateUserStatus sets the user's account status
func (s *Service) UpdateUserStatus(userID primitive.ObjectID, status string) error {
	res, err := s.users().UpdateOne(context.TODO(),
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return &apperrors.NotFoundError{Msg: "User not found"}
	}
	return nil
}

func isDuplicateKey(err error) bool {
	writeErr, ok := err.(mongo.WriteException)
	if !ok {
		return false
	}
	for _, we := range writeErr.WriteErrors {
		if we.Code == 11000 {
			return true
		}
	}
	return false
}
