package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sheetstack/adminhub/db"
	"github.com/sheetstack/adminhub/server/auth"
	"github.com/sheetstack/adminhub/types"
)

var mw *auth.Middleware
var adminUser types.User
var regularUser types.User

func TestMain(m *testing.M) {
	viper.SetConfigName("config_test")
	viper.AddConfigPath("../../")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal("Error reading config file: " + err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(viper.GetString("mongodbConn")))
	if err != nil {
		log.Fatal(err)
	}
	dbSvc := db.NewService(client)
	mw = auth.NewMiddleware(dbSvc, log.WithField("origin", "auth"), nil)

	users := client.Database("adminhub").Collection("users")
	users.DeleteMany(context.TODO(), bson.M{})
	adminUser = types.User{
		ID:        primitive.NewObjectID(),
		Username:  "boss",
		Email:     "boss@example.com",
		Role:      types.RoleAdmin,
		CreatedAt: time.Now(),
	}
	regularUser = types.User{
		ID:        primitive.NewObjectID(),
		Username:  "dana",
		Email:     "dana@example.com",
		Role:      types.RoleUser,
		CreatedAt: time.Now(),
	}
	if _, err := users.InsertOne(context.TODO(), adminUser); err != nil {
		log.Fatal(err)
	}
	if _, err := users.InsertOne(context.TODO(), regularUser); err != nil {
		log.Fatal(err)
	}

	m.Run()
}

func signToken(t *testing.T, userID primitive.ObjectID) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": userID.Hex(),
		"exp": time.Now().Add(20 * time.Minute).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(viper.GetString("jwtTokenSecret")))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func callerEcho(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.CallerFrom(r.Context()); !ok {
			t.Error("handler ran without a caller on the context")
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateMissingToken(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/admin/requests", nil)
	if err != nil {
		t.Fatal(err)
	}
	rr := httptest.NewRecorder()
	mw.Authenticate(callerEcho(t)).ServeHTTP(rr, req)
	if status := rr.Code; status == http.StatusOK {
		t.Error("request without a token reached the handler")
	}
}

func TestAuthenticateUnknownSubject(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/admin/requests", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+signToken(t, primitive.NewObjectID()))
	rr := httptest.NewRecorder()
	mw.Authenticate(callerEcho(t)).ServeHTTP(rr, req)
	if status := rr.Code; status != http.StatusUnauthorized {
		t.Errorf("middleware returned wrong status code: got %v want %v",
			status, http.StatusUnauthorized)
	}
}

func TestAuthenticateResolvesCaller(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/admin/requests", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+signToken(t, regularUser.ID))
	rr := httptest.NewRecorder()
	mw.Authenticate(callerEcho(t)).ServeHTTP(rr, req)
	if status := rr.Code; status != http.StatusOK {
		t.Errorf("middleware returned wrong status code: got %v want %v",
			status, http.StatusOK)
	}
}

func TestRequireAdminBlocksRegularUser(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/admin/requests", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+signToken(t, regularUser.ID))
	rr := httptest.NewRecorder()
	mw.Authenticate(mw.RequireAdmin(callerEcho(t))).ServeHTTP(rr, req)
	if status := rr.Code; status != http.StatusForbidden {
		t.Errorf("middleware returned wrong status code: got %v want %v",
			status, http.StatusForbidden)
	}
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/admin/requests", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+signToken(t, adminUser.ID))
	rr := httptest.NewRecorder()
	mw.Authenticate(mw.RequireAdmin(callerEcho(t))).ServeHTTP(rr, req)
	if status := rr.Code; status != http.StatusOK {
		t.Errorf("middleware returned wrong status code: got %v want %v",
			status, http.StatusOK)
	}
}
