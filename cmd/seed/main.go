// Package main provides a tool to seed the database with demo data.
//
// This creates a demo agent with a collection and buyer preferences so the
// API can be exercised without registering through the app.
//
// Usage:
//
//	DB_PATH=~/Nestfolio/data/nestfolio.db go run ./cmd/seed
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/nestfolio/nestfolio-server/internal/auth"
	"github.com/nestfolio/nestfolio-server/internal/domain"
	"github.com/nestfolio/nestfolio-server/internal/id"
	"github.com/nestfolio/nestfolio-server/internal/store/sqlite"
)

var (
	email    = flag.String("email", "demo@nestfolio.dev", "Demo agent email")
	password = flag.String("password", "demo-password-1", "Demo agent password")
	premium  = flag.Bool("premium", false, "Give the demo agent a premium plan")
)

func main() {
	flag.Parse()

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/Nestfolio/data/nestfolio.db")
	}

	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := sqlite.Open(dbPath, nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	agent, err := seedAgent(ctx, s)
	if err != nil {
		log.Fatalf("Failed to seed agent: %v", err)
	}

	collection, err := seedCollection(ctx, s, agent)
	if err != nil {
		log.Fatalf("Failed to seed collection: %v", err)
	}

	if err := seedPreferences(ctx, s, collection); err != nil {
		log.Fatalf("Failed to seed preferences: %v", err)
	}

	fmt.Printf("Seeded agent %s (%s) with collection %s\n", agent.ID, agent.Email, collection.ID)
	fmt.Printf("Login with %s / %s\n", *email, *password)
}

func seedAgent(ctx context.Context, s *sqlite.Store) (*domain.User, error) {
	if existing, err := s.GetUserByEmail(ctx, *email); err == nil {
		fmt.Printf("Agent %s already exists, reusing\n", existing.Email)
		return existing, nil
	}

	hash, err := auth.HashPassword(*password)
	if err != nil {
		return nil, err
	}

	plan := domain.PlanFree
	if *premium {
		plan = domain.PlanPremium
	}

	now := time.Now().UTC()
	agent := &domain.User{
		ID:           id.MustGenerate("usr"),
		Email:        *email,
		PasswordHash: hash,
		FirstName:    "Demo",
		LastName:     "Agent",
		State:        "MI",
		Brokerage:    "Nestfolio Demo Realty",
		Plan:         plan,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.CreateUser(ctx, agent); err != nil {
		return nil, err
	}
	return agent, nil
}

func seedCollection(ctx context.Context, s *sqlite.Store, agent *domain.User) (*domain.Collection, error) {
	token, err := id.ShareToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	collection := &domain.Collection{
		ID:           id.MustGenerate("col"),
		Name:         "Downtown buyers",
		Description:  "Seeded demo collection",
		OwnerID:      agent.ID,
		ShareToken:   token,
		Status:       domain.CollectionActive,
		VisitorName:  "Pat Sample",
		VisitorEmail: "pat@example.com",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.CreateCollection(ctx, collection); err != nil {
		return nil, err
	}
	return collection, nil
}

func seedPreferences(ctx context.Context, s *sqlite.Store, collection *domain.Collection) error {
	minBeds := 3
	minBaths := 2.0
	maxPrice := int64(450_000)

	now := time.Now().UTC()
	prefs := &domain.CollectionPreferences{
		ID:             id.MustGenerate("pref"),
		CollectionID:   collection.ID,
		MinBeds:        &minBeds,
		MinBaths:       &minBaths,
		MaxPrice:       &maxPrice,
		Cities:         []string{"Ann Arbor, MI"},
		IsSingleFamily: true,
		IsCondo:        true,
		Timeframe:      "1_3_MONTHS",
		VisitingReason: "BUYING_SOON",
		HasAgent:       "NO",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return s.CreatePreferences(ctx, prefs)
}
