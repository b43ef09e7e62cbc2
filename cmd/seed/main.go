package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/HammerMeetNail/giftcircle/internal/config"
	"github.com/HammerMeetNail/giftcircle/internal/database"
	"github.com/HammerMeetNail/giftcircle/internal/logging"
	"github.com/HammerMeetNail/giftcircle/internal/models"
	"github.com/HammerMeetNail/giftcircle/internal/services"
	"github.com/HammerMeetNail/giftcircle/internal/storage"
)

const seedPassword = "Password123"

type seedUser struct {
	username string
	email    string
	name     string
	items    []models.ItemCreate
	wishes   []models.WishCreate
}

func ptr(s string) *string { return &s }

var seedUsers = []seedUser{
	{
		username: "emma",
		email:    "emma@example.com",
		name:     "Emma Johnson",
		items: []models.ItemCreate{
			{Title: "Bread Maker", Description: ptr("Barely used, makes a great loaf."), Category: "Kitchen", Condition: models.ConditionLikeNew},
			{Title: "Yoga Mat", Category: "Fitness", Condition: models.ConditionGood},
		},
		wishes: []models.WishCreate{
			{Title: "Board Games", Description: ptr("Anything for 4+ players."), Category: "Games", Priority: models.PriorityMedium},
		},
	},
	{
		username: "marcus",
		email:    "marcus@example.com",
		name:     "Marcus Lee",
		items: []models.ItemCreate{
			{Title: "Road Bike Helmet", Category: "Sports", Condition: models.ConditionGood},
		},
		wishes: []models.WishCreate{
			{Title: "Camping Tent", Description: ptr("Two person tent for a summer trip."), Category: "Outdoors", Priority: models.PriorityHigh},
		},
	},
	{
		username: "aisha",
		email:    "aisha@example.com",
		name:     "Aisha Patel",
		items: []models.ItemCreate{
			{Title: "Children's Books", Description: ptr("A box of picture books."), Category: "Books", Condition: models.ConditionFair},
		},
		wishes: []models.WishCreate{
			{Title: "Sewing Machine", Category: "Crafts", Priority: models.PriorityLow},
		},
	},
}

func main() {
	if err := run(); err != nil {
		logging.Error("Seed failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	logger := logging.New()
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Could not load .env", map[string]interface{}{"error": err.Error()})
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := database.NewPostgresDB(cfg.Database.DSN(), database.PoolOptions{MaxConns: 4})
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(cfg.Database.DSN(), "migrations")
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	_ = migrator.Close()

	local, err := storage.NewLocalBackend(cfg.Upload.Dir, "/uploads")
	if err != nil {
		return err
	}

	dbAdapter := services.NewPoolAdapter(db.Pool)
	tokens := services.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.JWTIssuer)
	friends := services.NewFriendService(dbAdapter)
	s := &seeder{
		auth:    services.NewAuthService(dbAdapter, tokens, cfg.Auth.BcryptCost),
		friends: friends,
		items:   services.NewItemService(dbAdapter, friends, storage.NewManager(storage.NewImageProcessor(cfg.Upload.MaxFileSize), local)),
		wishes:  services.NewWishService(dbAdapter, friends),
		logger:  logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	return s.seed(ctx, seedUsers)
}

type seeder struct {
	auth    services.AuthServiceInterface
	friends services.FriendServiceInterface
	items   services.ItemServiceInterface
	wishes  services.WishServiceInterface
	logger  *logging.Logger
}

func (s *seeder) seed(ctx context.Context, users []seedUser) error {
	ids := make([]uuid.UUID, len(users))
	for i, u := range users {
		user, err := s.ensureUser(ctx, u)
		if err != nil {
			return fmt.Errorf("seeding user %s: %w", u.username, err)
		}
		ids[i] = user.ID
		if err := s.ensureContent(ctx, user.ID, u); err != nil {
			return fmt.Errorf("seeding content for %s: %w", u.username, err)
		}
	}

	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			if err := s.ensureFriends(ctx, ids[i], ids[j]); err != nil {
				return fmt.Errorf("connecting %s and %s: %w", users[i].username, users[j].username, err)
			}
		}
	}

	s.logger.Info("Seed complete", map[string]interface{}{"users": len(users)})
	return nil
}

// ensureUser registers u, or logs in when a previous run already created it.
func (s *seeder) ensureUser(ctx context.Context, u seedUser) (*models.User, error) {
	result, err := s.auth.Register(ctx, services.RegisterInput{
		Username: u.username,
		Email:    u.email,
		Password: seedPassword,
		Name:     u.name,
	})
	if errors.Is(err, services.ErrEmailTaken) || errors.Is(err, services.ErrUsernameTaken) {
		result, err = s.auth.Login(ctx, u.email, seedPassword)
	}
	if err != nil {
		return nil, err
	}
	return result.User, nil
}

// ensureContent only adds items and wishes for users that have none.
func (s *seeder) ensureContent(ctx context.Context, userID uuid.UUID, u seedUser) error {
	existing, err := s.items.GetMyItems(ctx, userID)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		for _, item := range u.items {
			if _, err := s.items.Create(ctx, userID, item); err != nil {
				return err
			}
		}
	}

	wishes, err := s.wishes.GetMyWishes(ctx, userID)
	if err != nil {
		return err
	}
	if len(wishes) == 0 {
		for _, wish := range u.wishes {
			if _, err := s.wishes.Create(ctx, userID, wish); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *seeder) ensureFriends(ctx context.Context, requester, addressee uuid.UUID) error {
	request, err := s.friends.SendRequest(ctx, requester, addressee)
	switch {
	case errors.Is(err, services.ErrAlreadyFriends):
		return nil
	case errors.Is(err, services.ErrRequestAlreadySent):
		request, err = s.findPending(ctx, requester, addressee)
		if err != nil {
			return err
		}
	case err != nil:
		return err
	}

	acceptor := addressee
	if request.AddresseeID != addressee {
		acceptor = requester
	}
	_, err = s.friends.AcceptRequest(ctx, request.ID, acceptor)
	return err
}

func (s *seeder) findPending(ctx context.Context, a, b uuid.UUID) (*models.FriendshipWithUser, error) {
	for _, who := range []uuid.UUID{a, b} {
		pending, err := s.friends.GetPendingRequests(ctx, who)
		if err != nil {
			return nil, err
		}
		for i := range pending {
			if pending[i].Involves(a) && pending[i].Involves(b) {
				return &pending[i], nil
			}
		}
	}
	return nil, errors.New("pending request not found")
}
