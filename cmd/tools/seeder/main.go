package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// Development seeder: a couple of accounts, a small catalog and a few
// discount rules so the API is usable immediately after migrate.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	seedUsers(ctx, pool)
	seedProducts(ctx, pool)
	seedDiscounts(ctx, pool)

	log.Println("seeding completed")
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool) {
	users := []struct {
		Name     string
		Email    string
		Password string
		Roles    []string
	}{
		{"Admin", "admin@feedspring.dev", "admin-password", []string{"admin", "customer"}},
		{"Casey Customer", "casey@example.com", "customer-password", []string{"customer"}},
	}
	for _, u := range users {
		hash, err := argon2id.CreateHash(u.Password, argon2id.DefaultParams)
		if err != nil {
			log.Fatalf("hash password for %s: %v", u.Email, err)
		}
		_, err = pool.Exec(ctx,
			`INSERT INTO users (name, email, password_hash, roles)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (email) DO NOTHING`,
			u.Name, u.Email, hash, u.Roles)
		if err != nil {
			log.Fatalf("seed user %s: %v", u.Email, err)
		}
	}
	log.Printf("seeded %d users", len(users))
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool) {
	products := []struct {
		Title    string
		Slug     string
		Price    int64
		Autoship bool
		Stock    int64
	}{
		{"Premium Dog Food 12kg", "premium-dog-food-12kg", 100_000, true, 40},
		{"Cat Litter 10L", "cat-litter-10l", 50_000, true, 60},
		{"Rope Toy", "rope-toy", 12_000, false, 120},
		{"Ceramic Bowl", "ceramic-bowl", 30_000, false, 25},
	}
	for _, p := range products {
		_, err := pool.Exec(ctx,
			`INSERT INTO products (title, slug, base_price, autoship_eligible, stock)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (slug) DO NOTHING`,
			p.Title, p.Slug, p.Price, p.Autoship, p.Stock)
		if err != nil {
			log.Fatalf("seed product %s: %v", p.Slug, err)
		}
	}
	log.Printf("seeded %d products", len(products))
}

func seedDiscounts(ctx context.Context, pool *pgxpool.Pool) {
	rules := []struct {
		Name   string
		Kind   string
		Type   string
		Value  int64
		Policy string
		Global bool
	}{
		{"Site-wide 10%", "promo", "percentage", 10, "stackable", true},
		{"Autoship 5%", "autoship", "percentage", 5, "stackable", true},
	}
	for _, r := range rules {
		_, err := pool.Exec(ctx,
			`INSERT INTO discounts (name, kind, discount_type, value, active, stack_policy, applies_to_all_products)
			 VALUES ($1, $2, $3, $4, true, $5, $6)
			 ON CONFLICT DO NOTHING`,
			r.Name, r.Kind, r.Type, r.Value, r.Policy, r.Global)
		if err != nil {
			log.Fatalf("seed discount %s: %v", r.Name, err)
		}
	}
	log.Printf("seeded %d discount rules", len(rules))
}
