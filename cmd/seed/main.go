// Package main seeds a workspace with sample inventory and prints a development token.
//
// Rows are written through the batch processor, so they carry the same
// timestamps and validation as rows pushed by a client.
//
// Usage:
//
//	DATA_DIR=~/Stockroom go run ./cmd/seed
//	DATA_DIR=~/Stockroom go run ./cmd/seed --workspace demo --user alice --ttl 72h
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/stockroomapp/stockroom-server/internal/auth"
	"github.com/stockroomapp/stockroom-server/internal/config"
	"github.com/stockroomapp/stockroom-server/internal/domain"
	"github.com/stockroomapp/stockroom-server/internal/id"
	"github.com/stockroomapp/stockroom-server/internal/logger"
	"github.com/stockroomapp/stockroom-server/internal/replay"
	"github.com/stockroomapp/stockroom-server/internal/service"
	"github.com/stockroomapp/stockroom-server/internal/store/sqlite"
	"github.com/stockroomapp/stockroom-server/internal/validation"
)

var (
	workspaceID = flag.String("workspace", "", "Workspace to seed (default: a new id)")
	userID      = flag.String("user", "seed-user", "User id embedded in the printed token")
	tokenTTL    = flag.Duration("ttl", 24*time.Hour, "Lifetime of the printed token")
)

type seeder struct {
	batch *service.BatchProcessor
	ws    string
	user  string
}

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(nil)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l := logger.New(logger.Config{Level: logger.ParseLevel("warn"), Environment: cfg.App.Environment})

	fmt.Printf("Opening database at: %s\n", cfg.Database.Path)

	st, err := sqlite.Open(cfg.Database.Path, l.Logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	cache, err := replay.Open("", 0, l.Logger)
	if err != nil {
		log.Fatalf("Failed to open replay cache: %v", err)
	}
	defer cache.Close()

	ws := *workspaceID
	if ws == "" {
		ws = id.MustGenerate("ws")
	}

	s := &seeder{
		batch: service.NewBatchProcessor(st, validation.New(), cache, service.SyncOptions{}, l.Logger),
		ws:    ws,
		user:  *userID,
	}

	ctx := context.Background()
	if err := s.run(ctx); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	keyHex := cfg.Auth.KeyHex
	if keyHex == "" {
		keyHex, err = auth.LoadOrGenerateKey(cfg.Database.DataDir)
		if err != nil {
			log.Fatalf("Failed to load auth key: %v", err)
		}
	}
	tokens, err := auth.NewTokenService(keyHex)
	if err != nil {
		log.Fatalf("Failed to create token service: %v", err)
	}
	token, err := tokens.Issue(ws, s.user, *tokenTTL)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}

	fmt.Printf("\nWorkspace: %s\n", ws)
	fmt.Printf("Token (valid %s):\n%s\n", *tokenTTL, token)
}

func (s *seeder) run(ctx context.Context) error {
	garage, err := s.create(ctx, domain.KindLocation, map[string]any{"name": "Garage", "short_code": "GAR"})
	if err != nil {
		return err
	}
	shelf, err := s.create(ctx, domain.KindLocation, map[string]any{"name": "Shelf A", "parent_location_id": garage})
	if err != nil {
		return err
	}
	bin, err := s.create(ctx, domain.KindContainer, map[string]any{"name": "Blue bin", "location_id": shelf, "capacity": "40L"})
	if err != nil {
		return err
	}
	tools, err := s.create(ctx, domain.KindCategory, map[string]any{"name": "Tools"})
	if err != nil {
		return err
	}

	items := []map[string]any{
		{"sku": "DRL-001", "name": "Cordless drill", "brand": "Makita", "category_id": tools, "is_insured": true},
		{"sku": "SAW-002", "name": "Jigsaw", "brand": "Bosch", "category_id": tools},
		{"sku": "LVL-003", "name": "Spirit level", "category_id": tools, "min_stock_level": 1},
	}
	var drillStock string
	for i, data := range items {
		itemID, err := s.create(ctx, domain.KindItem, data)
		if err != nil {
			return err
		}
		inv := map[string]any{
			"item_id":     itemID,
			"location_id": shelf,
			"quantity":    i + 1,
			"condition":   string(domain.ConditionGood),
		}
		if i == 0 {
			inv["container_id"] = bin
		}
		invID, err := s.create(ctx, domain.KindInventory, inv)
		if err != nil {
			return err
		}
		if i == 0 {
			drillStock = invID
		}
	}

	borrower, err := s.create(ctx, domain.KindBorrower, map[string]any{"name": "Sam Neighbour", "email": "sam@example.com"})
	if err != nil {
		return err
	}
	_, err = s.create(ctx, domain.KindLoan, map[string]any{
		"inventory_id": drillStock,
		"borrower_id":  borrower,
		"quantity":     1,
		"loaned_at":    domain.Now(),
		"due_date":     domain.Now().Add(14 * 24 * time.Hour),
	})
	return err
}

// create pushes a single-operation batch and returns the new row id.
func (s *seeder) create(ctx context.Context, kind domain.EntityKind, data map[string]any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	resp, err := s.batch.ProcessBatch(ctx, domain.BatchRequest{
		WorkspaceID: s.ws,
		UserID:      s.user,
		Operations: []domain.BatchOperation{{
			Operation:  domain.OperationCreate,
			EntityKind: string(kind),
			Data:       raw,
		}},
	})
	if err != nil {
		return "", err
	}
	res := resp.Results[0]
	if !res.Success {
		return "", fmt.Errorf("create %s: %s", kind, res.Error)
	}
	fmt.Printf("  created %-10s %s\n", kind, res.ID)
	return res.ID, nil
}
