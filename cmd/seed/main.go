// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev tenant already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	ccdomain "tenantauth/internal/contactchannel/domain"
	ccrepo "tenantauth/internal/contactchannel/repository"
	"tenantauth/internal/config"
	"tenantauth/internal/db"
	"tenantauth/internal/security"
	tenantdomain "tenantauth/internal/tenant/domain"
	tenantrepo "tenantauth/internal/tenant/repository"
	userdomain "tenantauth/internal/user/domain"
	userrepo "tenantauth/internal/user/repository"
)

const (
	devTenantID  = "dev-tenant-001"
	devUserID    = "dev-user-001"
	devChannelID = "dev-channel-001"
	devUserEmail = "dev@example.com"
	devPassword  = "password123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	tenants := tenantrepo.NewPostgresRepository(conn)

	existing, err := tenants.GetByID(ctx, devTenantID)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (dev tenant exists). Skipping.")
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()

	if err := tenants.Create(ctx, &tenantdomain.Tenant{
		ID:              devTenantID,
		DisplayName:     "Acme Dev",
		TrustedDomains:  []string{"http://localhost:3000"},
		AllowLocalhost:  true,
		OTPEnabled:      true,
		PasswordEnabled: true,
		PasskeyEnabled:  true,
		SignUpEnabled:   true,
		CreatedAt:       now,
	}); err != nil {
		log.Fatalf("create tenant: %v", err)
	}

	if err := userrepo.NewPostgresRepository(conn).Create(ctx, &userdomain.User{
		ID:             devUserID,
		TenantID:       devTenantID,
		PrimaryEmail:   devUserEmail,
		PasswordHash:   passwordHash,
		OTPAuthEnabled: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}); err != nil {
		log.Fatalf("create dev user: %v", err)
	}

	if err := ccrepo.NewPostgresRepository(conn).Create(ctx, &ccdomain.ContactChannel{
		ID:          devChannelID,
		TenantID:    devTenantID,
		UserID:      devUserID,
		Type:        ccdomain.ChannelTypeEmail,
		Value:       devUserEmail,
		IsVerified:  true,
		UsedForAuth: true,
		CreatedAt:   now,
	}); err != nil {
		log.Fatalf("create contact channel: %v", err)
	}

	log.Println("Seed completed successfully.")
	fmt.Printf("Tenant: %s\n", devTenantID)
	fmt.Printf("Dev login: %s / %s\n", devUserEmail, devPassword)
}
