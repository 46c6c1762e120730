package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"maildash/backend/internal/auth"
	"maildash/backend/internal/config"
	"maildash/backend/internal/domain"
	sqlstore "maildash/backend/internal/storage/sql"
)

// create-admin 在数据库里创建一个管理员账户，用于系统初始化。
func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: create-admin <alias> <password>")
		os.Exit(1)
	}

	alias := domain.NormalizeAlias(os.Args[1])
	password := os.Args[2]

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Database.DSN == "" {
		fmt.Println("MAILDASH_DATABASE_DSN is required: admin accounts must be persisted")
		os.Exit(1)
	}

	if err := domain.ValidateAlias(alias); err != nil {
		fmt.Printf("Invalid alias: %v\n", err)
		os.Exit(1)
	}
	if err := domain.ValidatePassword(password); err != nil {
		fmt.Printf("Invalid password: %v\n", err)
		os.Exit(1)
	}

	store, err := sqlstore.NewStore(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
	)
	if err != nil {
		fmt.Printf("Failed to connect database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	hashed, err := auth.HashPassword(password)
	if err != nil {
		fmt.Printf("Failed to hash password: %v\n", err)
		os.Exit(1)
	}

	account := &domain.Account{
		ID:           uuid.New().String(),
		Alias:        alias,
		Email:        alias + "@" + cfg.Mail.ApexDomain,
		PasswordHash: hashed,
		Role:         domain.RoleAdmin,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := store.CreateAccount(account); err != nil {
		fmt.Printf("Failed to create account: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Admin account created:")
	fmt.Printf("  ID:    %s\n", account.ID)
	fmt.Printf("  Alias: %s\n", account.Alias)
	fmt.Printf("  Email: %s\n", account.Email)
}
