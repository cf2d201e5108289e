// Command token mints a bearer token for operators and local testing.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/evacurves/store-backend/pkg/auth"
	"github.com/evacurves/store-backend/pkg/config"
	"github.com/evacurves/store-backend/pkg/enums"
	"github.com/evacurves/store-backend/pkg/logger"
)

func main() {
	userFlag := flag.String("user", "", "user id (default: random)")
	roleFlag := flag.String("role", string(enums.RoleAdmin), "token role: admin or customer")
	email := flag.String("email", "", "email claim")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "token", Output: os.Stderr, Format: "console"})
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}
	role, err := enums.ParseRole(*roleFlag)
	if err != nil {
		logg.Error(ctx, "invalid role", err)
		os.Exit(2)
	}
	userID := uuid.New()
	if *userFlag != "" {
		if userID, err = uuid.Parse(*userFlag); err != nil {
			logg.Error(ctx, "invalid user id", err)
			os.Exit(2)
		}
	}

	signer, err := auth.NewSigner(cfg.JWT)
	if err != nil {
		logg.Error(ctx, "invalid jwt config", err)
		os.Exit(1)
	}
	token, err := signer.Mint(time.Now(), auth.Identity{UserID: userID, Email: *email, Role: role})
	if err != nil {
		logg.Error(ctx, "mint token", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
