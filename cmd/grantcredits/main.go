package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"storyreel-server/internal/adapter/repo"
	"storyreel-server/internal/domain"
	"storyreel-server/internal/infra"
)

func main() {
	var (
		idFlag     string
		emailFlag  string
		amountFlag int
		roleFlag   string
	)

	flag.StringVar(&idFlag, "id", "", "user ID to update (UUID)")
	flag.StringVar(&emailFlag, "email", "", "user email to update")
	flag.IntVar(&amountFlag, "amount", 0, "credits to add (negative to deduct)")
	flag.StringVar(&roleFlag, "role", "", "optionally set the account role (user, admin)")
	flag.Parse()

	userID := strings.TrimSpace(idFlag)
	email := strings.TrimSpace(emailFlag)
	role := strings.TrimSpace(strings.ToLower(roleFlag))

	if userID == "" && email == "" {
		exitWithError(errors.New("either -id or -email must be provided"))
	}
	if amountFlag == 0 && role == "" {
		exitWithError(errors.New("nothing to do: provide -amount and/or -role"))
	}
	switch role {
	case "", "user", "admin":
	default:
		exitWithError(fmt.Errorf("unsupported role %q", roleFlag))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "grantcredits").Logger()
	accounts := repo.NewAccountRepository(infra.NewSQLRunner(pool, logger))

	if amountFlag != 0 {
		grantCtx, cancelGrant := context.WithTimeout(context.Background(), 5*time.Second)
		summary, err := accounts.GrantCredits(grantCtx, userID, email, amountFlag)
		cancelGrant()
		if err != nil {
			exitWithError(fmt.Errorf("failed to grant credits: %w", err))
		}
		fmt.Printf("granted %d credits to %s (%s): balance now %d\n", amountFlag, summary.Email, summary.ID, summary.Credits)
	}

	if role != "" {
		roleCtx, cancelRole := context.WithTimeout(context.Background(), 5*time.Second)
		summary, err := accounts.SetRole(roleCtx, userID, email, domain.UserRole(role))
		cancelRole()
		if err != nil {
			exitWithError(fmt.Errorf("failed to set role: %w", err))
		}
		fmt.Printf("set role %s for %s (%s)\n", summary.Role, summary.Email, summary.ID)
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
