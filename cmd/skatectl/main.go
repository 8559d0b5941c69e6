package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"skate_battle/internal/config"
	"skate_battle/internal/db"
	"skate_battle/internal/domain"
	"skate_battle/internal/game"
	"skate_battle/internal/logger"
	"skate_battle/internal/repository"
	"skate_battle/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var (
	cfg        *config.Config
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:           "skatectl",
	Short:         "Admin tool for S.K.A.T.E. battles",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		logger.Init(cfg.LogLevel, cfg.LogFormat == "json")
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	rootCmd.AddCommand(migrateCmd(), sweepCmd(), gameCmd(), auditCmd(), tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withPool открывает пул на время команды
func withPool(ctx context.Context, fn func(ctx context.Context, pool *pgxpool.Pool) error) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, pool)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded SQL migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
				n, err := db.Migrate(ctx, pool)
				if err != nil {
					return err
				}
				fmt.Printf("applied %d migration(s)\n", n)
				return nil
			})
		},
	}
}

func sweepCmd() *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Forfeit games whose turn deadline has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
				store := repository.NewGameRepository(pool)
				battles := service.NewBattleService(store, service.BattleConfig{
					Rules:       game.Rules{TurnWindow: cfg.TurnWindow, JoinWindow: cfg.JoinWindow},
					MaxAttempts: cfg.CommitMaxAttempts,
				})
				n, err := service.NewExpirySweeper(battles, store, cfg.SweepInterval, batch).SweepOnce(ctx)
				if err != nil {
					return err
				}
				service.NewAuditService(repository.NewAuditRepository(pool)).
					LogSystem(ctx, domain.AuditActionSweep, map[string]interface{}{"forfeited": n, "batch": batch})
				fmt.Printf("forfeited %d game(s)\n", n)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&batch, "batch", service.DefaultSweepBatch, "max games per pass")
	return cmd
}

func gameCmd() *cobra.Command {
	g := &cobra.Command{Use: "game", Short: "Inspect battles"}
	g.AddCommand(gameShowCmd(), gameHistoryCmd(), gameListCmd())
	return g
}

func gameShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a battle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
				g, err := repository.NewGameRepository(pool).Get(ctx, args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(os.Stdout, g)
				}
				renderGame(os.Stdout, g)
				return nil
			})
		},
	}
}

func gameHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show the turn log of a battle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
				h, err := repository.NewGameRepository(pool).History(ctx, args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(os.Stdout, h)
				}
				renderHistory(os.Stdout, h)
				return nil
			})
		},
	}
}

func gameListCmd() *cobra.Command {
	var (
		player string
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List battles of a player",
		RunE: func(cmd *cobra.Command, args []string) error {
			if player == "" {
				return fmt.Errorf("--player is required")
			}
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
				games, err := repository.NewGameRepository(pool).ListForPlayer(ctx, player, domain.GameStatus(status), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(os.Stdout, games)
				}
				renderGames(os.Stdout, games)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&player, "player", "", "player id")
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().IntVar(&limit, "limit", 50, "max rows")
	return cmd
}

func auditCmd() *cobra.Command {
	var (
		gameID string
		player string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show gateway audit records of a battle or a player",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (gameID == "") == (player == "") {
				return fmt.Errorf("exactly one of --game or --player is required")
			}
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
				repo := repository.NewAuditRepository(pool)
				var (
					logs []*domain.AuditLog
					err  error
				)
				if gameID != "" {
					logs, err = repo.GetByGameID(ctx, gameID, limit)
				} else {
					logs, err = repo.GetByPlayerID(ctx, player, limit)
				}
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(os.Stdout, logs)
				}
				renderAudit(os.Stdout, logs)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&gameID, "game", "", "battle id")
	cmd.Flags().StringVar(&player, "player", "", "player id")
	cmd.Flags().IntVar(&limit, "limit", 50, "max rows")
	return cmd
}

func tokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <player-id>",
		Short: "Issue a player JWT for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := service.InitJWT(cfg.JWTSecret); err != nil {
				return fmt.Errorf("JWT_SECRET: %w", err)
			}
			token, err := service.IssueJWT(args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
