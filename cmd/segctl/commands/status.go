package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dqtools/segments/pkg/database"
	"github.com/dqtools/segments/pkg/redis"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check backing-service connectivity",
	Long: `Check connectivity to the segment store and cache.

This command:
- loads DATABASE_URL from config
- pings the segment database
- shows connection pool statistics
- reports whether the Redis cache is reachable

Example:
  segctl status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	fmt.Println("database: ok")

	stats := db.Stats()
	fmt.Println("  pool:")
	fmt.Printf("    max connections:      %d\n", stats.MaxConns)
	fmt.Printf("    total connections:    %d\n", stats.TotalConns)
	fmt.Printf("    acquired connections: %d\n", stats.AcquiredConns)
	fmt.Printf("    idle connections:     %d\n", stats.IdleConns)
	fmt.Printf("    acquire count:        %d\n", stats.AcquireCount)

	rdb, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()

	if rdb.Enabled() {
		fmt.Println("redis: ok")
	} else {
		fmt.Println("redis: disabled")
	}

	return nil
}
