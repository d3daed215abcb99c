package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/dqtools/segments/internal/api/stream"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor URL",
	Short: "Follow a live segment stream",
	Long: `Connect to a running segment API server and print every published
flag as it arrives.

Example:
  segctl monitor ws://localhost:8090/api/streams/segments`,
	Args: cobra.ExactArgs(1),
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	url := args[0]

	conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), url, nil)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", url, err)
	}
	defer conn.Close()

	fmt.Printf("connected to %s\n", url)

	updates := make(chan stream.Update)
	errs := make(chan error, 1)
	go func() {
		for {
			var update stream.Update
			if err := conn.ReadJSON(&update); err != nil {
				errs <- err
				return
			}
			updates <- update
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case update := <-updates:
			fmt.Printf("%s: %d known, %d active\n",
				update.Name, len(update.Known), len(update.Active))
			for _, seg := range update.Active {
				fmt.Printf("  %s\n", seg)
			}
		case err := <-errs:
			return fmt.Errorf("stream closed: %w", err)
		case <-quit:
			fmt.Println("disconnected")
			return nil
		}
	}
}
