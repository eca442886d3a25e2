package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foxzi/journey/internal/subscriber"
)

var broadcastCmd = &cobra.Command{
	Use:   "broadcast <newsletter|waitlist> <post-id>",
	Short: "Send a post notification to every active subscriber",
	Args:  cobra.ExactArgs(2),
	RunE:  runBroadcast,
}

func init() {
	rootCmd.AddCommand(broadcastCmd)
}

func runBroadcast(cmd *cobra.Command, args []string) error {
	list, err := subscriber.ParseList(args[0])
	if err != nil {
		return err
	}

	svc, cleanup, err := openServices(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := svc.Broadcaster.Broadcast(cmd.Context(), list, args[1])
	if err != nil {
		return err
	}

	fmt.Printf("Broadcast of %s to %s\n", res.PostID, list)
	fmt.Printf("  Attempted: %d\n", res.Attempted)
	fmt.Printf("  Succeeded: %d\n", res.Succeeded)
	fmt.Printf("  Failed:    %d\n", res.Failed)
	for _, f := range res.Failures() {
		fmt.Printf("    %s: %v\n", f.Email, f.Err)
	}

	if res.Failed > 0 {
		return fmt.Errorf("%d of %d sends failed", res.Failed, res.Attempted)
	}
	return nil
}
