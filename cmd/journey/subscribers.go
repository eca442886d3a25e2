package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/foxzi/journey/internal/subscriber"
)

var subscribersActiveOnly bool

var subscribersCmd = &cobra.Command{
	Use:   "subscribers",
	Short: "Subscriber commands",
}

var subscribersListCmd = &cobra.Command{
	Use:       "list <newsletter|waitlist>",
	Short:     "List the subscribers of a list",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(subscriber.Newsletter), string(subscriber.Waitlist)},
	RunE:      runSubscribersList,
}

var subscribersUnsubscribeCmd = &cobra.Command{
	Use:   "unsubscribe <newsletter|waitlist> <email>",
	Short: "Deactivate a subscriber",
	Args:  cobra.ExactArgs(2),
	RunE:  runSubscribersUnsubscribe,
}

func init() {
	subscribersListCmd.Flags().BoolVar(&subscribersActiveOnly, "active", false, "Only active subscribers")

	subscribersCmd.AddCommand(subscribersListCmd, subscribersUnsubscribeCmd)
	rootCmd.AddCommand(subscribersCmd)
}

func runSubscribersList(cmd *cobra.Command, args []string) error {
	list, err := subscriber.ParseList(args[0])
	if err != nil {
		return err
	}

	svc, cleanup, err := openServices(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	var subs []*subscriber.Subscriber
	if subscribersActiveOnly {
		subs, err = svc.Subscribers.ListActive(cmd.Context(), list)
	} else {
		subs, err = svc.Subscribers.ListAll(cmd.Context(), list)
	}
	if err != nil {
		return err
	}

	if len(subs) == 0 {
		fmt.Printf("No subscribers in %s\n", list)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EMAIL\tNAME\tLOCATION\tACTIVE\tSIGNED UP")
	active := 0
	for _, s := range subs {
		if s.Active {
			active++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n",
			s.Email,
			truncate(s.Name, 30),
			truncate(s.Location, 30),
			s.Active,
			s.CreatedAt.Format("2006-01-02"),
		)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d (%d active)\n", len(subs), active)
	return nil
}

func runSubscribersUnsubscribe(cmd *cobra.Command, args []string) error {
	list, err := subscriber.ParseList(args[0])
	if err != nil {
		return err
	}

	svc, cleanup, err := openServices(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	changed, err := svc.Subscribers.Unsubscribe(cmd.Context(), list, args[1])
	if err != nil {
		return err
	}
	if !changed {
		fmt.Printf("%s is not an active subscriber of %s\n", args[1], list)
		return nil
	}
	fmt.Printf("%s unsubscribed from %s\n", args[1], list)
	return nil
}
