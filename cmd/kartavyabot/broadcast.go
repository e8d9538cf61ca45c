package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kartavyaai/kartavyabot/internal/broadcast"
	"github.com/kartavyaai/kartavyabot/internal/transport/whatsapp"
)

func newBroadcastCmd(load loadFunc) *cobra.Command {
	var (
		contactsFile string
		template     string
		interval     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "Send the greeting to every contact in the CSV file, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("contacts") {
				cfg.Bot.ContactsFile = contactsFile
			}
			if cmd.Flags().Changed("message") {
				cfg.Bot.BroadcastMessage = template
			}
			if cmd.Flags().Changed("interval") {
				cfg.Bot.BroadcastInterval = interval
			}
			if cfg.Bot.ContactsFile == "" {
				return errors.New("no contacts file, set bot.contacts_file or --contacts")
			}

			dir, err := loadContacts(cfg.Bot.ContactsFile)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			wa := whatsapp.New(cfg.WhatsApp)
			defer wa.Close()
			if err := wa.Connect(ctx); err != nil {
				return err
			}
			waitCtx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()
			if err := wa.WaitConnected(waitCtx); err != nil {
				return err
			}

			report, err := broadcast.Run(ctx, dir, wa, broadcast.Options{
				Template: cfg.Bot.BroadcastMessage,
				Interval: cfg.Bot.BroadcastInterval,
			})
			fmt.Fprintf(cmd.OutOrStdout(), "sent %d, failed %d\n", report.Sent, len(report.Failed))
			for _, phone := range report.Failed {
				fmt.Fprintf(cmd.OutOrStdout(), "  failed: %s\n", phone)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&contactsFile, "contacts", "", "CSV file with phone and name columns (overrides bot.contacts_file)")
	cmd.Flags().StringVar(&template, "message", "", "greeting template, {name} is replaced (overrides bot.broadcast_message)")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "pause between two sends (overrides bot.broadcast_interval)")
	return cmd
}
