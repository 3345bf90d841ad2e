package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mattermost/rocketchat-matrix-migrator/store"
)

// withRuntime wraps a command body with configuration loading, runtime
// setup and teardown.
func withRuntime(opts *options, fn func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := opts.loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		rt, err := newRuntime(ctx, cfg, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := fn(ctx, rt, cmd, args); err != nil {
			rt.logger.LogError("Command failed", "command", cmd.CommandPath(), "error", err.Error())
			return err
		}
		return nil
	}
}

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run the complete migration",
		Long: `Migrate imports users, then rooms, then messages, and finally runs the
reconciliation passes. Entities recorded in the mapping database are skipped,
so the command can be repeated after a failure.`,
		Args: cobra.NoArgs,
		RunE: withRuntime(opts, func(ctx context.Context, rt *runtime, cmd *cobra.Command, _ []string) error {
			if err := rt.migrator.Run(ctx, rt.export); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migration finished.")
			return nil
		}),
	}
}

func newImportCommand(opts *options) *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import a single entity kind",
		Long: `Import runs one stage of the migration. Stages depend on each other:
rooms need imported users and messages need imported rooms.`,
	}

	importCmd.AddCommand(
		&cobra.Command{
			Use:   "users",
			Short: "Register the exported users",
			Args:  cobra.NoArgs,
			RunE: withRuntime(opts, func(ctx context.Context, rt *runtime, cmd *cobra.Command, _ []string) error {
				users, err := rt.export.Users()
				if err != nil {
					return errors.Wrap(err, "failed to load users")
				}
				if err := rt.migrator.ImportUsers(ctx, users); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Processed %d users.\n", len(users))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "rooms",
			Short: "Create the exported rooms",
			Args:  cobra.NoArgs,
			RunE: withRuntime(opts, func(ctx context.Context, rt *runtime, cmd *cobra.Command, _ []string) error {
				rooms, err := rt.export.Rooms()
				if err != nil {
					return errors.Wrap(err, "failed to load rooms")
				}
				if err := rt.migrator.ImportRooms(ctx, rooms); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Processed %d rooms.\n", len(rooms))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "messages",
			Short: "Send the exported messages",
			Args:  cobra.NoArgs,
			RunE: withRuntime(opts, func(ctx context.Context, rt *runtime, cmd *cobra.Command, _ []string) error {
				messages, err := rt.export.Messages()
				if err != nil {
					return errors.Wrap(err, "failed to load messages")
				}
				if err := rt.migrator.ImportMessages(ctx, messages); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Processed %d messages.\n", len(messages))
				return nil
			}),
		},
	)
	return importCmd
}

func newReconcileCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run the post-import passes",
		Long: `Reconcile marks direct chats, restores pinned messages, removes members
that should not be in a room and marks every room as read for its members.`,
		Args: cobra.NoArgs,
		RunE: withRuntime(opts, func(ctx context.Context, rt *runtime, cmd *cobra.Command, _ []string) error {
			rooms, err := rt.export.Rooms()
			if err != nil {
				return errors.Wrap(err, "failed to load rooms")
			}
			messages, err := rt.export.Messages()
			if err != nil {
				return errors.Wrap(err, "failed to load messages")
			}
			if err := rt.migrator.Reconcile(ctx, rooms, messages); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Reconciliation finished.")
			return nil
		}),
	}
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show how many entities have been migrated",
		Args:  cobra.NoArgs,
		RunE: withRuntime(opts, func(ctx context.Context, rt *runtime, cmd *cobra.Command, _ []string) error {
			var out strings.Builder
			out.WriteString(fmt.Sprintf("Mapping database: %s\n", rt.store.Path()))
			for _, kind := range []store.Kind{store.KindUser, store.KindRoom, store.KindMessage} {
				mappings, err := rt.store.ListByKind(ctx, kind)
				if err != nil {
					return err
				}
				out.WriteString(fmt.Sprintf("- %ss: %d\n", kind, len(mappings)))
			}
			fmt.Fprint(cmd.OutOrStdout(), out.String())
			return nil
		}),
	}
}

func newWhoAmICommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Check the homeserver connection and admin token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.HomeserverURL == "" || cfg.AdminAccessToken == "" {
				return errors.New("homeserver URL and admin access token are required")
			}
			ctx := cmd.Context()

			rt, err := newConnection(ctx, cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Homeserver: %s\nAdmin: %s\nServer name: %s\n",
				cfg.HomeserverURL, rt.admin.UserID, rt.serverName)
			return nil
		},
	}
}
