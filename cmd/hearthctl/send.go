package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	"github.com/spf13/cobra"

	"github.com/hearth-labs/hearth/internal/alerting"
	"github.com/hearth-labs/hearth/internal/config"
	"github.com/hearth-labs/hearth/internal/control"
)

func newSendCmd() *cobra.Command {
	var project, topic string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Publish a control command to the supervisor",
		Long: `Publish a control command to the Pub/Sub topic the supervisor's command
subscription is attached to.

Examples:
  hearthctl send recover audio
  hearthctl send maintenance on
  hearthctl send check-health
  hearthctl send thresholds '{"criticalFPS":20}'
  hearthctl send configure '{"healthCheckInterval":"20s"}'`,
	}

	cmd.PersistentFlags().StringVar(&project, "project", envOr("PUBSUB_PROJECT_ID", ""), "Pub/Sub project ID")
	cmd.PersistentFlags().StringVar(&topic, "topic", envOr("PUBSUB_COMMANDS_TOPIC", ""), "command topic")

	publish := func(cmd *cobra.Command, c control.Command) error {
		if project == "" || topic == "" {
			return errors.New("--project and --topic are required")
		}
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		client, err := pubsub.NewClient(ctx, project)
		if err != nil {
			return fmt.Errorf("creating pubsub client: %w", err)
		}
		defer client.Close()

		publisher := client.Publisher(topic)
		defer publisher.Stop()

		id, err := publisher.Publish(ctx, &pubsub.Message{
			Data:       data,
			Attributes: map[string]string{"type": c.Type},
		}).Get(ctx)
		if err != nil {
			return fmt.Errorf("publishing %s command: %w", c.Type, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sent %s (message %s)\n", c.Type, id)
		return nil
	}

	for _, sub := range []struct {
		use   string
		short string
		args  cobra.PositionalArgs
	}{
		{"recover <component>", "Recover a component", cobra.ExactArgs(1)},
		{"maintenance <on|off>", "Enter or leave maintenance mode", cobra.ExactArgs(1)},
		{"check-health", "Run a health check pass now", cobra.NoArgs},
		{"thresholds <json>", "Patch alert thresholds", cobra.ExactArgs(1)},
		{"configure <json>", "Patch the runtime configuration", cobra.ExactArgs(1)},
	} {
		cmd.AddCommand(&cobra.Command{
			Use:   sub.use,
			Short: sub.short,
			Args:  sub.args,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := buildCommand(cmd.Name(), args)
				if err != nil {
					return err
				}
				return publish(cmd, c)
			},
		})
	}
	return cmd
}

// buildCommand maps a send subcommand and its arguments to a control command.
func buildCommand(name string, args []string) (control.Command, error) {
	switch name {
	case "recover":
		return control.Command{Type: control.CommandRecover, Component: args[0]}, nil

	case "maintenance":
		var enabled bool
		switch args[0] {
		case "on", "true":
			enabled = true
		case "off", "false":
		default:
			return control.Command{}, fmt.Errorf("maintenance takes on or off, got %q", args[0])
		}
		return control.Command{Type: control.CommandMaintenance, Enabled: &enabled}, nil

	case "check-health":
		return control.Command{Type: control.CommandCheckHealth}, nil

	case "thresholds":
		var patch alerting.ThresholdsPatch
		if err := json.Unmarshal([]byte(args[0]), &patch); err != nil {
			return control.Command{}, fmt.Errorf("parse thresholds: %w", err)
		}
		return control.Command{Type: control.CommandUpdateThresholds, Thresholds: &patch}, nil

	case "configure":
		var patch config.RuntimePatch
		if err := json.Unmarshal([]byte(args[0]), &patch); err != nil {
			return control.Command{}, fmt.Errorf("parse configuration: %w", err)
		}
		return control.Command{Type: control.CommandUpdateConfiguration, Configuration: &patch}, nil

	default:
		return control.Command{}, fmt.Errorf("unknown command %q", name)
	}
}
