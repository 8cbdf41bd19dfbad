package main

import (
	"strings"

	"github.com/matsen/citegraph/internal/storage"
	"github.com/spf13/cobra"
)

func init() {
	addSessionFlags(topicListCmd, false)
	addSessionFlags(topicCreateCmd, false)
	topicCmd.AddCommand(topicListCmd, topicCreateCmd)
	rootCmd.AddCommand(topicCmd)
}

var topicCmd = &cobra.Command{
	Use:   "topic",
	Short: "Manage topics",
	Long: `Each topic holds an independent citation graph. The same paper may
appear in several topics.`,
}

var topicListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your topics",
	Args:  cobra.NoArgs,
	RunE:  runTopicList,
}

func runTopicList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, u := mustAuthenticate(ctx)
	defer db.Close()

	topics, err := db.ListTopics(ctx, u.ID)
	exitOnError(err, "listing topics")
	if topics == nil {
		topics = []storage.Topic{}
	}

	if humanOutput {
		if len(topics) == 0 {
			outputHuman("No topics yet\n")
		}
		for _, t := range topics {
			outputHuman("%s\n", t.Name)
		}
		return nil
	}
	return outputJSON(topics)
}

var topicCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a topic",
	Args:  cobra.ExactArgs(1),
	RunE:  runTopicCreate,
}

func runTopicCreate(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	if name == "" {
		exitWithError(ExitDataError, "topic name is required")
	}

	ctx := cmd.Context()
	db, u := mustAuthenticate(ctx)
	defer db.Close()

	t, err := db.CreateTopic(ctx, u.ID, name)
	exitOnError(err, "creating topic %q", name)

	if humanOutput {
		outputHuman("Created topic %s\n", t.Name)
		return nil
	}
	return outputJSON(t)
}
