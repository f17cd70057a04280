package main

import (
	"errors"
	"fmt"

	"vocabbar/internal/app"
	"vocabbar/internal/draw"
	"vocabbar/internal/memorized"
	"vocabbar/internal/sheets"
	"vocabbar/internal/ui"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	flags := defaultFlags()

	root := &cobra.Command{
		Use:           "vocabbar",
		Short:         "Vocabulary flashcards drawn from a Google Sheet",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCardView(cmd, flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", flags.configPath, "bundled configuration file with API_KEY and SHEET_ID")
	root.PersistentFlags().StringVar(&flags.settingsPath, "settings", flags.settingsPath, "persisted settings file")

	root.AddCommand(
		newNextCommand(flags),
		newMemorizeCommand(flags),
		newMemorizedCommand(flags),
		newDailyCommand(flags),
		newSearchCommand(flags),
		newSheetCommand(flags),
		newStorageCommand(flags),
	)
	return root
}

func runCardView(cmd *cobra.Command, flags *globalFlags) error {
	prompter := ui.NewPrompter()
	a := initializeApp(cmd.Context(), flags, prompter)

	logFile, err := app.RedirectLogs(flags.logFilePath())
	if err != nil {
		return err
	}
	defer logFile.Close()
	stop := a.Orchestrator.Follow(cmd.Context(), a.Source)
	defer stop()

	return ui.Run(cmd.Context(), a.Orchestrator, a.Store, a.ConfigureSheet, prompter)
}

func linePrompter(cmd *cobra.Command) memorized.Prompter {
	return ui.NewLinePrompter(cmd.InOrStdin(), cmd.OutOrStdout())
}

func printCard(cmd *cobra.Command, snapshot draw.Snapshot) {
	fmt.Fprintln(cmd.OutOrStdout(), ui.RenderCard(snapshot))
}

func newNextCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Draw a random word that is not memorized yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := initializeApp(cmd.Context(), flags, linePrompter(cmd))
			snapshot := a.Orchestrator.Draw(cmd.Context())
			printCard(cmd, snapshot)
			return snapshot.Err
		},
	}
}

func newMemorizeCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "memorize [word]",
		Short: "Mark the current word, or the given word, as memorized",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := initializeApp(cmd.Context(), flags, linePrompter(cmd))

			if len(args) == 1 {
				if err := a.Store.MarkMemorized(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.RenderNotice(fmt.Sprintf("%q memorized", args[0])))
				return nil
			}

			current, _ := a.Orchestrator.Start(cmd.Context())
			if current.State != draw.WordReady {
				printCard(cmd, current)
				return current.Err
			}

			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderNotice(fmt.Sprintf("Memorizing %q", current.Entry.Word)))
			next, err := a.Orchestrator.Memorize(cmd.Context())
			printCard(cmd, next)
			if errors.Is(err, memorized.ErrPersistFailed) {
				return nil
			}
			return err
		},
	}
}

func newMemorizedCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "memorized",
		Short: "List memorized words",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := initializeApp(cmd.Context(), flags, linePrompter(cmd))
			for _, word := range a.Store.Words() {
				fmt.Fprintln(cmd.OutOrStdout(), word)
			}
			return nil
		},
	}
}

func newDailyCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "daily",
		Short: "Show the word of the day, pushing it to ntfy on the first run of a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := initializeApp(cmd.Context(), flags, linePrompter(cmd))
			snapshot, newDay := a.Orchestrator.Start(cmd.Context())
			printCard(cmd, snapshot)

			if newDay && snapshot.State == draw.WordReady && a.Notifier.Enabled() {
				if err := a.Notifier.NotifyWord(cmd.Context(), snapshot.Entry); err != nil {
					log.Warn().Err(err).Str("word", snapshot.Entry.Word).Msg("Failed to push word of the day")
				}
			}
			return snapshot.Err
		},
	}
}

func newSearchCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "search [word]",
		Short: "Print a web search link for a word, or the current word",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			word := ""
			if len(args) == 1 {
				word = args[0]
			} else {
				a := initializeApp(cmd.Context(), flags, linePrompter(cmd))
				snapshot, _ := a.Orchestrator.Start(cmd.Context())
				if snapshot.State != draw.WordReady {
					printCard(cmd, snapshot)
					return snapshot.Err
				}
				word = snapshot.Entry.Word
			}
			fmt.Fprintln(cmd.OutOrStdout(), sheets.SearchURL(word))
			return nil
		},
	}
}

func newSheetCommand(flags *globalFlags) *cobra.Command {
	sheet := &cobra.Command{
		Use:   "sheet",
		Short: "Show or change the Google Sheet words are drawn from",
	}

	sheet.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the sheet in use",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a := initializeApp(cmd.Context(), flags, linePrompter(cmd))
				source := "bundled"
				if a.Source.Overridden() {
					source = "override"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", a.Source.SheetID(), source)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <link>",
			Short: "Use the sheet behind a Google Sheets link after checking its columns",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a := initializeApp(cmd.Context(), flags, linePrompter(cmd))
				id, err := a.ConfigureSheet(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.RenderNotice("Now drawing words from sheet "+id))
				return nil
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Go back to the bundled sheet",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a := initializeApp(cmd.Context(), flags, linePrompter(cmd))
				if err := a.Source.ClearOverride(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.RenderNotice("Now drawing words from sheet "+a.Source.SheetID()))
				return nil
			},
		},
		&cobra.Command{
			Use:   "template",
			Short: "Print the link for copying the template sheet",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a := initializeApp(cmd.Context(), flags, linePrompter(cmd))
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "1. Create a copy of the template sheet:", sheets.TemplateURL(a.Source.DefaultID()))
				fmt.Fprintln(out, "2. Change the sharing settings to 'Anyone with the link'")
				fmt.Fprintln(out, "3. Run: vocabbar sheet set <your sheet link>")
				fmt.Fprintln(out, ui.RenderHelp("Sheet format: Word | Meaning | Example"))
				return nil
			},
		},
	)
	return sheet
}

func newStorageCommand(flags *globalFlags) *cobra.Command {
	storage := &cobra.Command{
		Use:   "storage",
		Short: "Show or move the memorized words file",
	}

	storage.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print where memorized words are saved",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a := initializeApp(cmd.Context(), flags, linePrompter(cmd))
				path := a.Settings.MemorizedWordsPath()
				if path == "" {
					path = "(not chosen yet)"
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Choose a new location and save memorized words there",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a := initializeApp(cmd.Context(), flags, linePrompter(cmd))
				path, err := a.Store.ResetStorageLocation(cmd.Context())
				if errors.Is(err, memorized.ErrStorageUnselected) {
					fmt.Fprintln(cmd.OutOrStdout(), "Storage location unchanged")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.RenderNotice("Memorized words now saved to "+path))
				return nil
			},
		},
	)
	return storage
}
