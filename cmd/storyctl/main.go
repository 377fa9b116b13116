package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"storyteller-ai/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	defaults, err := config.LoadPipeline()
	if err != nil {
		log.Fatal(err)
	}
	actions := &commands{pipeline: defaults}

	serverFlag := &cli.StringFlag{
		Name:    "server",
		Usage:   "storyteller API base URL",
		Value:   "http://localhost:9000",
		Sources: cli.EnvVars("STORYTELLER_URL"),
	}
	extractFlags := []cli.Flag{
		serverFlag,
		&cli.StringFlag{
			Name:     "file",
			Usage:    "book to load (.txt, .md, .pdf, .docx)",
			Required: true,
		},
		&cli.IntFlag{
			Name:  "chunk-size",
			Usage: "chunk size in characters",
			Value: defaults.ChunkSize,
		},
		&cli.IntFlag{
			Name:  "chunk-overlap",
			Usage: "chunk overlap in characters",
			Value: defaults.ChunkOverlap,
		},
		&cli.IntFlag{
			Name:  "top-k",
			Usage: "number of chunks used as context",
			Value: defaults.TopK,
		},
		&cli.FloatFlag{
			Name:  "temperature",
			Usage: "sampling temperature",
			Value: defaults.Temperature,
		},
		&cli.FloatFlag{
			Name:  "top-p",
			Usage: "nucleus sampling probability",
			Value: defaults.TopP,
		},
		&cli.StringFlag{
			Name:  "query",
			Usage: "extraction instruction (defaults to the built-in character query)",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "print the retrieved chunks",
		},
	}

	app := &cli.Command{
		Name:  "storyctl",
		Usage: "Extract characters from a book and write a story about them",
		Commands: []*cli.Command{
			{
				Name:  "extract",
				Usage: "Load a book, build its index and extract its characters",
				Flags: append(extractFlags, &cli.StringFlag{
					Name:  "out",
					Usage: "write the characters as JSON to this file",
				}),
				Action: actions.extract,
			},
			{
				Name:  "story",
				Usage: "Stream a story about the characters in a JSON file",
				Flags: []cli.Flag{
					serverFlag,
					&cli.StringFlag{
						Name:     "characters",
						Usage:    "JSON file written by extract (and edited by hand)",
						Required: true,
					},
				},
				Action: actions.story,
			},
			{
				Name:  "run",
				Usage: "Extract characters, apply edits and stream a story",
				Flags: append(extractFlags,
					&cli.StringSliceFlag{
						Name:  "add",
						Usage: `add a character as "name|description|personality"`,
					},
					&cli.StringSliceFlag{
						Name:  "rename",
						Usage: `rename a character as "id=new name"`,
					},
					&cli.IntSliceFlag{
						Name:  "delete",
						Usage: "delete the character with this id",
					},
				),
				Action: actions.run,
			},
			{
				Name:   "health",
				Usage:  "Check the API health",
				Flags:  []cli.Flag{serverFlag},
				Action: healthAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
