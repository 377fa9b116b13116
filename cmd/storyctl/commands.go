package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"storyteller-ai/internal/apiclient"
	"storyteller-ai/internal/config"
	"storyteller-ai/internal/session"
	"storyteller-ai/internal/story"
)

// charactersFile is the on-disk form shared by extract and story.
type charactersFile struct {
	Characters []story.Character `json:"characters"`
}

// commands holds what every action shares: the pipeline defaults after the
// PIPELINE_CONFIG overlay.
type commands struct {
	pipeline config.Pipeline
}

func (c *commands) newSession(cmd *cli.Command) (*session.Session, *apiclient.Client) {
	client := apiclient.New(cmd.String("server"), nil)
	return session.NewFromPipeline(client, c.pipeline), client
}

// extractSession loads the book named by --file and extracts its characters.
func (c *commands) extractSession(ctx context.Context, cmd *cli.Command, out io.Writer) (*session.Session, error) {
	s, client := c.newSession(cmd)
	client.Debug = cmd.Bool("debug")
	s.Params = session.Params{
		ChunkSize:    cmd.Int("chunk-size"),
		ChunkOverlap: cmd.Int("chunk-overlap"),
		TopK:         cmd.Int("top-k"),
		Temperature:  cmd.Float("temperature"),
		TopP:         cmd.Float("top-p"),
	}
	if q := cmd.String("query"); q != "" {
		s.Query = q
	}

	path := cmd.String("file")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := s.LoadFile(ctx, filepath.Base(path), mime.TypeByExtension(filepath.Ext(path)), data); err != nil {
		return nil, err
	}
	if s.Document == session.DocumentError {
		return nil, fmt.Errorf("%s: unsupported document type", path)
	}

	fmt.Fprintln(out, session.StatusBuildingIndex)
	if err := s.LoadBook(ctx); err != nil {
		return nil, fmt.Errorf("load book: %s", s.Answer)
	}
	fmt.Fprintf(out, "%s (%d chunks, p95 %d tokens)\n", s.Answer, s.Stats.Chunks, s.Stats.P95)

	fmt.Fprintln(out, session.StatusRunningQuery)
	if err := s.ExtractCharacters(ctx); err != nil {
		return nil, fmt.Errorf("extract characters: %s", s.Answer)
	}
	fmt.Fprintf(out, "\n%s\n\n", s.Answer)
	printCharacters(out, s.Characters)
	return s, nil
}

func (c *commands) extract(ctx context.Context, cmd *cli.Command) error {
	s, err := c.extractSession(ctx, cmd, os.Stdout)
	if err != nil {
		return err
	}

	if path := cmd.String("out"); path != "" {
		if err := writeCharacters(path, s.Characters); err != nil {
			return err
		}
		fmt.Printf("\nCharacters written to %s\n", path)
	}
	return nil
}

func (c *commands) story(ctx context.Context, cmd *cli.Command) error {
	characters, err := readCharacters(cmd.String("characters"))
	if err != nil {
		return err
	}

	s, _ := c.newSession(cmd)
	for _, c := range characters {
		s.AddCharacter(c)
	}
	return streamStory(ctx, s, os.Stdout)
}

func (c *commands) run(ctx context.Context, cmd *cli.Command) error {
	s, err := c.extractSession(ctx, cmd, os.Stdout)
	if err != nil {
		return err
	}

	if err := applyEdits(s, cmd.StringSlice("rename"), cmd.IntSlice("delete"), cmd.StringSlice("add")); err != nil {
		return err
	}
	if len(cmd.StringSlice("rename"))+len(cmd.IntSlice("delete"))+len(cmd.StringSlice("add")) > 0 {
		fmt.Println("\nEdited characters:")
		printCharacters(os.Stdout, s.Characters)
	}

	fmt.Println()
	return streamStory(ctx, s, os.Stdout)
}

func healthAction(ctx context.Context, cmd *cli.Command) error {
	health, err := apiclient.New(cmd.String("server"), nil).Health(ctx)
	var apiErr *apiclient.APIError
	if err != nil && !errors.As(err, &apiErr) {
		return err
	}

	fmt.Printf("status: %s\n", health.Status)
	for name, value := range health.Checks {
		fmt.Printf("  %s: %s\n", name, value)
	}
	return err
}

// applyEdits renames, then deletes, then adds characters.
func applyEdits(s *session.Session, renames []string, deletes []int, adds []string) error {
	for _, r := range renames {
		rawID, name, ok := strings.Cut(r, "=")
		id, err := strconv.Atoi(strings.TrimSpace(rawID))
		if !ok || err != nil {
			return fmt.Errorf("invalid rename %q, want id=name", r)
		}
		var found *story.Character
		for i := range s.Characters {
			if s.Characters[i].ID == id {
				found = &s.Characters[i]
				break
			}
		}
		if found == nil {
			return fmt.Errorf("rename: %w: %d", session.ErrCharacterNotFound, id)
		}
		edited := *found
		edited.Name = strings.TrimSpace(name)
		if err := s.EditCharacter(edited); err != nil {
			return err
		}
	}

	for _, id := range deletes {
		if err := s.DeleteCharacter(id); err != nil {
			return fmt.Errorf("delete: %w", err)
		}
	}

	for _, a := range adds {
		parts := strings.SplitN(a, "|", 3)
		if len(parts) != 3 {
			return fmt.Errorf("invalid character %q, want name|description|personality", a)
		}
		s.AddCharacter(story.Character{
			Name:        strings.TrimSpace(parts[0]),
			Description: strings.TrimSpace(parts[1]),
			Personality: strings.TrimSpace(parts[2]),
		})
	}
	return nil
}

func streamStory(ctx context.Context, s *session.Session, out io.Writer) error {
	err := s.GenerateStory(ctx, func(chunk string) {
		fmt.Fprint(out, chunk)
	})
	fmt.Fprintln(out)
	return err
}

func printCharacters(out io.Writer, characters []story.Character) {
	if len(characters) == 0 {
		fmt.Fprintln(out, "No characters found.")
		return
	}
	for _, c := range characters {
		fmt.Fprintf(out, "%d. %s\n   Description: %s\n   Personality: %s\n", c.ID, c.Name, c.Description, c.Personality)
	}
}

func writeCharacters(path string, characters []story.Character) error {
	if characters == nil {
		characters = []story.Character{}
	}
	data, err := json.MarshalIndent(charactersFile{Characters: characters}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode characters: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func readCharacters(path string) ([]story.Character, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var file charactersFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return file.Characters, nil
}
