package main

import (
	"errors"
	"path/filepath"
	"testing"

	"storyteller-ai/internal/session"
	"storyteller-ai/internal/story"
)

func TestApplyEdits(t *testing.T) {
	tests := []struct {
		name      string
		renames   []string
		deletes   []int
		adds      []string
		wantNames []string
		wantErr   error
	}{
		{
			name:      "rename delete add",
			renames:   []string{"2= March Hare"},
			deletes:   []int{1},
			adds:      []string{"Dodo | A bird | Pompous"},
			wantNames: []string{"March Hare", "Dodo"},
		},
		{
			name:    "unknown id",
			renames: []string{"9=Nobody"},
			wantErr: session.ErrCharacterNotFound,
		},
		{
			name:    "unknown delete",
			deletes: []int{5},
			wantErr: session.ErrCharacterNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := session.New(nil, session.Params{})
			s.AddCharacter(story.Character{Name: "Alice"})
			s.AddCharacter(story.Character{Name: "White Rabbit"})

			err := applyEdits(s, tt.renames, tt.deletes, tt.adds)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("applyEdits() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("applyEdits() error = %v", err)
			}

			var names []string
			for _, c := range s.Characters {
				names = append(names, c.Name)
			}
			if len(names) != len(tt.wantNames) {
				t.Fatalf("applyEdits() names = %v, want %v", names, tt.wantNames)
			}
			for i := range names {
				if names[i] != tt.wantNames[i] {
					t.Errorf("applyEdits() names = %v, want %v", names, tt.wantNames)
				}
			}
			if last := s.Characters[len(s.Characters)-1]; last.Description != "A bird" || last.Personality != "Pompous" {
				t.Errorf("applyEdits() added = %+v", last)
			}
		})
	}
}

func TestApplyEdits_InvalidInput(t *testing.T) {
	s := session.New(nil, session.Params{})

	if err := applyEdits(s, []string{"Alice"}, nil, nil); err == nil {
		t.Error("applyEdits() expected error for rename without id")
	}
	if err := applyEdits(s, nil, nil, []string{"only a name"}); err == nil {
		t.Error("applyEdits() expected error for incomplete character")
	}
}

func TestCharactersFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "characters.json")
	in := []story.Character{{ID: 1, Name: "Alice", Description: "A girl", Personality: "Curious"}}

	if err := writeCharacters(path, in); err != nil {
		t.Fatalf("writeCharacters() error = %v", err)
	}
	out, err := readCharacters(path)
	if err != nil {
		t.Fatalf("readCharacters() error = %v", err)
	}
	if len(out) != 1 || out[0] != in[0] {
		t.Errorf("readCharacters() = %+v, want %+v", out, in)
	}
}
