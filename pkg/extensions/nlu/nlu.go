// Package nlu exposes pattern matching with slot placeholders as a flow node.
package nlu

import (
	"context"

	"github.com/aretw0/conduit/internal/nlu"
	"github.com/aretw0/conduit/internal/runtime"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/extensions/extkit"
)

const Name = "nlu"

// Child names of matchPatterns.
const (
	ChildMatched   = "onMatch"
	ChildUnmatched = "onNoMatch"
)

// Extension returns the NLU extension.
func Extension() domain.Extension {
	return domain.Extension{
		Name:    Name,
		Label:   "Pattern Matching",
		Version: "1.0.0",
		Nodes:   []domain.NodeDescriptor{matchPatterns()},
	}
}

func matchPatterns() domain.NodeDescriptor {
	fields := []domain.Field{
		{Key: "patterns", Type: domain.FieldTextArray, Label: "Patterns", Required: true,
			Description: "Words with @slot placeholders, e.g. \"fly to @city\""},
		{Key: "slots", Type: domain.FieldJSON, Label: "Slot values", Description: `{"city": ["Paris", "New York"]}`},
		{Key: "caseSensitive", Type: domain.FieldToggle, Label: "Case sensitive", Default: false},
		{Key: "text", Type: domain.FieldText, Label: "Text", Description: "Falls back to the user text when empty"},
	}
	return domain.NodeDescriptor{
		Type:         "matchPatterns",
		DefaultLabel: "Match Patterns",
		Summary:      "Finds pattern occurrences in the text and extracts slot values",
		Fields:       append(fields, extkit.StorageFields("nlu")...),
		Sections:     []domain.Section{extkit.StorageSection()},
		Children:     []string{ChildMatched, ChildUnmatched},
		Function: func(ctx context.Context, inv *domain.Invocation) error {
			var cfg struct {
				Patterns      []string `json:"patterns"`
				CaseSensitive bool     `json:"caseSensitive"`
				Text          string   `json:"text"`
			}
			if err := runtime.Decode(inv.Config, &cfg); err != nil {
				return err
			}
			target := extkit.Target(inv.Config)
			if cfg.Text == "" {
				cfg.Text = inv.Text()
			}

			slots := MergeSlots(nlu.SlotsFromInput(inv.Session.Input), nlu.SlotsFromInput(map[string]any{"slots": inv.Config["slots"]}))
			m, err := nlu.Compile(cfg.Patterns, slots, nlu.Options{CaseSensitive: cfg.CaseSensitive})
			if err != nil {
				inv.Fail(target, err)
				return err
			}
			if len(m.Skipped) > 0 {
				inv.Logger.Debug("patterns left inert", "patterns", m.Skipped)
			}

			matches := m.Match(cfg.Text)
			inv.Store(target, map[string]any{"matches": matches})
			if len(matches) > 0 {
				return inv.SelectChild(ChildMatched)
			}
			return inv.SelectChild(ChildUnmatched)
		},
	}
}

// MergeSlots combines slot value sets. Later sets add to earlier ones.
func MergeSlots(sets ...map[string][]string) map[string][]string {
	out := map[string][]string{}
	for _, set := range sets {
		for k, v := range set {
			out[k] = append(out[k], v...)
		}
	}
	return out
}
