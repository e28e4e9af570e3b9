package compiler

import (
	"github.com/grovetools/kar/pkg/config"
	"github.com/grovetools/kar/pkg/karabiner"
)

// RenderTo expands an output specifier into the daemon's ordered to-event
// list. Lists are flattened in order. The result is never nil, so an empty
// list still encodes as [].
func RenderTo(to config.ToKey) []karabiner.ToEvent {
	events := make([]karabiner.ToEvent, 0, 1)
	return appendEvents(events, to)
}

func appendEvents(events []karabiner.ToEvent, to config.ToKey) []karabiner.ToEvent {
	switch to.Kind {
	case config.ToSimple:
		return append(events, karabiner.ToEvent{KeyCode: to.Key})
	case config.ToWithModifiers:
		return append(events, karabiner.ToEvent{KeyCode: to.Key, Modifiers: modifierList(to.Modifiers)})
	case config.ToShell:
		return append(events, karabiner.ToEvent{ShellCommand: to.Shell})
	case config.ToMouseKey:
		mk := &karabiner.MouseKey{}
		if to.MouseKey != nil {
			mk = &karabiner.MouseKey{
				X:               to.MouseKey.X,
				Y:               to.MouseKey.Y,
				VerticalWheel:   to.MouseKey.VerticalWheel,
				HorizontalWheel: to.MouseKey.HorizontalWheel,
				SpeedMultiplier: to.MouseKey.SpeedMultiplier,
			}
		}
		return append(events, karabiner.ToEvent{MouseKey: mk})
	case config.ToPointingButton:
		return append(events, karabiner.ToEvent{PointingButton: to.PointingButton, Modifiers: modifierList(to.Modifiers)})
	case config.ToMultiple:
		for _, item := range to.Items {
			events = appendEvents(events, item)
		}
		return events
	default:
		return events
	}
}

func modifierList(m config.Modifiers) []string {
	if m == nil {
		return nil
	}
	return []string(m)
}

// SimpleModifications converts the config's one-to-one substitutions, keeping
// their order.
func SimpleModifications(cfg *config.Config) []karabiner.SimpleModification {
	mods := make([]karabiner.SimpleModification, 0, len(cfg.Simple))
	for _, s := range cfg.Simple {
		mods = append(mods, karabiner.SimpleModification{
			From: karabiner.SimpleModificationKey{KeyCode: s.From},
			To:   []karabiner.SimpleModificationKey{{KeyCode: s.To}},
		})
	}
	return mods
}
