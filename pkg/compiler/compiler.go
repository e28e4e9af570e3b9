// Package compiler expands a user config into Karabiner-Elements complex
// modification rules and simple modifications.
package compiler

import (
	"fmt"

	"github.com/grovetools/kar/pkg/config"
	"github.com/grovetools/kar/pkg/karabiner"
	"github.com/grovetools/kar/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Options controls compilation.
type Options struct {
	// StrictLayers turns a rule that names an undefined simlayer into an
	// error. Without it the rule compiles as if it had no layer.
	StrictLayers bool
	// Logger receives debug output. Defaults to the "compiler" component
	// logger.
	Logger *logrus.Entry
}

// UnknownLayerError is returned in strict mode when a rule names a simlayer
// that is not defined.
type UnknownLayerError struct {
	Rule  string
	Layer string
}

func (e *UnknownLayerError) Error() string {
	return fmt.Sprintf("rule '%s' uses undefined simlayer '%s'", e.Rule, e.Layer)
}

// layerBinding is a rule's resolved simlayer.
type layerBinding struct {
	name      string
	key       string
	threshold int
}

// Compile converts every rule of cfg, in order, into one daemon rule.
func Compile(cfg *config.Config, opts Options) ([]karabiner.Rule, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewLogger("compiler")
	}

	rules := make([]karabiner.Rule, 0, len(cfg.Rules))
	for i, rule := range cfg.Rules {
		layer, err := resolveLayer(cfg, rule, opts.StrictLayers, log)
		if err != nil {
			return nil, err
		}

		manipulators := make([]karabiner.Manipulator, 0, len(rule.Mappings))
		for j, m := range rule.Mappings {
			expanded, err := expandMapping(m, layer, cfg.Profile, rule.Condition)
			if err != nil {
				return nil, fmt.Errorf("rule %d (%s) mapping %d: %w", i, rule.Description, j, err)
			}
			manipulators = append(manipulators, expanded...)
		}

		rules = append(rules, karabiner.Rule{
			Description:  rule.Description,
			Manipulators: manipulators,
		})
	}

	log.WithFields(logrus.Fields{"rules": len(rules)}).Debug("Compiled rules")
	return rules, nil
}

func resolveLayer(cfg *config.Config, rule config.Rule, strict bool, log *logrus.Entry) (*layerBinding, error) {
	if rule.Layer == "" {
		return nil, nil
	}
	sl, ok := cfg.Simlayers[rule.Layer]
	if !ok {
		if strict {
			return nil, &UnknownLayerError{Rule: rule.Description, Layer: rule.Layer}
		}
		log.WithFields(logrus.Fields{
			"rule":  rule.Description,
			"layer": rule.Layer,
		}).Debug("Simlayer not defined, compiling rule without layer")
		return nil, nil
	}

	threshold := cfg.Profile.Sim
	if sl.Threshold != nil {
		threshold = *sl.Threshold
	}
	return &layerBinding{name: rule.Layer, key: sl.Key, threshold: threshold}, nil
}

func expandMapping(m config.Mapping, layer *layerBinding, profile config.ProfileSettings, cond *config.Condition) ([]karabiner.Manipulator, error) {
	conditions := ruleConditions(cond)

	switch m.From.Kind {
	case config.FromSimultaneous:
		return []karabiner.Manipulator{chordManipulator(m, profile.Sim, conditions)}, nil
	case config.FromSimple, config.FromWithModifiers:
		if layer != nil {
			return layerManipulators(m, layer, conditions), nil
		}
		return []karabiner.Manipulator{plainManipulator(m, conditions)}, nil
	default:
		return nil, fmt.Errorf("unsupported trigger kind %s", m.From.Kind)
	}
}

func chordManipulator(m config.Mapping, sim int, conditions []karabiner.Condition) karabiner.Manipulator {
	keys := make([]karabiner.SimultaneousKey, 0, len(m.From.Keys))
	for _, k := range m.From.Keys {
		keys = append(keys, karabiner.SimultaneousKey{KeyCode: k})
	}

	manip := karabiner.Manipulator{
		Type: karabiner.ManipulatorTypeBasic,
		From: karabiner.FromEvent{
			Simultaneous: keys,
			SimultaneousOptions: &karabiner.SimultaneousOptions{
				DetectKeyDownUninterruptedly: boolPtr(true),
				KeyDownOrder:                 karabiner.OrderInsensitive,
				KeyUpOrder:                   karabiner.OrderInsensitive,
				KeyUpWhen:                    karabiner.KeyUpWhenAny,
			},
			Modifiers: karabiner.AnyModifiers(),
		},
		To:         RenderTo(m.To),
		Conditions: conditions,
		Parameters: &karabiner.ManipulatorParameters{SimultaneousThreshold: intPtr(sim)},
	}
	applyAlternates(&manip, m)
	return manip
}

// layerManipulators emits the body manipulator, live while the layer
// variable is 1, followed by the trigger manipulator that arms the layer when
// the layer key is held and the mapping key pressed after it.
func layerManipulators(m config.Mapping, layer *layerBinding, conditions []karabiner.Condition) []karabiner.Manipulator {
	gated := append(conditions, karabiner.VariableIf(layer.name, 1))

	modifiers := fromModifiers(m.From)
	if modifiers == nil {
		modifiers = karabiner.AnyModifiers()
	}
	body := karabiner.Manipulator{
		Type:       karabiner.ManipulatorTypeBasic,
		From:       karabiner.FromEvent{KeyCode: m.From.Key, Modifiers: modifiers},
		To:         RenderTo(m.To),
		Conditions: gated,
	}
	applyAlternates(&body, m)

	to := []karabiner.ToEvent{karabiner.SetVariableEvent(layer.name, 1)}
	to = append(to, RenderTo(m.To)...)
	trigger := karabiner.Manipulator{
		Type: karabiner.ManipulatorTypeBasic,
		From: karabiner.FromEvent{
			Simultaneous: []karabiner.SimultaneousKey{
				{KeyCode: layer.key},
				{KeyCode: m.From.Key},
			},
			SimultaneousOptions: &karabiner.SimultaneousOptions{
				DetectKeyDownUninterruptedly: boolPtr(true),
				KeyDownOrder:                 karabiner.OrderStrict,
				KeyUpOrder:                   karabiner.OrderStrictInverse,
				KeyUpWhen:                    karabiner.KeyUpWhenAny,
				ToAfterKeyUp:                 []karabiner.ToEvent{karabiner.SetVariableEvent(layer.name, 0)},
			},
			Modifiers: karabiner.AnyModifiers(),
		},
		To:         to,
		Parameters: &karabiner.ManipulatorParameters{SimultaneousThreshold: intPtr(layer.threshold)},
	}

	return []karabiner.Manipulator{body, trigger}
}

func plainManipulator(m config.Mapping, conditions []karabiner.Condition) karabiner.Manipulator {
	manip := karabiner.Manipulator{
		Type:       karabiner.ManipulatorTypeBasic,
		From:       karabiner.FromEvent{KeyCode: m.From.Key, Modifiers: fromModifiers(m.From)},
		To:         RenderTo(m.To),
		Conditions: conditions,
	}
	applyAlternates(&manip, m)
	return manip
}

func applyAlternates(manip *karabiner.Manipulator, m config.Mapping) {
	if m.ToIfAlone != nil {
		manip.ToIfAlone = RenderTo(*m.ToIfAlone)
	}
	if m.ToIfHeld != nil {
		manip.ToIfHeldDown = RenderTo(*m.ToIfHeld)
	}
}

// fromModifiers returns nil for a bare key. A key written as an object
// always gets a modifiers block, possibly with both lists absent.
func fromModifiers(from config.FromKey) *karabiner.FromModifiers {
	if from.Kind != config.FromWithModifiers {
		return nil
	}
	mods := &karabiner.FromModifiers{Optional: from.Optional}
	if from.Modifiers != nil {
		mods.Mandatory = []string(from.Modifiers)
	}
	return mods
}

// ruleConditions returns a fresh slice so callers may append to it.
func ruleConditions(cond *config.Condition) []karabiner.Condition {
	if cond == nil {
		return nil
	}
	switch cond.Kind {
	case config.ConditionApp:
		return []karabiner.Condition{karabiner.FrontmostApplicationIf(cond.App)}
	case config.ConditionVariable:
		return []karabiner.Condition{karabiner.VariableIf(cond.Variable, cond.Value)}
	default:
		return nil
	}
}

func boolPtr(v bool) *bool { return &v }

func intPtr(v int) *int { return &v }
