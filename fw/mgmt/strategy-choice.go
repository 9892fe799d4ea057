/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package mgmt

import (
	"fmt"

	"github.com/named-data/ndnd/fw/core"
	"github.com/named-data/ndnd/fw/defn"
	"github.com/named-data/ndnd/fw/fw"
	"github.com/named-data/ndnd/fw/table"
	enc "github.com/named-data/ndnd/std/encoding"
)

// StrategyChoiceModule exposes strategy-table management as a plain Go API
// rather than the NFD Management Protocol's TLV ControlParameters exchange:
// every caller here already runs inside the forwarder process, so there is
// no management-Interest wire boundary to cross.
type StrategyChoiceModule struct{}

// String identifies the module in log output.
func (s *StrategyChoiceModule) String() string {
	return "mgmt-strategy"
}

// SetStrategy binds strategyName as the forwarding strategy for name.
// strategyName must live under defn.STRATEGY_PREFIX and name a strategy
// registered in fw.StrategyVersions; an unversioned strategyName resolves
// to that strategy's highest registered version.
func (s *StrategyChoiceModule) SetStrategy(name enc.Name, strategyName enc.Name) error {
	if !defn.STRATEGY_PREFIX.IsPrefix(strategyName) {
		return fmt.Errorf("invalid strategy name %s", strategyName)
	}

	strategyID := strategyName[len(defn.STRATEGY_PREFIX)].String()
	availableVersions, ok := fw.StrategyVersions[strategyID]
	if !ok {
		return fmt.Errorf("unknown strategy %s", strategyID)
	}

	latest := availableVersions[0]
	for _, v := range availableVersions {
		if v > latest {
			latest = v
		}
	}

	resolved := strategyName
	switch {
	case len(strategyName) <= len(defn.STRATEGY_PREFIX)+1:
		resolved = strategyName.Append(enc.NewVersionComponent(latest))

	case !strategyName[len(defn.STRATEGY_PREFIX)+1].IsVersion():
		return fmt.Errorf("malformed strategy version in %s", strategyName)

	default:
		requested, _, err := enc.ParseNat(strategyName[len(defn.STRATEGY_PREFIX)+1].Val)
		if err != nil {
			return fmt.Errorf("invalid strategy version in %s", strategyName)
		}
		found := false
		for _, v := range availableVersions {
			if v == uint64(requested) {
				found = true
			}
		}
		if !found {
			return fmt.Errorf("unknown strategy version %d for %s", requested, strategyID)
		}
	}

	table.FibStrategyTable.SetStrategyEnc(name, resolved)
	core.Log.Info(s, "Set strategy", "name", name, "strategy", resolved)
	return nil
}

// UnsetStrategy clears any strategy explicitly bound at name; lookups under
// name then fall back to the nearest ancestor's strategy.
func (s *StrategyChoiceModule) UnsetStrategy(name enc.Name) {
	table.FibStrategyTable.UnSetStrategyEnc(name)
	core.Log.Info(s, "Unset strategy", "name", name)
}

// StrategyChoice is one name-to-strategy binding, as reported by ListStrategies.
type StrategyChoice struct {
	Name     enc.Name
	Strategy enc.Name
}

// ListStrategies returns every name prefix with an explicitly bound strategy.
func (s *StrategyChoiceModule) ListStrategies() []StrategyChoice {
	entries := table.FibStrategyTable.GetAllForwardingStrategies()
	choices := make([]StrategyChoice, 0, len(entries))
	for _, e := range entries {
		choices = append(choices, StrategyChoice{Name: e.Name(), Strategy: e.GetStrategy()})
	}
	return choices
}
