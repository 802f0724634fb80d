// Package builtin registers the rule sets shipped with moss.
package builtin

import (
	"github.com/Ramsey-B/moss/pkg/rules"
	"github.com/Ramsey-B/moss/pkg/rules/wastewater"
	"github.com/Ramsey-B/moss/pkg/rules/water"
)

func Registry() *rules.Registry {
	return rules.NewRegistry().
		Register(wastewater.New, wastewater.Models...).
		Register(water.New, water.Models...)
}
