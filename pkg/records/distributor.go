package records

import (
	"fmt"
	"strings"
)

// Distributor and group field names.
const (
	FieldCode   = "code"
	FieldName   = "name"
	FieldCity   = "city"
	FieldGroup  = "group"
	FieldSMCode = "sm"
)

// DistributorColumns is the fixed distributor column order.
var DistributorColumns = []string{FieldCode, FieldName, FieldCity, FieldGroup, FieldSMCode}

// GroupColumns is the fixed distributor-group column order.
var GroupColumns = []string{FieldGroup, FieldCity}

var distributorSources = []struct {
	field string
	raw   []string
}{
	{FieldCode, []string{"CUSTOMERACCOUNT", "code"}},
	{FieldSMCode, []string{"SMCODE", "sm"}},
	{FieldGroup, []string{"CUSTOMERGROUPID", "group"}},
	{FieldName, []string{"ORGANIZATIONNAME", "name"}},
	{FieldCity, []string{"ADDRESSCITY", "city"}},
}

// DistributorKey is the local key of the i-th distributor.
func DistributorKey(i int) string {
	return fmt.Sprintf("dist-%d", i)
}

// GroupKey is the local key of the i-th derived group.
func GroupKey(i int) string {
	return fmt.Sprintf("group-%d", i)
}

// FromRawDistributors maps backend distributor documents into records.
func FromRawDistributors(raw []map[string]interface{}) []Record {
	out := make([]Record, 0, len(raw))
	for i, doc := range raw {
		fields := make(map[string]interface{}, len(distributorSources))
		for _, src := range distributorSources {
			fields[src.field] = pick(doc, src.raw...)
		}
		out = append(out, New(DistributorKey(i), rawID(doc), fields))
	}
	return out
}

// DeriveGroups builds one record per distinct non-blank distributor group in
// first-seen order. The city field joins the distinct non-empty cities of the
// group's distributors with ", ".
func DeriveGroups(distributors []Record) []Record {
	var order []string
	cities := make(map[string][]string)
	seenCity := make(map[string]map[string]struct{})

	for _, d := range distributors {
		group := d.Text(FieldGroup)
		if strings.TrimSpace(group) == "" {
			continue
		}
		if _, ok := seenCity[group]; !ok {
			order = append(order, group)
			seenCity[group] = make(map[string]struct{})
		}
		city := d.Text(FieldCity)
		if city == "" {
			continue
		}
		if _, dup := seenCity[group][city]; dup {
			continue
		}
		seenCity[group][city] = struct{}{}
		cities[group] = append(cities[group], city)
	}

	groups := make([]Record, 0, len(order))
	for i, group := range order {
		groups = append(groups, New(GroupKey(i), "", map[string]interface{}{
			FieldGroup: group,
			FieldCity:  strings.Join(cities[group], ", "),
		}))
	}
	return groups
}
