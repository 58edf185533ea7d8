package filter

import (
	"reflect"
	"testing"
)

func flavourChecklist() *Checklist {
	options := []Option{
		{"JUICE", "JUICE"},
		{"JUICE RGB", "JUICE RGB"},
		{"WATER", "WATER"},
		{"SODA", "SODA"},
	}
	return NewChecklist("flavour", options, Constraint{})
}

func TestChecklistSelectAllVisibleKeepsHidden(t *testing.T) {
	c := flavourChecklist()

	c.Search = "water"
	c.SelectAllVisible()

	c.Search = "juice"
	c.SelectAllVisible()

	expected := []interface{}{"WATER", "JUICE", "JUICE RGB"}
	if got := c.Checked(); !reflect.DeepEqual(got, expected) {
		t.Errorf("Checked() = %v, expected %v", got, expected)
	}
}

func TestChecklistSetVisibleChecked(t *testing.T) {
	c := NewChecklist("flavour", flavourChecklist().Options, OneOf("WATER", "JUICE"))

	c.Search = "juice"
	c.SetVisibleChecked([]interface{}{"JUICE RGB", "SODA"})

	if c.IsChecked("JUICE") {
		t.Errorf("JUICE was unchecked among visible options")
	}
	if !c.IsChecked("JUICE RGB") {
		t.Errorf("JUICE RGB should be checked")
	}
	if !c.IsChecked("WATER") {
		t.Errorf("hidden WATER must stay checked")
	}
	if c.IsChecked("SODA") {
		t.Errorf("SODA is not visible and must be ignored")
	}
}

func TestChecklistClearAndConstraint(t *testing.T) {
	c := NewChecklist("flavour", flavourChecklist().Options, OneOf("SODA"))

	if got := c.Constraint(); !reflect.DeepEqual(got.Values, []interface{}{"SODA"}) {
		t.Errorf("Constraint() = %#v", got)
	}

	c.Clear()
	if c.Constraint().Active() {
		t.Errorf("cleared checklist must produce an inactive constraint")
	}
	if len(c.Visible()) != 4 {
		t.Errorf("Visible() with no search should list all options")
	}
}
