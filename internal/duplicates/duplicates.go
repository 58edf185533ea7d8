// Package duplicates finds products that share identifying fields and
// removes all but one product of a duplicate group.
package duplicates

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/iwvelando/scheme-engine/internal/session"
	"github.com/iwvelando/scheme-engine/pkg/records"
	"github.com/iwvelando/scheme-engine/pkg/validation"
)

// Criteria names the fields two products must share to be duplicates.
type Criteria string

const (
	ByItemID            Criteria = "itemid"
	ByItemIDStyle       Criteria = "itemid_style"
	ByItemName          Criteria = "itemname"
	ByItemIDStyleConfig Criteria = "itemid_style_config"
)

var criteriaFields = map[Criteria][]string{
	ByItemID:            {records.FieldItemCode},
	ByItemIDStyle:       {records.FieldItemCode, records.FieldStyle},
	ByItemName:          {records.FieldItemName},
	ByItemIDStyleConfig: {records.FieldItemCode, records.FieldStyle, records.FieldMRP},
}

// ParseCriteria validates a criteria name. Empty input yields ByItemID.
func ParseCriteria(name string) (Criteria, error) {
	c := Criteria(strings.ToLower(strings.TrimSpace(name)))
	if c == "" {
		return ByItemID, nil
	}
	if _, ok := criteriaFields[c]; !ok {
		return "", fmt.Errorf("unknown duplicate criteria %q", name)
	}
	return c, nil
}

// Fields returns the record fields compared by c.
func (c Criteria) Fields() []string {
	return append([]string(nil), criteriaFields[c]...)
}

// Group is a set of products sharing the criteria fields.
type Group struct {
	ID       string            `json:"id"`
	Values   map[string]string `json:"values"`
	Products []records.Record  `json:"products"`
}

// Stats summarizes a detection run.
type Stats struct {
	TotalDuplicates   int `json:"totalDuplicates"`
	UniqueGroupsCount int `json:"uniqueGroupsCount"`
	Removable         int `json:"removable"`
}

// Find groups products by the criteria fields, compared trimmed and
// case-insensitively. Products with any blank criteria field are never
// grouped. Groups are ordered by first appearance.
func Find(products []records.Record, c Criteria) ([]Group, Stats, error) {
	fields, ok := criteriaFields[c]
	if !ok {
		return nil, Stats{}, fmt.Errorf("unknown duplicate criteria %q", c)
	}

	index := make(map[string]int)
	var all []Group
	for _, p := range products {
		parts := make([]string, len(fields))
		values := make(map[string]string, len(fields))
		blank := false
		for i, f := range fields {
			v := strings.TrimSpace(p.Text(f))
			if v == "" {
				blank = true
				break
			}
			parts[i] = strings.ToUpper(v)
			values[f] = v
		}
		if blank {
			continue
		}
		id := strings.Join(parts, "|")
		if i, seen := index[id]; seen {
			all[i].Products = append(all[i].Products, p)
			continue
		}
		index[id] = len(all)
		all = append(all, Group{ID: id, Values: values, Products: []records.Record{p}})
	}

	var groups []Group
	var stats Stats
	for _, g := range all {
		if len(g.Products) < 2 {
			continue
		}
		groups = append(groups, g)
		stats.TotalDuplicates += len(g.Products)
		stats.Removable += len(g.Products) - 1
	}
	stats.UniqueGroupsCount = len(groups)
	return groups, stats, nil
}

// Remover deletes products on the backend, keeping keepID.
type Remover interface {
	DeleteDuplicateProducts(ctx context.Context, productIDs []string, keepID string) (int, error)
}

// Cleaner removes duplicates on behalf of an admin.
type Cleaner struct {
	remover Remover
	session session.Session
	logger  *zap.Logger
}

// NewCleaner returns a Cleaner.
func NewCleaner(remover Remover, sess session.Session, logger *zap.Logger) *Cleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{remover: remover, session: sess, logger: logger}
}

// Cleanup deletes every product of g except keepID, which must belong to
// the group. It returns the number of products the backend deleted.
func (c *Cleaner) Cleanup(ctx context.Context, g Group, keepID string) (int, error) {
	if _, err := session.Require(c.session, session.Admin); err != nil {
		return 0, err
	}

	ids := make([]string, 0, len(g.Products))
	found := false
	for _, p := range g.Products {
		if p.ID == "" {
			continue
		}
		ids = append(ids, p.ID)
		if p.ID == keepID {
			found = true
		}
	}
	if keepID == "" || !found {
		return 0, validation.NewError("keepId", "select a product of the group to keep")
	}
	sort.Strings(ids)

	deleted, err := c.remover.DeleteDuplicateProducts(ctx, ids, keepID)
	if err != nil {
		c.logger.Error("failed to delete duplicate products",
			zap.String("op", "duplicates.Cleanup"),
			zap.String("group", g.ID),
			zap.Error(err),
		)
		return 0, fmt.Errorf("failed to delete duplicates of %s: %w", g.ID, err)
	}
	c.logger.Info("deleted duplicate products",
		zap.String("op", "duplicates.Cleanup"),
		zap.String("group", g.ID),
		zap.String("kept", keepID),
		zap.Int("deleted", deleted),
	)
	return deleted, nil
}
