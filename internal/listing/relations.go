package listing

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/pawbazaar/querykit/internal/orm/filter"
	"github.com/pawbazaar/querykit/internal/orm/relationships"
	"github.com/pawbazaar/querykit/internal/orm/store"
	"github.com/pawbazaar/querykit/internal/orm/store/sqlstore"
)

// Include paths
const (
	IncludeOwner = "owner"
	IncludeTags  = "tags"
)

// OwnerRelation loads the owner of every listing with a single query over
// owners
func OwnerRelation(owners store.Query[Owner], c *filter.Compiler) relationships.Relation[Listing] {
	return relationships.BelongsTo(IncludeOwner,
		func(l Listing) (uuid.UUID, bool) {
			return l.OwnerID, l.OwnerID != uuid.Nil
		},
		func(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Owner, error) {
			var spec filter.Specification
			spec.Add("id", filter.Equals, ids)
			p, err := filter.Compile[Owner](c, spec)
			if err != nil {
				return nil, err
			}
			list, err := owners.Where(p).List(ctx)
			if err != nil {
				return nil, err
			}
			byID := make(map[uuid.UUID]*Owner, len(list))
			for i := range list {
				byID[list[i].ID] = &list[i]
			}
			return byID, nil
		},
		func(l *Listing, o *Owner) {
			l.Owner = o
		},
	)
}

// TagsRelation loads tags from the listing_tags table. Listings read from
// SQL have no tags until it runs.
func TagsRelation(db sqlstore.Querier, d sqlstore.Dialect) relationships.Relation[Listing] {
	return relationships.Relation[Listing]{
		Path: IncludeTags,
		Load: func(ctx context.Context, items []Listing) error {
			ids := make([]uuid.UUID, len(items))
			for i, l := range items {
				ids[i] = l.ID
			}
			tags, err := fetchTags(ctx, db, d, ids)
			if err != nil {
				return err
			}
			for i := range items {
				items[i].Tags = tags[items[i].ID]
				if items[i].Tags == nil {
					items[i].Tags = []string{}
				}
			}
			return nil
		},
	}
}

// InlineTagsRelation accepts the tags include for stores that hold tags on
// the listing itself
func InlineTagsRelation() relationships.Relation[Listing] {
	return relationships.Relation[Listing]{
		Path: IncludeTags,
		Load: func(ctx context.Context, items []Listing) error { return nil },
	}
}

func fetchTags(ctx context.Context, db sqlstore.Querier, d sqlstore.Dialect, ids []uuid.UUID) (map[uuid.UUID][]string, error) {
	keys := make([]any, len(ids))
	for i, id := range ids {
		keys[i] = id
	}
	query, args, err := sq.Select("listing_id", "tag").
		From(TagsTable).
		Where(sq.Eq{"listing_id": keys}).
		OrderBy("listing_id", "position").
		PlaceholderFormat(d.Placeholder).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build tags query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := make(map[uuid.UUID][]string, len(ids))
	for rows.Next() {
		var (
			id  uuid.UUID
			tag string
		)
		if err := rows.Scan(&id, &tag); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags[id] = append(tags[id], tag)
	}
	return tags, rows.Err()
}
