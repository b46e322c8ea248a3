package relationships

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type author struct {
	ID   int
	Name string
}

type post struct {
	Title    string
	AuthorID int
	Author   *author
	Tags     []string
}

func authorRelation(calls *int, keys *[]int) Relation[post] {
	authors := map[int]author{1: {ID: 1, Name: "Kim"}, 2: {ID: 2, Name: "Lee"}}
	return BelongsTo("author",
		func(p post) (int, bool) { return p.AuthorID, p.AuthorID != 0 },
		func(ctx context.Context, ids []int) (map[int]author, error) {
			*calls++
			*keys = append(*keys, ids...)
			out := make(map[int]author)
			for _, id := range ids {
				if a, ok := authors[id]; ok {
					out[id] = a
				}
			}
			return out, nil
		},
		func(p *post, a author) { p.Author = &a },
	)
}

func TestBelongsToBatchesKeys(t *testing.T) {
	var calls int
	var keys []int
	reg, err := NewRegistry(authorRelation(&calls, &keys))
	require.NoError(t, err)

	posts := []post{
		{Title: "a", AuthorID: 1},
		{Title: "b", AuthorID: 2},
		{Title: "c", AuthorID: 1},
		{Title: "d"},
		{Title: "e", AuthorID: 9},
	}

	require.NoError(t, reg.Load(context.Background(), posts, []string{"Author", "author"}))

	assert.Equal(t, 1, calls)
	assert.Equal(t, []int{1, 2, 9}, keys)
	assert.Equal(t, "Kim", posts[0].Author.Name)
	assert.Equal(t, "Lee", posts[1].Author.Name)
	assert.Equal(t, "Kim", posts[2].Author.Name)
	assert.Nil(t, posts[3].Author)
	assert.Nil(t, posts[4].Author)
}

func TestLoadUnknownPathLoadsNothing(t *testing.T) {
	var calls int
	var keys []int
	reg, err := NewRegistry(authorRelation(&calls, &keys))
	require.NoError(t, err)

	posts := []post{{AuthorID: 1}}
	err = reg.Load(context.Background(), posts, []string{"author", "comments"})

	assert.ErrorIs(t, err, ErrUnknownRelationship)
	assert.Contains(t, err.Error(), "comments")
	assert.Equal(t, 0, calls)
	assert.Nil(t, posts[0].Author)
}

func TestLoadWrapsLoaderErrors(t *testing.T) {
	boom := errors.New("boom")
	reg, err := NewRegistry(Relation[post]{
		Path: "tags",
		Load: func(ctx context.Context, items []post) error { return boom },
	})
	require.NoError(t, err)

	err = reg.Load(context.Background(), []post{{}}, []string{"tags"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "failed to load relationship tags: boom", err.Error())
}

func TestLoadHonorsCancellation(t *testing.T) {
	var calls int
	var keys []int
	reg, err := NewRegistry(authorRelation(&calls, &keys))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = reg.Load(ctx, []post{{AuthorID: 1}}, []string{"author"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestLoadNoopWithoutItemsOrPaths(t *testing.T) {
	reg, err := NewRegistry[post]()
	require.NoError(t, err)

	assert.NoError(t, reg.Load(context.Background(), nil, []string{"anything"}))
	assert.NoError(t, reg.Load(context.Background(), []post{{}}, nil))
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	rel := Relation[post]{Path: "Author", Load: func(context.Context, []post) error { return nil }}

	_, err := NewRegistry(rel, Relation[post]{Path: " author ", Load: rel.Load})
	assert.ErrorIs(t, err, ErrDuplicateRelationship)

	reg, err := NewRegistry(rel)
	require.NoError(t, err)
	_, ok := reg.Lookup("AUTHOR")
	assert.True(t, ok)
	assert.Equal(t, []string{"Author"}, reg.Paths())
}
