package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workitems/domain/core/entities"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Launch Rocket":  "launch-rocket",
		"  spaced  out ": "spaced-out",
		"C++ Rewrite!!!": "c-rewrite",
		"":                "item",
		"####":            "item",
	}
	for input, want := range cases {
		assert.Equal(t, want, Slugify(input, entities.MaxShortnameLength))
	}
}

func TestSlugify_TruncatesToMaxLength(t *testing.T) {
	long := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

	got := Slugify(long, 10)

	assert.Len(t, got, 10)
}

func TestShortnameService_Unique_DisambiguatesCollisions(t *testing.T) {
	workItems := newFakeWorkItemRepo()
	seedItem(t, workItems, "wi-1", "Task", nil)
	seedItem(t, workItems, "wi-2", "Task", nil)
	workItems.items["wi-2"].Shortname = "task-2"
	svc := NewShortnameService(workItems, entities.MaxShortnameLength)

	got, err := svc.Unique(context.Background(), nil, nil, "Task")

	require.NoError(t, err)
	assert.Equal(t, "task-3", got)
}
