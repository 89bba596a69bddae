package filter

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type member struct {
	Name         string
	Offered      []string
	Location     string
	Availability string
}

func members() []member {
	return []member{
		{Name: "Sarah Chen", Offered: []string{"React", "TypeScript"}, Location: "San Francisco, CA", Availability: "Weekends"},
		{Name: "Marcus Johnson", Offered: []string{"Guitar"}, Location: "Austin, TX", Availability: "Evenings"},
		{Name: "Elena Rodriguez", Offered: []string{"Spanish"}, Location: "Miami, FL", Availability: "Flexible"},
		{Name: "David Kim", Offered: []string{"Photography"}, Location: "Seattle, WA", Availability: "Weekends"},
		{Name: "Priya Patel", Offered: []string{"Yoga", "React Native"}, Location: "San Jose, CA", Availability: "Weekdays"},
	}
}

func offered(m member) []string { return m.Offered }

func TestApply_MatchAllWithoutPredicates(t *testing.T) {
	t.Parallel()

	page, err := Apply(members(), PageRequest{Number: 1, Size: 4})
	require.NoError(t, err)
	assert.Equal(t, 5, page.TotalMatches)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 4)
	assert.Empty(t, page.Filters)
	assert.Equal(t, "Sarah Chen", page.Items[0].Name)
}

func TestApply_CombinesPredicates(t *testing.T) {
	t.Parallel()

	page, err := Apply(members(), PageRequest{Number: 1, Size: 4},
		Contains("skill", "react", offered),
		Contains("location", ", ca", func(m member) []string { return []string{m.Location} }),
		Equals("availability", "", func(m member) string { return m.Availability }),
	)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Sarah Chen", page.Items[0].Name)
	assert.Equal(t, "Priya Patel", page.Items[1].Name)
	assert.Equal(t, []string{"skill", "location"}, page.Filters)
}

func TestApply_EqualsIgnoresCase(t *testing.T) {
	t.Parallel()

	page, err := Apply(members(), PageRequest{Number: 1, Size: 10},
		Equals("availability", "weekends", func(m member) string { return m.Availability }),
	)
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalMatches)
}

func TestApply_PageBeyondLastIsEmpty(t *testing.T) {
	t.Parallel()

	page, err := Apply(members(), PageRequest{Number: 3, Size: 4})
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, 2, page.TotalPages)
}

func TestApply_ExtremePageRequests(t *testing.T) {
	t.Parallel()

	page, err := Apply([]int{1, 2, 3}, PageRequest{Number: math.MaxInt, Size: 2})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 2, page.TotalPages)

	page, err = Apply([]int{1, 2, 3}, PageRequest{Number: 1, Size: math.MaxInt})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, page.Items)
	assert.Equal(t, 1, page.TotalPages)

	page, err = Apply([]int{1, 2, 3}, PageRequest{Number: math.MaxInt, Size: math.MaxInt})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 1, page.TotalPages)
}

func TestApply_NoMatchesHasZeroPages(t *testing.T) {
	t.Parallel()

	page, err := Apply(members(), PageRequest{Number: 1, Size: 4}, Contains("skill", "cobol", offered))
	require.NoError(t, err)
	assert.Equal(t, 0, page.TotalMatches)
	assert.Equal(t, 0, page.TotalPages)
	assert.Empty(t, page.Items)
}

func TestApply_RejectsInvalidPage(t *testing.T) {
	t.Parallel()

	for _, req := range []PageRequest{{Number: 0, Size: 4}, {Number: 1, Size: 0}, {Number: -1, Size: -1}} {
		_, err := Apply(members(), req)
		assert.ErrorIs(t, err, ErrInvalidPage, "request %+v", req)
	}
}

func TestApply_PagesPartitionMatches(t *testing.T) {
	t.Parallel()

	items := make([]int, 0, 23)
	for i := 0; i < 23; i++ {
		items = append(items, i)
	}
	even := Where("even", func(n int) bool { return n%2 == 0 })

	for size := 1; size <= 13; size++ {
		t.Run(fmt.Sprintf("size=%d", size), func(t *testing.T) {
			first, err := Apply(items, PageRequest{Number: 1, Size: size}, even)
			require.NoError(t, err)
			assert.Equal(t, (first.TotalMatches+size-1)/size, first.TotalPages)

			var seen []int
			for n := 1; n <= first.TotalPages; n++ {
				page, err := Apply(items, PageRequest{Number: n, Size: size}, even)
				require.NoError(t, err)
				seen = append(seen, page.Items...)
			}
			assert.Len(t, seen, first.TotalMatches)
			for i := 1; i < len(seen); i++ {
				assert.Less(t, seen[i-1], seen[i], "pages keep original order")
			}

			past, err := Apply(items, PageRequest{Number: first.TotalPages + 1, Size: size}, even)
			require.NoError(t, err)
			assert.Empty(t, past.Items)
		})
	}
}

func TestApply_DoesNotAliasInput(t *testing.T) {
	t.Parallel()

	items := []int{1, 2, 3}
	page, err := Apply(items, PageRequest{Number: 1, Size: 3})
	require.NoError(t, err)
	page.Items[0] = 99
	assert.Equal(t, 1, items[0])
}
