package atria

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

func intPtr(v int) *int { return &v }

func TestApplyTextFilterIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	records := []creative.Record{
		{ID: "1", AdText: "Works great with glp1 meds", DaysActive: intPtr(30)},
		{ID: "2", AdText: "Nothing relevant", DaysActive: intPtr(30)},
		{ID: "3", AdText: "GLP1 friendly formula", DaysActive: intPtr(30)},
	}
	out := Apply(records, creative.Competitor{Filter: "GLP1"}, 7)

	require.Len(t, out, 2)
	for _, rec := range out {
		require.True(t, MatchesFilter(rec, "glp1"))
	}
}

func TestApplyDropsUnknownDaysWhenMinimumSet(t *testing.T) {
	t.Parallel()

	records := []creative.Record{{ID: "1"}, {ID: "2", DaysActive: intPtr(3)}}
	require.Empty(t, Apply(records, creative.Competitor{}, 7))
	require.Len(t, Apply(records, creative.Competitor{}, 0), 2)
}

func TestResolveVideoURLs(t *testing.T) {
	t.Parallel()

	records := []creative.Record{
		{ID: "1", MediaURL: "https://cdn.tryatria.com/_images/w:384/plain/adfiles/m123_abc.jpeg", MediaType: creative.MediaImage},
		{ID: "2", MediaURL: "https://cdn.tryatria.com/adfiles/m999_z.jpeg", MediaType: creative.MediaImage},
	}
	ResolveVideoURLs(records, map[string]string{"m123": "https://cdn.tryatria.com/adfiles/m123_abc.mp4"})

	require.Equal(t, "https://cdn.tryatria.com/adfiles/m123_abc.mp4", records[0].MediaURL)
	require.Equal(t, creative.MediaVideo, records[0].MediaType)
	require.Equal(t, creative.MediaImage, records[1].MediaType)
}

func TestVideoCaptureObserve(t *testing.T) {
	t.Parallel()

	c := newVideoCapture()
	c.observe("https://cdn.tryatria.com/adfiles/m77_q.mp4?sig=1", "video/mp4", 200)
	c.observe("https://cdn.example.com/clips/intro.webm", "", 200)
	c.observe("https://cdn.example.com/app.js", "application/javascript", 200)
	c.observe("https://cdn.tryatria.com/adfiles/m88.mp4", "video/mp4", 404)

	got := c.snapshot()
	require.Equal(t, map[string]string{
		"m77":        "https://cdn.tryatria.com/adfiles/m77_q.mp4?sig=1",
		"intro.webm": "https://cdn.example.com/clips/intro.webm",
	}, got)

	c.reset()
	require.Empty(t, c.snapshot())
}

func TestSearchURL(t *testing.T) {
	t.Parallel()

	got := SearchURL("https://app.tryatria.com/workspace/discovery", creative.Competitor{Domain: "colonbroom.com", Filter: "GLP1"})
	require.Equal(t, "https://app.tryatria.com/workspace/discovery?format=video&status=active&q=colonbroom.com+GLP1&searchType=ad_copy&sortBy=most_relevant", got)
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := New(Config{LoginURL: "u", DiscoveryURL: "d"}, nil, nil)
	require.ErrorIs(t, err, creative.ErrAuthentication)
}
