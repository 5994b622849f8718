package search

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchwire/pitchwire/pkg/embedding"
	"github.com/pitchwire/pitchwire/pkg/store"
	"github.com/pitchwire/pitchwire/pkg/vectorindex"
)

type fakeArticleSource struct {
	articles map[int64]*store.Article
}

func (f *fakeArticleSource) GetArticlesByIDs(_ context.Context, ids []int64) (map[int64]*store.Article, error) {
	out := make(map[int64]*store.Article)
	for _, id := range ids {
		if a, ok := f.articles[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func seedArticle(id int64, title, source string, published time.Time, sentiment float64) *store.Article {
	return &store.Article{
		ID:             id,
		Title:          title,
		Content:        strings.Repeat(strings.ToLower(title)+" ", 30),
		URL:            "https://example.com/a",
		Source:         source,
		PublishedDate:  published,
		SentimentScore: &sentiment,
	}
}

func newTestService(t *testing.T, articles ...*store.Article) (*Service, *vectorindex.FakeIndex, *embedding.FakeEmbedder) {
	t.Helper()
	embedder := embedding.NewFakeEmbedder(64)
	index := vectorindex.NewFakeIndex()
	src := &fakeArticleSource{articles: map[int64]*store.Article{}}

	ctx := context.Background()
	for _, a := range articles {
		src.articles[a.ID] = a
		vec, err := embedder.Embed(ctx, a.Title)
		require.NoError(t, err)
		require.NoError(t, index.Upsert(ctx, vectorindex.Point{
			ID:     a.ID,
			Vector: vec,
			Payload: vectorindex.Metadata{
				Source:    a.Source,
				Sentiment: *a.SentimentScore,
				ArticleID: a.ID,
			},
		}))
	}
	embedder.Calls = nil

	return NewService(embedder, index, src, slog.Default()), index, embedder
}

func TestService_SearchReturnsRankedResults(t *testing.T) {
	now := time.Now()
	svc, _, _ := newTestService(t,
		seedArticle(1, "Haaland scores hat trick against Luton", "BBC Sport", now, 0.4),
		seedArticle(2, "Chelsea appoint new sporting director", "Sky Sports", now, 0.1),
	)

	results, err := svc.Search(context.Background(), "Haaland scores hat trick against Luton", Options{FinalK: 5})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, int64(1), results[0].Article.ID)
	assert.Contains(t, results[0].Breakdown, "temporal")
}

func TestService_SourceFilter(t *testing.T) {
	now := time.Now()
	svc, _, _ := newTestService(t,
		seedArticle(1, "Haaland scores hat trick against Luton", "BBC Sport", now, 0.4),
		seedArticle(2, "Haaland injury scare before derby", "ESPN", now, -0.2),
	)

	results, err := svc.Search(context.Background(), "Haaland", Options{Source: "ESPN"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(2), results[0].Article.ID)
}

func TestService_SentimentFilter(t *testing.T) {
	now := time.Now()
	svc, _, _ := newTestService(t,
		seedArticle(1, "Haaland scores hat trick against Luton", "BBC Sport", now, 0.4),
		seedArticle(2, "Haaland injury scare before derby", "ESPN", now, -0.5),
	)

	results, err := svc.Search(context.Background(), "Haaland", Options{Sentiment: "positive"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].Article.ID)

	results, err = svc.Search(context.Background(), "Haaland", Options{Sentiment: "negative"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(2), results[0].Article.ID)
}

func TestService_DateRangeFilter(t *testing.T) {
	now := time.Now()
	old := now.AddDate(0, -2, 0)
	svc, _, _ := newTestService(t,
		seedArticle(1, "Haaland scores hat trick against Luton", "BBC Sport", now, 0.4),
		seedArticle(2, "Haaland preseason review from the summer", "BBC Sport", old, 0.0),
	)

	from := now.AddDate(0, -1, 0)
	results, err := svc.Search(context.Background(), "Haaland", Options{DateFrom: &from})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].Article.ID)
}

func TestService_EmptyIndexReturnsNoResults(t *testing.T) {
	svc, _, _ := newTestService(t)

	results, err := svc.Search(context.Background(), "anything", Options{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestService_IndexErrorPropagates(t *testing.T) {
	now := time.Now()
	svc, index, _ := newTestService(t,
		seedArticle(1, "Haaland scores hat trick against Luton", "BBC Sport", now, 0.4),
	)
	index.SetError(assert.AnError)

	_, err := svc.Search(context.Background(), "Haaland", Options{})
	assert.Error(t, err)
}
