package repository

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
)

// roundTrip renders a body the way it is sent to Elasticsearch.
func roundTrip(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestBuildPostSearchQuery_HashtagBranch(t *testing.T) {
	body := roundTrip(t, buildPostSearchQuery("  #Beach ", nil, 12))

	query := body["query"].(map[string]interface{})
	term, ok := query["term"].(map[string]interface{})
	require.True(t, ok, "hashtag search must be an exact term query")
	assert.Equal(t, "#beach", term["hashtags"])
	assert.Nil(t, body["search_after"])
	assert.Equal(t, float64(12), body["size"])
}

func TestBuildPostSearchQuery_TextBranch(t *testing.T) {
	body := roundTrip(t, buildPostSearchQuery("paris", nil, 5))

	should := body["query"].(map[string]interface{})["bool"].(map[string]interface{})["should"].([]interface{})
	require.Len(t, should, 4)

	nested := should[2].(map[string]interface{})["nested"].(map[string]interface{})
	assert.Equal(t, "location", nested["path"])
	_, isPrefix := should[1].(map[string]interface{})["match_phrase_prefix"]
	assert.True(t, isPrefix)
}

func TestBuildPostSearchQuery_SortAndCursor(t *testing.T) {
	cursor := &domain.Cursor{DateTime: 1717000000123, PostID: "01HZX"}
	body := roundTrip(t, buildPostSearchQuery("x", cursor, 10))

	sort := body["sort"].([]interface{})
	require.Len(t, sort, 2)
	_, first := sort[0].(map[string]interface{})["dateTime"]
	_, second := sort[1].(map[string]interface{})["postId"]
	assert.True(t, first)
	assert.True(t, second)

	after := body["search_after"].([]interface{})
	assert.Equal(t, float64(1717000000123), after[0])
	assert.Equal(t, "01HZX", after[1])
}

func TestCursorFromSort_PassesValuesBackUnchanged(t *testing.T) {
	sort := []json.RawMessage{json.RawMessage(`1717000000123`), json.RawMessage(`"01HZX"`)}
	c := cursorFromSort(sort)
	require.NotNil(t, c)
	assert.Equal(t, int64(1717000000123), c.DateTime)
	assert.Equal(t, "01HZX", c.PostID)

	assert.Nil(t, cursorFromSort(sort[:1]))
}

func TestBuildAuthorsQuery(t *testing.T) {
	body := roundTrip(t, buildAuthorsQuery([]string{"u1", "u2"}, nil, 20))
	filter := body["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
	terms := filter[0].(map[string]interface{})["terms"].(map[string]interface{})
	assert.Equal(t, []interface{}{"u1", "u2"}, terms["user.userId"])
}

func TestBuildHashtagAggQuery(t *testing.T) {
	body := roundTrip(t, buildHashtagAggQuery("Sum", 5))
	terms := body["aggs"].(map[string]interface{})["hashtags"].(map[string]interface{})["terms"].(map[string]interface{})
	assert.Equal(t, `\#sum.*`, terms["include"])
	assert.Equal(t, float64(0), body["size"])
}

func TestBuildProfileSearchQuery_StripsAt(t *testing.T) {
	body := roundTrip(t, buildProfileSearchQuery("@alice", 5))
	should := body["query"].(map[string]interface{})["bool"].(map[string]interface{})["should"].([]interface{})
	exact := should[0].(map[string]interface{})["term"].(map[string]interface{})["userName.keyword"].(map[string]interface{})
	assert.Equal(t, "alice", exact["value"])
}

func TestBuildUpdateAuthorQuery(t *testing.T) {
	body := roundTrip(t, buildUpdateAuthorQuery(domain.PostAuthor{UserID: "u1", UserName: "bob", PfpURL: "p"}))
	params := body["script"].(map[string]interface{})["params"].(map[string]interface{})
	assert.Equal(t, "bob", params["userName"])
}
