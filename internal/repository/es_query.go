package repository

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
)

// Query builders are pure so the request bodies can be unit tested.

// postSort is the two-part sort key. Its values form the search_after
// cursor handed to clients.
var postSort = []map[string]interface{}{
	{"dateTime": map[string]interface{}{"order": "desc"}},
	{"postId": map[string]interface{}{"order": "desc"}},
}

func withCursor(body map[string]interface{}, cursor *domain.Cursor) map[string]interface{} {
	body["sort"] = postSort
	if !cursor.IsZero() {
		body["search_after"] = []interface{}{cursor.DateTime, cursor.PostID}
	}
	return body
}

// buildPostSearchQuery matches a hashtag exactly when term starts with '#',
// and otherwise does full-text plus phrase-prefix matching on the caption,
// the nested location name and the author name.
func buildPostSearchQuery(term string, cursor *domain.Cursor, size int) map[string]interface{} {
	term = strings.TrimSpace(term)

	var query map[string]interface{}
	if strings.HasPrefix(term, "#") {
		query = map[string]interface{}{
			"term": map[string]interface{}{
				"hashtags": strings.ToLower(term),
			},
		}
	} else {
		query = map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []interface{}{
					map[string]interface{}{"match": map[string]interface{}{
						"caption": map[string]interface{}{"query": term, "fuzziness": "AUTO"},
					}},
					map[string]interface{}{"match_phrase_prefix": map[string]interface{}{
						"caption": term,
					}},
					map[string]interface{}{"nested": map[string]interface{}{
						"path": "location",
						"query": map[string]interface{}{
							"bool": map[string]interface{}{
								"should": []interface{}{
									map[string]interface{}{"match": map[string]interface{}{"location.name": term}},
									map[string]interface{}{"match_phrase_prefix": map[string]interface{}{"location.name": term}},
								},
							},
						},
					}},
					map[string]interface{}{"term": map[string]interface{}{
						"user.userName": map[string]interface{}{"value": term, "case_insensitive": true},
					}},
				},
				"minimum_should_match": 1,
			},
		}
	}

	return withCursor(map[string]interface{}{
		"size":  size,
		"query": query,
	}, cursor)
}

// buildAuthorsQuery lists posts by any of userIDs, newest first.
func buildAuthorsQuery(userIDs []string, cursor *domain.Cursor, size int) map[string]interface{} {
	return withCursor(map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"terms": map[string]interface{}{"user.userId": userIDs}},
				},
			},
		},
	}, cursor)
}

func buildProfileSearchQuery(term string, size int) map[string]interface{} {
	term = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(term), "@"))
	return map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{
						"userName.keyword": map[string]interface{}{"value": term, "boost": 5, "case_insensitive": true},
					}},
					map[string]interface{}{"match_phrase_prefix": map[string]interface{}{
						"userName": map[string]interface{}{"query": term, "boost": 3},
					}},
					map[string]interface{}{"match": map[string]interface{}{
						"name": map[string]interface{}{"query": term, "fuzziness": "AUTO"},
					}},
					map[string]interface{}{"match_phrase_prefix": map[string]interface{}{
						"name": term,
					}},
				},
				"minimum_should_match": 1,
			},
		},
	}
}

// buildHashtagAggQuery returns the most used hashtags starting with prefix.
func buildHashtagAggQuery(prefix string, size int) map[string]interface{} {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if !strings.HasPrefix(prefix, "#") {
		prefix = "#" + prefix
	}
	return map[string]interface{}{
		"size": 0,
		"query": map[string]interface{}{
			"prefix": map[string]interface{}{"hashtags": prefix},
		},
		"aggs": map[string]interface{}{
			"hashtags": map[string]interface{}{
				"terms": map[string]interface{}{
					"field":   "hashtags",
					"size":    size,
					"include": escapeLuceneRegexp(prefix) + ".*",
				},
			},
		},
	}
}

func buildUpdateAuthorQuery(author domain.PostAuthor) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{"user.userId": author.UserID},
		},
		"script": map[string]interface{}{
			"lang":   "painless",
			"source": "ctx._source.user.userName = params.userName; ctx._source.user.pfp = params.pfp",
			"params": map[string]interface{}{
				"userName": author.UserName,
				"pfp":      author.PfpURL,
			},
		},
	}
}

// escapeLuceneRegexp escapes everything but letters, digits and '_'.
func escapeLuceneRegexp(s string) string {
	var b strings.Builder
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// cursorFromSort turns the sort values of a hit back into a Cursor.
func cursorFromSort(sort []json.RawMessage) *domain.Cursor {
	if len(sort) != 2 {
		return nil
	}
	var c domain.Cursor
	var ms json.Number
	if err := json.Unmarshal(sort[0], &ms); err != nil {
		return nil
	}
	v, err := ms.Int64()
	if err != nil {
		f, ferr := ms.Float64()
		if ferr != nil {
			return nil
		}
		v = int64(f)
	}
	c.DateTime = v
	if err := json.Unmarshal(sort[1], &c.PostID); err != nil {
		return nil
	}
	return &c
}

// Index mappings.

var postsMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"postId": map[string]interface{}{"type": "keyword"},
			"esId":   map[string]interface{}{"type": "keyword"},
			"user": map[string]interface{}{
				"properties": map[string]interface{}{
					"userId":   map[string]interface{}{"type": "keyword"},
					"userName": map[string]interface{}{"type": "keyword"},
					"pfp":      map[string]interface{}{"type": "keyword", "index": false},
				},
			},
			"caption":  map[string]interface{}{"type": "text"},
			"hashtags": map[string]interface{}{"type": "keyword"},
			"mentions": map[string]interface{}{"type": "keyword"},
			"media":    map[string]interface{}{"type": "object", "enabled": false},
			"location": map[string]interface{}{
				"type": "nested",
				"properties": map[string]interface{}{
					"id":      map[string]interface{}{"type": "keyword"},
					"name":    map[string]interface{}{"type": "text", "fields": map[string]interface{}{"keyword": map[string]interface{}{"type": "keyword"}}},
					"street":  map[string]interface{}{"type": "text"},
					"city":    map[string]interface{}{"type": "text"},
					"state":   map[string]interface{}{"type": "text"},
					"country": map[string]interface{}{"type": "text"},
					"lat":     map[string]interface{}{"type": "double"},
					"lon":     map[string]interface{}{"type": "double"},
				},
			},
			"commentsDisabled": map[string]interface{}{"type": "boolean"},
			"likesHidden":      map[string]interface{}{"type": "boolean"},
			"dateTime":         map[string]interface{}{"type": "date"},
			"updatedAt":        map[string]interface{}{"type": "date"},
		},
	},
}

var profilesMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"userId":    map[string]interface{}{"type": "keyword"},
			"userName":  map[string]interface{}{"type": "text", "fields": map[string]interface{}{"keyword": map[string]interface{}{"type": "keyword"}}},
			"name":      map[string]interface{}{"type": "text"},
			"bio":       map[string]interface{}{"type": "text"},
			"pronouns":  map[string]interface{}{"type": "keyword", "index": false},
			"gender":    map[string]interface{}{"type": "keyword", "index": false},
			"link":      map[string]interface{}{"type": "keyword", "index": false},
			"pfp":       map[string]interface{}{"type": "keyword", "index": false},
			"isPrivate": map[string]interface{}{"type": "boolean"},
		},
	},
}
