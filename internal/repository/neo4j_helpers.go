package repository

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
)

func getString(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getInt64(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func getBool(record *neo4j.Record, key string) bool {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return false
	}
	b, _ := val.(bool)
	return b
}

func getStringSlice(record *neo4j.Record, key string) []string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return []string{}
	}
	list, ok := val.([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func getMap(record *neo4j.Record, key string) map[string]interface{} {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return nil
	}
	m, _ := val.(map[string]interface{})
	return m
}

func stringFromMap(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func int64FromMap(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func boolFromMap(m map[string]interface{}, key string) bool {
	b, _ := m[key].(bool)
	return b
}

// Timestamps are stored as epoch milliseconds.
func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func userFromMap(m map[string]interface{}) *domain.User {
	if m == nil {
		return nil
	}
	return &domain.User{
		ID:           stringFromMap(m, "id"),
		UserName:     stringFromMap(m, "userName"),
		Name:         stringFromMap(m, "name"),
		Email:        stringFromMap(m, "email"),
		Phone:        stringFromMap(m, "phone"),
		PasswordHash: stringFromMap(m, "passwordHash"),
		Bio:          stringFromMap(m, "bio"),
		Pronouns:     stringFromMap(m, "pronouns"),
		Gender:       stringFromMap(m, "gender"),
		Link:         stringFromMap(m, "link"),
		PfpURL:       stringFromMap(m, "pfp"),
		IsPrivate:    boolFromMap(m, "isPrivate"),
		Confirmed:    boolFromMap(m, "confirmed"),
		CreatedAt:    fromMillis(int64FromMap(m, "createdAt")),
		UpdatedAt:    fromMillis(int64FromMap(m, "updatedAt")),
	}
}

func userSummaryFromRecord(record *neo4j.Record) domain.UserSummary {
	return domain.UserSummary{
		UserID:   getString(record, "userId"),
		UserName: getString(record, "userName"),
		Name:     getString(record, "name"),
		PfpURL:   getString(record, "pfp"),
	}
}

func commentFromRecord(record *neo4j.Record) domain.Comment {
	return domain.Comment{
		CommentID:       getString(record, "commentId"),
		Text:            getString(record, "text"),
		DateTime:        fromMillis(getInt64(record, "dateTime")),
		PostID:          getString(record, "postId"),
		ParentCommentID: getString(record, "parentId"),
		User: domain.UserSummary{
			UserID:   getString(record, "userId"),
			UserName: getString(record, "userName"),
			PfpURL:   getString(record, "pfp"),
		},
		LikeCount:  getInt64(record, "likeCount"),
		ReplyCount: getInt64(record, "replyCount"),
		LikedByMe:  getBool(record, "likedByMe"),
	}
}

func pageParams(params map[string]any, page domain.Page) map[string]any {
	params["skip"] = int64(page.Offset)
	params["limit"] = int64(page.Limit)
	return params
}
