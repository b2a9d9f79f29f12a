package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
)

// neo4jGraphTx binds one explicit transaction to one session, so every
// statement of a write path is covered by the same commit or rollback.
type neo4jGraphTx struct {
	session neo4j.SessionWithContext
	tx      neo4j.ExplicitTransaction
	done    bool
}

func (t *neo4jGraphTx) run(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, neo4j.Counters, error) {
	if t.done {
		return nil, nil, ErrTxDone
	}
	result, err := t.tx.Run(ctx, query, params)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to execute query: %w", err)
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to collect result: %w", err)
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to consume result: %w", err)
	}
	return records, summary.Counters(), nil
}

func (t *neo4jGraphTx) count(ctx context.Context, query string, params map[string]any) (int64, error) {
	records, _, err := t.run(ctx, query, params)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	return getInt64(records[0], "n"), nil
}

func (t *neo4jGraphTx) CreateUser(ctx context.Context, u *domain.User) error {
	nameLower := strings.ToLower(u.UserName)
	n, err := t.count(ctx, "MATCH (x:User {userNameLower: $name}) RETURN count(x) AS n", map[string]any{"name": nameLower})
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrUserNameExists
	}

	if u.Email != "" || u.Phone != "" {
		n, err = t.count(ctx, `
			MATCH (x:User)
			WHERE ($email <> '' AND x.email = $email) OR ($phone <> '' AND x.phone = $phone)
			RETURN count(x) AS n`,
			map[string]any{"email": u.Email, "phone": u.Phone})
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrContactExists
		}
	}

	_, counters, err := t.run(ctx, `
		CREATE (u:User {
			id: $id, userName: $userName, userNameLower: $userNameLower, name: $name,
			email: $email, phone: $phone, passwordHash: $passwordHash,
			bio: '', pronouns: '', gender: '', link: '', pfp: $pfp,
			isPrivate: false, confirmed: $confirmed,
			createdAt: $createdAt, updatedAt: $createdAt
		})`,
		map[string]any{
			"id":            u.ID,
			"userName":      u.UserName,
			"userNameLower": nameLower,
			"name":          u.Name,
			"email":         u.Email,
			"phone":         u.Phone,
			"passwordHash":  u.PasswordHash,
			"pfp":           u.PfpURL,
			"confirmed":     u.Confirmed,
			"createdAt":     toMillis(u.CreatedAt),
		})
	if err != nil {
		return err
	}
	if counters.NodesCreated() != 1 {
		return fmt.Errorf("create user: expected 1 node, got %d", counters.NodesCreated())
	}
	return nil
}

func (t *neo4jGraphTx) setUser(ctx context.Context, userID string, props map[string]any) error {
	props["updatedAt"] = toMillis(time.Now())
	records, _, err := t.run(ctx,
		"MATCH (u:User {id: $id}) SET u += $props RETURN u.id AS id",
		map[string]any{"id": userID, "props": props})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *neo4jGraphTx) UpdateUser(ctx context.Context, userID string, props map[string]any) error {
	if name, ok := props["userName"].(string); ok {
		lower := strings.ToLower(name)
		n, err := t.count(ctx,
			"MATCH (x:User {userNameLower: $name}) WHERE x.id <> $id RETURN count(x) AS n",
			map[string]any{"name": lower, "id": userID})
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrUserNameExists
		}
		props["userNameLower"] = lower
	}
	return t.setUser(ctx, userID, props)
}

func (t *neo4jGraphTx) SetPassword(ctx context.Context, userID, hash string) error {
	return t.setUser(ctx, userID, map[string]any{"passwordHash": hash})
}

func (t *neo4jGraphTx) SetConfirmed(ctx context.Context, userID string) error {
	return t.setUser(ctx, userID, map[string]any{"confirmed": true})
}

func (t *neo4jGraphTx) MergeToken(ctx context.Context, userID string, tok domain.Token) error {
	records, _, err := t.run(ctx, `
		MATCH (u:User {id: $id})
		MERGE (u)-[:HAS_TOKEN]->(t:Token {kind: $kind})
		SET t.value = $value, t.expiresAt = $expiresAt
		RETURN t.value AS value`,
		map[string]any{
			"id":        userID,
			"kind":      string(tok.Kind),
			"value":     tok.Value,
			"expiresAt": toMillis(tok.ExpiresAt),
		})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *neo4jGraphTx) ConsumeToken(ctx context.Context, kind domain.TokenKind, value string, now time.Time) (string, error) {
	records, _, err := t.run(ctx, `
		MATCH (u:User)-[:HAS_TOKEN]->(t:Token {kind: $kind, value: $value})
		WHERE t.expiresAt > $now
		WITH u.id AS userId, t
		DETACH DELETE t
		RETURN userId`,
		map[string]any{"kind": string(kind), "value": value, "now": toMillis(now)})
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", ErrNotFound
	}
	return getString(records[0], "userId"), nil
}

func (t *neo4jGraphTx) CreatePost(ctx context.Context, ref domain.PostRef) error {
	_, counters, err := t.run(ctx, `
		MATCH (u:User {id: $userId})
		CREATE (p:Post {id: $id, esId: $esId, dateTime: $dateTime})
		CREATE (u)-[:POSTED]->(p), (p)-[:POSTED_BY]->(u)`,
		map[string]any{
			"userId":   ref.UserID,
			"id":       ref.PostID,
			"esId":     ref.ESID,
			"dateTime": toMillis(ref.DateTime),
		})
	if err != nil {
		return err
	}
	if counters.NodesCreated() != 1 {
		return ErrNotFound
	}
	return nil
}

func (t *neo4jGraphTx) DeletePost(ctx context.Context, postID string) ([]string, error) {
	records, _, err := t.run(ctx, `
		MATCH (p:Post {id: $id})
		OPTIONAL MATCH (p)-[:HAS_COMMENT]->(c:Comment)
		WITH p, collect(c) AS comments, collect(c.id) AS ids
		FOREACH (n IN comments | DETACH DELETE n)
		DETACH DELETE p
		RETURN ids`,
		map[string]any{"id": postID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return getStringSlice(records[0], "ids"), nil
}

func (t *neo4jGraphTx) CreateComment(ctx context.Context, c *domain.Comment) (int, error) {
	if c.ParentCommentID != "" {
		records, _, err := t.run(ctx, `
			MATCH (parent:Comment {id: $parentId})-[:ON_POST]->(p:Post)
			RETURN p.id AS postId`,
			map[string]any{"parentId": c.ParentCommentID})
		if err != nil {
			return 0, err
		}
		if len(records) == 0 {
			return 0, ErrNotFound
		}
		if getString(records[0], "postId") != c.PostID {
			return 0, ErrParentNotOnPost
		}
	}

	_, counters, err := t.run(ctx, `
		MATCH (u:User {id: $userId}), (p:Post {id: $postId})
		CREATE (c:Comment {id: $id, text: $text, dateTime: $dateTime})
		CREATE (u)-[:COMMENTED]->(c), (c)-[:COMMENTED_BY]->(u),
		       (c)-[:ON_POST]->(p), (p)-[:HAS_COMMENT]->(c)
		WITH c
		OPTIONAL MATCH (parent:Comment {id: $parentId})
		FOREACH (_ IN CASE WHEN parent IS NULL THEN [] ELSE [1] END |
			CREATE (parent)-[:HAS_REPLY]->(c), (c)-[:REPLY_TO]->(parent))`,
		map[string]any{
			"userId":   c.User.UserID,
			"postId":   c.PostID,
			"id":       c.CommentID,
			"text":     c.Text,
			"dateTime": toMillis(c.DateTime),
			"parentId": c.ParentCommentID,
		})
	if err != nil {
		return 0, err
	}
	if counters.NodesCreated() != 1 {
		return 0, ErrNotFound
	}
	return counters.RelationshipsCreated(), nil
}

func (t *neo4jGraphTx) DeleteCommentTree(ctx context.Context, commentID string) ([]string, error) {
	records, _, err := t.run(ctx, `
		MATCH (root:Comment {id: $id})
		OPTIONAL MATCH (root)-[:HAS_REPLY*1..]->(d:Comment)
		WITH root, collect(DISTINCT d) AS descendants
		WITH [root] + descendants AS nodes
		WITH nodes, [n IN nodes | n.id] AS ids
		FOREACH (n IN nodes | DETACH DELETE n)
		RETURN ids`,
		map[string]any{"id": commentID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return getStringSlice(records[0], "ids"), nil
}

// setEdgePair makes the mirrored pair (a)-[fwd]->(b), (b)-[back]->(a)
// present or absent. Labels and types come from the constants above.
func (t *neo4jGraphTx) setEdgePair(ctx context.Context, fromLabel, fromID, toLabel, toID, fwd, back string, on bool) (bool, error) {
	var query string
	if on {
		query = fmt.Sprintf(`
			MATCH (a:%s {id: $from}), (b:%s {id: $to})
			MERGE (a)-[:%s]->(b)
			MERGE (b)-[:%s]->(a)
			RETURN a.id AS id`, fromLabel, toLabel, fwd, back)
	} else {
		query = fmt.Sprintf(`
			MATCH (a:%s {id: $from}), (b:%s {id: $to})
			OPTIONAL MATCH (a)-[r1:%s]->(b)
			OPTIONAL MATCH (b)-[r2:%s]->(a)
			DELETE r1, r2
			RETURN a.id AS id`, fromLabel, toLabel, fwd, back)
	}

	records, counters, err := t.run(ctx, query, map[string]any{"from": fromID, "to": toID})
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		return false, ErrNotFound
	}
	if on {
		return counters.RelationshipsCreated() > 0, nil
	}
	return counters.RelationshipsDeleted() > 0, nil
}

func (t *neo4jGraphTx) SetFollow(ctx context.Context, followerID, followeeID string, on bool) (bool, error) {
	return t.setEdgePair(ctx, labelUser, followerID, labelUser, followeeID, relFollows, relFollowedBy, on)
}

func (t *neo4jGraphTx) SetPostLike(ctx context.Context, userID, postID string, on bool) (bool, error) {
	return t.setEdgePair(ctx, labelUser, userID, labelPost, postID, relLikes, relLikedBy, on)
}

func (t *neo4jGraphTx) SetCommentLike(ctx context.Context, userID, commentID string, on bool) (bool, error) {
	return t.setEdgePair(ctx, labelUser, userID, labelComment, commentID, relLikes, relLikedBy, on)
}

func (t *neo4jGraphTx) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.session.Close(ctx)
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (t *neo4jGraphTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.session.Close(ctx)
	if err := t.tx.Rollback(ctx); err != nil {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}
