package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
	"github.com/StormyOasis/linsta-sub001/pkg/log"
)

// Node labels and relationship types. Every relation is stored as a
// mirrored pair so it can be walked cheaply from either end.
const (
	labelUser    = "User"
	labelPost    = "Post"
	labelComment = "Comment"

	relFollows     = "FOLLOWS"
	relFollowedBy  = "FOLLOWED_BY"
	relLikes       = "LIKES"
	relLikedBy     = "LIKED_BY"
	relPosted      = "POSTED"
	relPostedBy    = "POSTED_BY"
	relCommented   = "COMMENTED"
	relCommentedBy = "COMMENTED_BY"
	relOnPost      = "ON_POST"
	relHasComment  = "HAS_COMMENT"
	relHasReply    = "HAS_REPLY"
	relReplyTo     = "REPLY_TO"
	relHasToken    = "HAS_TOKEN"
)

var schemaStatements = []string{
	"CREATE CONSTRAINT user_id IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE",
	"CREATE CONSTRAINT user_name IF NOT EXISTS FOR (u:User) REQUIRE u.userNameLower IS UNIQUE",
	"CREATE CONSTRAINT post_id IF NOT EXISTS FOR (p:Post) REQUIRE p.id IS UNIQUE",
	"CREATE CONSTRAINT comment_id IF NOT EXISTS FOR (c:Comment) REQUIRE c.id IS UNIQUE",
	"CREATE INDEX user_email IF NOT EXISTS FOR (u:User) ON (u.email)",
	"CREATE INDEX user_phone IF NOT EXISTS FOR (u:User) ON (u.phone)",
	"CREATE INDEX token_value IF NOT EXISTS FOR (t:Token) ON (t.value)",
}

type neo4jGraphRepository struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jGraphRepository creates a graph repository on a Neo4j driver.
func NewNeo4jGraphRepository(driver neo4j.DriverWithContext, database string) GraphRepository {
	return &neo4jGraphRepository{driver: driver, database: database}
}

// EnsureSchema creates the constraints and indexes the queries rely on.
func EnsureSchema(ctx context.Context, driver neo4j.DriverWithContext, database string) error {
	for _, stmt := range schemaStatements {
		_, err := neo4j.ExecuteQuery(ctx, driver, stmt, nil, neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(database))
		if err != nil {
			return fmt.Errorf("schema %q: %w", stmt, err)
		}
	}
	return nil
}

// Begin opens a write session and an explicit transaction on it.
func (r *neo4jGraphRepository) Begin(ctx context.Context) (GraphTx, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: r.database,
	})
	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		session.Close(ctx)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &neo4jGraphTx{session: session, tx: tx}, nil
}

func (r *neo4jGraphRepository) read(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	res, err := neo4j.ExecuteQuery(ctx, r.driver, query, params, neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(r.database),
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("graph read failed")
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return res.Records, nil
}

func (r *neo4jGraphRepository) readUser(ctx context.Context, where string, params map[string]any) (*domain.User, error) {
	records, err := r.read(ctx, "MATCH (u:User) WHERE "+where+" RETURN u {.*} AS u LIMIT 1", params)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return userFromMap(getMap(records[0], "u")), nil
}

func (r *neo4jGraphRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.readUser(ctx, "u.id = $id", map[string]any{"id": id})
}

func (r *neo4jGraphRepository) GetUserByName(ctx context.Context, userName string) (*domain.User, error) {
	return r.readUser(ctx, "u.userNameLower = $name", map[string]any{"name": strings.ToLower(userName)})
}

func (r *neo4jGraphRepository) GetUserByContact(ctx context.Context, contact string) (*domain.User, error) {
	return r.readUser(ctx, "u.email = $contact OR u.phone = $contact",
		map[string]any{"contact": strings.ToLower(strings.TrimSpace(contact))})
}

func (r *neo4jGraphRepository) UserNameExists(ctx context.Context, userName string) (bool, error) {
	records, err := r.read(ctx,
		"MATCH (u:User {userNameLower: $name}) RETURN count(u) AS n",
		map[string]any{"name": strings.ToLower(userName)})
	if err != nil {
		return false, err
	}
	return len(records) > 0 && getInt64(records[0], "n") > 0, nil
}

func (r *neo4jGraphRepository) GetUserStats(ctx context.Context, userID string) (*domain.UserStats, error) {
	query := `
		MATCH (u:User {id: $id})
		RETURN COUNT { (u)-[:FOLLOWED_BY]->(:User) } AS followers,
		       COUNT { (u)-[:FOLLOWS]->(:User) } AS following,
		       COUNT { (u)-[:POSTED]->(:Post) } AS posts`
	records, err := r.read(ctx, query, map[string]any{"id": userID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return &domain.UserStats{
		Followers: getInt64(records[0], "followers"),
		Following: getInt64(records[0], "following"),
		Posts:     getInt64(records[0], "posts"),
	}, nil
}

func (r *neo4jGraphRepository) userList(ctx context.Context, rel, id string, page domain.Page) ([]domain.UserSummary, error) {
	query := fmt.Sprintf(`
		MATCH (:User {id: $id})-[:%s]->(f:User)
		RETURN f.id AS userId, f.userName AS userName, f.name AS name, f.pfp AS pfp
		ORDER BY f.userNameLower
		SKIP $skip LIMIT $limit`, rel)
	records, err := r.read(ctx, query, pageParams(map[string]any{"id": id}, page))
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, userSummaryFromRecord(rec))
	}
	return out, nil
}

func (r *neo4jGraphRepository) GetFollowers(ctx context.Context, userID string, page domain.Page) ([]domain.UserSummary, error) {
	return r.userList(ctx, relFollowedBy, userID, page)
}

func (r *neo4jGraphRepository) GetFollowing(ctx context.Context, userID string, page domain.Page) ([]domain.UserSummary, error) {
	return r.userList(ctx, relFollows, userID, page)
}

func (r *neo4jGraphRepository) GetFollowingIDs(ctx context.Context, userID string) ([]string, error) {
	records, err := r.read(ctx,
		"MATCH (:User {id: $id})-[:FOLLOWS]->(f:User) RETURN collect(f.id) AS ids",
		map[string]any{"id": userID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []string{}, nil
	}
	return getStringSlice(records[0], "ids"), nil
}

func (r *neo4jGraphRepository) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	records, err := r.read(ctx,
		"RETURN EXISTS { (:User {id: $from})-[:FOLLOWS]->(:User {id: $to}) } AS following",
		map[string]any{"from": followerID, "to": followeeID})
	if err != nil {
		return false, err
	}
	return len(records) > 0 && getBool(records[0], "following"), nil
}

func (r *neo4jGraphRepository) GetPost(ctx context.Context, postID string) (*domain.PostRef, error) {
	records, err := r.read(ctx, `
		MATCH (p:Post {id: $id})-[:POSTED_BY]->(u:User)
		RETURN p.id AS postId, p.esId AS esId, p.dateTime AS dateTime, u.id AS userId`,
		map[string]any{"id": postID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	rec := records[0]
	return &domain.PostRef{
		PostID:   getString(rec, "postId"),
		ESID:     getString(rec, "esId"),
		UserID:   getString(rec, "userId"),
		DateTime: fromMillis(getInt64(rec, "dateTime")),
	}, nil
}

func (r *neo4jGraphRepository) GetPostRefsByUser(ctx context.Context, userID string) ([]domain.PostRef, error) {
	records, err := r.read(ctx, `
		MATCH (u:User {id: $id})-[:POSTED]->(p:Post)
		RETURN p.id AS postId, p.esId AS esId, p.dateTime AS dateTime
		ORDER BY p.dateTime DESC`,
		map[string]any{"id": userID})
	if err != nil {
		return nil, err
	}
	out := make([]domain.PostRef, 0, len(records))
	for _, rec := range records {
		out = append(out, domain.PostRef{
			PostID:   getString(rec, "postId"),
			ESID:     getString(rec, "esId"),
			UserID:   userID,
			DateTime: fromMillis(getInt64(rec, "dateTime")),
		})
	}
	return out, nil
}

func (r *neo4jGraphRepository) GetPostStats(ctx context.Context, postID, viewerID string) (*domain.PostStats, error) {
	records, err := r.read(ctx, `
		MATCH (p:Post {id: $id})
		RETURN COUNT { (p)-[:LIKED_BY]->(:User) } AS likeCount,
		       COUNT { (p)-[:HAS_COMMENT]->(:Comment) } AS commentCount,
		       EXISTS { (p)-[:LIKED_BY]->(:User {id: $viewer}) } AS likedByMe`,
		map[string]any{"id": postID, "viewer": viewerID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return &domain.PostStats{
		LikeCount:    getInt64(records[0], "likeCount"),
		CommentCount: getInt64(records[0], "commentCount"),
		LikedByMe:    getBool(records[0], "likedByMe"),
	}, nil
}

func (r *neo4jGraphRepository) GetPostLikes(ctx context.Context, postID string, page domain.Page) ([]domain.UserSummary, error) {
	records, err := r.read(ctx, `
		MATCH (:Post {id: $id})-[:LIKED_BY]->(f:User)
		RETURN f.id AS userId, f.userName AS userName, f.name AS name, f.pfp AS pfp
		ORDER BY f.userNameLower
		SKIP $skip LIMIT $limit`,
		pageParams(map[string]any{"id": postID}, page))
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, userSummaryFromRecord(rec))
	}
	return out, nil
}

const commentProjection = `
		RETURN c.id AS commentId, c.text AS text, c.dateTime AS dateTime,
		       p.id AS postId,
		       [(c)-[:REPLY_TO]->(pc:Comment) | pc.id][0] AS parentId,
		       u.id AS userId, u.userName AS userName, u.pfp AS pfp,
		       COUNT { (c)-[:LIKED_BY]->(:User) } AS likeCount,
		       COUNT { (c)-[:HAS_REPLY]->(:Comment) } AS replyCount,
		       EXISTS { (c)-[:LIKED_BY]->(:User {id: $viewer}) } AS likedByMe`

func (r *neo4jGraphRepository) comments(ctx context.Context, match string, params map[string]any) ([]domain.Comment, error) {
	records, err := r.read(ctx, match+commentProjection+`
		ORDER BY c.dateTime ASC, c.id ASC
		SKIP $skip LIMIT $limit`, params)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Comment, 0, len(records))
	for _, rec := range records {
		out = append(out, commentFromRecord(rec))
	}
	return out, nil
}

func (r *neo4jGraphRepository) GetComment(ctx context.Context, commentID string) (*domain.Comment, error) {
	list, err := r.comments(ctx, `
		MATCH (c:Comment {id: $id})-[:ON_POST]->(p:Post), (c)-[:COMMENTED_BY]->(u:User)`,
		pageParams(map[string]any{"id": commentID, "viewer": ""}, domain.Page{Limit: 1}))
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

func (r *neo4jGraphRepository) GetComments(ctx context.Context, postID, viewerID string, page domain.Page) ([]domain.Comment, error) {
	return r.comments(ctx, `
		MATCH (p:Post {id: $id})-[:HAS_COMMENT]->(c:Comment)-[:COMMENTED_BY]->(u:User)
		WHERE NOT (c)-[:REPLY_TO]->(:Comment)`,
		pageParams(map[string]any{"id": postID, "viewer": viewerID}, page))
}

func (r *neo4jGraphRepository) GetReplies(ctx context.Context, commentID, viewerID string, page domain.Page) ([]domain.Comment, error) {
	return r.comments(ctx, `
		MATCH (:Comment {id: $id})-[:HAS_REPLY]->(c:Comment)-[:COMMENTED_BY]->(u:User), (c)-[:ON_POST]->(p:Post)`,
		pageParams(map[string]any{"id": commentID, "viewer": viewerID}, page))
}
