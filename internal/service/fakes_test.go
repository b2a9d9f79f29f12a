package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/StormyOasis/linsta-sub001/internal/cache"
	"github.com/StormyOasis/linsta-sub001/internal/domain"
	"github.com/StormyOasis/linsta-sub001/internal/media"
	"github.com/StormyOasis/linsta-sub001/internal/repository"
	"github.com/StormyOasis/linsta-sub001/internal/saga"
	"github.com/StormyOasis/linsta-sub001/pkg/jwt"
)

var errBoom = errors.New("boom")

// --- graph ---

type edge struct {
	from, rel, to string
}

type graphState struct {
	users    map[string]domain.User
	tokens   map[string]map[domain.TokenKind]domain.Token
	posts    map[string]domain.PostRef
	comments map[string]domain.Comment
	edges    map[edge]struct{}
}

func newGraphState() *graphState {
	return &graphState{
		users:    map[string]domain.User{},
		tokens:   map[string]map[domain.TokenKind]domain.Token{},
		posts:    map[string]domain.PostRef{},
		comments: map[string]domain.Comment{},
		edges:    map[edge]struct{}{},
	}
}

func (s *graphState) clone() *graphState {
	c := newGraphState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tokens {
		m := make(map[domain.TokenKind]domain.Token, len(v))
		for kk, vv := range v {
			m[kk] = vv
		}
		c.tokens[k] = m
	}
	for k, v := range s.posts {
		c.posts[k] = v
	}
	for k, v := range s.comments {
		c.comments[k] = v
	}
	for k := range s.edges {
		c.edges[k] = struct{}{}
	}
	return c
}

func (s *graphState) has(from, rel, to string) bool {
	_, ok := s.edges[edge{from, rel, to}]
	return ok
}

// setPair makes the mirrored edge pair present or absent.
func (s *graphState) setPair(from, rel, inverse, to string, on bool) bool {
	if s.has(from, rel, to) == on {
		return false
	}
	if on {
		s.edges[edge{from, rel, to}] = struct{}{}
		s.edges[edge{to, inverse, from}] = struct{}{}
	} else {
		delete(s.edges, edge{from, rel, to})
		delete(s.edges, edge{to, inverse, from})
	}
	return true
}

func (s *graphState) detach(id string) {
	for e := range s.edges {
		if e.from == id || e.to == id {
			delete(s.edges, e)
		}
	}
}

func (s *graphState) count(rel, to string) int64 {
	var n int64
	for e := range s.edges {
		if e.rel == rel && e.to == to {
			n++
		}
	}
	return n
}

func (s *graphState) summary(id string) domain.UserSummary {
	u := s.users[id]
	return domain.UserSummary{UserID: u.ID, UserName: u.UserName, Name: u.Name, PfpURL: u.PfpURL}
}

func (s *graphState) sources(rel, to string) []string {
	var ids []string
	for e := range s.edges {
		if e.rel == rel && e.to == to {
			ids = append(ids, e.from)
		}
	}
	sort.Strings(ids)
	return ids
}

func (s *graphState) userByName(name string) (domain.User, bool) {
	for _, u := range s.users {
		if strings.EqualFold(u.UserName, name) {
			return u, true
		}
	}
	return domain.User{}, false
}

func (s *graphState) comment(id, viewerID string) domain.Comment {
	c := s.comments[id]
	c.LikeCount = s.count("LIKES", id)
	c.ReplyCount = s.count("REPLY_TO", id)
	c.LikedByMe = s.has(viewerID, "LIKES", id)
	return c
}

// memGraph is an in-memory graph store. Transactions work on a copy of the
// state and swap it in on commit.
type memGraph struct {
	mu        sync.Mutex
	st        *graphState
	commitErr error
}

func newMemGraph() *memGraph {
	return &memGraph{st: newGraphState()}
}

func (g *memGraph) read() *graphState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.st
}

func (g *memGraph) edgeCount() int {
	return len(g.read().edges)
}

func (g *memGraph) hasEdge(from, rel, to string) bool {
	return g.read().has(from, rel, to)
}

func (g *memGraph) addUser(u domain.User) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.st.users[u.ID] = u
}

func (g *memGraph) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := g.read().users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (g *memGraph) GetUserByName(_ context.Context, name string) (*domain.User, error) {
	u, ok := g.read().userByName(name)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (g *memGraph) GetUserByContact(_ context.Context, contact string) (*domain.User, error) {
	for _, u := range g.read().users {
		if (u.Email != "" && u.Email == contact) || (u.Phone != "" && u.Phone == contact) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (g *memGraph) UserNameExists(_ context.Context, name string) (bool, error) {
	_, ok := g.read().userByName(name)
	return ok, nil
}

func (g *memGraph) GetUserStats(_ context.Context, userID string) (*domain.UserStats, error) {
	st := g.read()
	if _, ok := st.users[userID]; !ok {
		return nil, repository.ErrNotFound
	}
	return &domain.UserStats{
		Followers: st.count("FOLLOWS", userID),
		Following: st.count("FOLLOWED_BY", userID),
		Posts:     st.count("POSTED_BY", userID),
	}, nil
}

func (g *memGraph) summaries(ids []string, page domain.Page) []domain.UserSummary {
	st := g.read()
	out := []domain.UserSummary{}
	for i, id := range ids {
		if i < page.Offset || len(out) >= page.Limit {
			continue
		}
		out = append(out, st.summary(id))
	}
	return out
}

func (g *memGraph) GetFollowers(_ context.Context, userID string, page domain.Page) ([]domain.UserSummary, error) {
	return g.summaries(g.read().sources("FOLLOWS", userID), page), nil
}

func (g *memGraph) GetFollowing(_ context.Context, userID string, page domain.Page) ([]domain.UserSummary, error) {
	return g.summaries(g.read().sources("FOLLOWED_BY", userID), page), nil
}

func (g *memGraph) GetFollowingIDs(_ context.Context, userID string) ([]string, error) {
	return g.read().sources("FOLLOWED_BY", userID), nil
}

func (g *memGraph) IsFollowing(_ context.Context, followerID, followeeID string) (bool, error) {
	return g.read().has(followerID, "FOLLOWS", followeeID), nil
}

func (g *memGraph) GetPost(_ context.Context, postID string) (*domain.PostRef, error) {
	p, ok := g.read().posts[postID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (g *memGraph) GetPostRefsByUser(_ context.Context, userID string) ([]domain.PostRef, error) {
	var refs []domain.PostRef
	for _, p := range g.read().posts {
		if p.UserID == userID {
			refs = append(refs, p)
		}
	}
	return refs, nil
}

func (g *memGraph) GetPostStats(_ context.Context, postID, viewerID string) (*domain.PostStats, error) {
	st := g.read()
	if _, ok := st.posts[postID]; !ok {
		return nil, repository.ErrNotFound
	}
	return &domain.PostStats{
		LikeCount:    st.count("LIKES", postID),
		CommentCount: st.count("ON_POST", postID),
		LikedByMe:    st.has(viewerID, "LIKES", postID),
	}, nil
}

func (g *memGraph) GetPostLikes(_ context.Context, postID string, page domain.Page) ([]domain.UserSummary, error) {
	return g.summaries(g.read().sources("LIKES", postID), page), nil
}

func (g *memGraph) GetComment(_ context.Context, id string) (*domain.Comment, error) {
	st := g.read()
	if _, ok := st.comments[id]; !ok {
		return nil, repository.ErrNotFound
	}
	c := st.comment(id, "")
	return &c, nil
}

func (g *memGraph) commentList(ids []string, viewerID string, page domain.Page, keep func(domain.Comment) bool) []domain.Comment {
	st := g.read()
	out := []domain.Comment{}
	n := 0
	for _, id := range ids {
		c := st.comment(id, viewerID)
		if !keep(c) {
			continue
		}
		if n >= page.Offset && len(out) < page.Limit {
			out = append(out, c)
		}
		n++
	}
	return out
}

func (g *memGraph) GetComments(_ context.Context, postID, viewerID string, page domain.Page) ([]domain.Comment, error) {
	ids := g.read().sources("ON_POST", postID)
	return g.commentList(ids, viewerID, page, func(c domain.Comment) bool { return c.ParentCommentID == "" }), nil
}

func (g *memGraph) GetReplies(_ context.Context, commentID, viewerID string, page domain.Page) ([]domain.Comment, error) {
	ids := g.read().sources("REPLY_TO", commentID)
	return g.commentList(ids, viewerID, page, func(domain.Comment) bool { return true }), nil
}

func (g *memGraph) Begin(context.Context) (repository.GraphTx, error) {
	return &memTx{g: g, st: g.read().clone()}, nil
}

type memTx struct {
	g    *memGraph
	st   *graphState
	done bool
}

func (t *memTx) live() error {
	if t.done {
		return repository.ErrTxDone
	}
	return nil
}

func (t *memTx) CreateUser(_ context.Context, u *domain.User) error {
	if err := t.live(); err != nil {
		return err
	}
	if _, ok := t.st.userByName(u.UserName); ok {
		return repository.ErrUserNameExists
	}
	for _, other := range t.st.users {
		if (u.Email != "" && other.Email == u.Email) || (u.Phone != "" && other.Phone == u.Phone) {
			return repository.ErrContactExists
		}
	}
	t.st.users[u.ID] = *u
	return nil
}

func (t *memTx) UpdateUser(_ context.Context, userID string, props map[string]any) error {
	if err := t.live(); err != nil {
		return err
	}
	u, ok := t.st.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if name, ok := props["userName"].(string); ok {
		if other, taken := t.st.userByName(name); taken && other.ID != userID {
			return repository.ErrUserNameExists
		}
		u.UserName = name
	}
	for k, v := range props {
		switch k {
		case "name":
			u.Name = v.(string)
		case "bio":
			u.Bio = v.(string)
		case "pronouns":
			u.Pronouns = v.(string)
		case "gender":
			u.Gender = v.(string)
		case "link":
			u.Link = v.(string)
		case "pfp":
			u.PfpURL = v.(string)
		case "isPrivate":
			u.IsPrivate = v.(bool)
		}
	}
	t.st.users[userID] = u
	return nil
}

func (t *memTx) SetPassword(_ context.Context, userID, hash string) error {
	if err := t.live(); err != nil {
		return err
	}
	u, ok := t.st.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	t.st.users[userID] = u
	return nil
}

func (t *memTx) SetConfirmed(_ context.Context, userID string) error {
	if err := t.live(); err != nil {
		return err
	}
	u, ok := t.st.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.Confirmed = true
	t.st.users[userID] = u
	return nil
}

func (t *memTx) MergeToken(_ context.Context, userID string, tok domain.Token) error {
	if err := t.live(); err != nil {
		return err
	}
	if _, ok := t.st.users[userID]; !ok {
		return repository.ErrNotFound
	}
	if t.st.tokens[userID] == nil {
		t.st.tokens[userID] = map[domain.TokenKind]domain.Token{}
	}
	t.st.tokens[userID][tok.Kind] = tok
	return nil
}

func (t *memTx) ConsumeToken(_ context.Context, kind domain.TokenKind, value string, now time.Time) (string, error) {
	if err := t.live(); err != nil {
		return "", err
	}
	for userID, toks := range t.st.tokens {
		tok, ok := toks[kind]
		if ok && tok.Value == value && tok.ExpiresAt.After(now) {
			delete(toks, kind)
			return userID, nil
		}
	}
	return "", repository.ErrNotFound
}

func (t *memTx) CreatePost(_ context.Context, ref domain.PostRef) error {
	if err := t.live(); err != nil {
		return err
	}
	if _, ok := t.st.users[ref.UserID]; !ok {
		return repository.ErrNotFound
	}
	t.st.posts[ref.PostID] = ref
	t.st.setPair(ref.UserID, "POSTED", "POSTED_BY", ref.PostID, true)
	return nil
}

func (t *memTx) DeletePost(ctx context.Context, postID string) ([]string, error) {
	if err := t.live(); err != nil {
		return nil, err
	}
	if _, ok := t.st.posts[postID]; !ok {
		return nil, repository.ErrNotFound
	}
	ids := t.st.sources("ON_POST", postID)
	for _, id := range ids {
		t.st.detach(id)
		delete(t.st.comments, id)
	}
	t.st.detach(postID)
	delete(t.st.posts, postID)
	return ids, nil
}

func (t *memTx) CreateComment(_ context.Context, c *domain.Comment) (int, error) {
	if err := t.live(); err != nil {
		return 0, err
	}
	if c.ParentCommentID != "" {
		parent, ok := t.st.comments[c.ParentCommentID]
		if !ok {
			return 0, repository.ErrNotFound
		}
		if parent.PostID != c.PostID {
			return 0, repository.ErrParentNotOnPost
		}
	}
	if _, ok := t.st.users[c.User.UserID]; !ok {
		return 0, repository.ErrNotFound
	}
	if _, ok := t.st.posts[c.PostID]; !ok {
		return 0, repository.ErrNotFound
	}

	before := len(t.st.edges)
	t.st.comments[c.CommentID] = *c
	t.st.setPair(c.User.UserID, "COMMENTED", "COMMENTED_BY", c.CommentID, true)
	t.st.setPair(c.CommentID, "ON_POST", "HAS_COMMENT", c.PostID, true)
	if c.ParentCommentID != "" {
		t.st.setPair(c.ParentCommentID, "HAS_REPLY", "REPLY_TO", c.CommentID, true)
	}
	return len(t.st.edges) - before, nil
}

func (t *memTx) DeleteCommentTree(_ context.Context, commentID string) ([]string, error) {
	if err := t.live(); err != nil {
		return nil, err
	}
	if _, ok := t.st.comments[commentID]; !ok {
		return nil, repository.ErrNotFound
	}
	ids := []string{commentID}
	for i := 0; i < len(ids); i++ {
		for e := range t.st.edges {
			if e.from == ids[i] && e.rel == "HAS_REPLY" {
				ids = append(ids, e.to)
			}
		}
	}
	for _, id := range ids {
		t.st.detach(id)
		delete(t.st.comments, id)
	}
	return ids, nil
}

func (t *memTx) SetFollow(_ context.Context, followerID, followeeID string, on bool) (bool, error) {
	if err := t.live(); err != nil {
		return false, err
	}
	_, a := t.st.users[followerID]
	_, b := t.st.users[followeeID]
	if !a || !b {
		return false, repository.ErrNotFound
	}
	return t.st.setPair(followerID, "FOLLOWS", "FOLLOWED_BY", followeeID, on), nil
}

func (t *memTx) SetPostLike(_ context.Context, userID, postID string, on bool) (bool, error) {
	if err := t.live(); err != nil {
		return false, err
	}
	if _, ok := t.st.posts[postID]; !ok {
		return false, repository.ErrNotFound
	}
	return t.st.setPair(userID, "LIKES", "LIKED_BY", postID, on), nil
}

func (t *memTx) SetCommentLike(_ context.Context, userID, commentID string, on bool) (bool, error) {
	if err := t.live(); err != nil {
		return false, err
	}
	if _, ok := t.st.comments[commentID]; !ok {
		return false, repository.ErrNotFound
	}
	return t.st.setPair(userID, "LIKES", "LIKED_BY", commentID, on), nil
}

func (t *memTx) Commit(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.g.mu.Lock()
	defer t.g.mu.Unlock()
	if t.g.commitErr != nil {
		return t.g.commitErr
	}
	t.g.st = t.st
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	t.done = true
	return nil
}

// --- index ---

type memPostIndex struct {
	mu        sync.Mutex
	docs      map[string]domain.Post
	indexErr  error
	deleteErr error
	authorErr error
}

func newMemPostIndex() *memPostIndex {
	return &memPostIndex{docs: map[string]domain.Post{}}
}

func (x *memPostIndex) Index(_ context.Context, p *domain.Post) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.indexErr != nil {
		return x.indexErr
	}
	cp := *p
	cp.Media = append([]domain.MediaItem(nil), p.Media...)
	x.docs[p.ESID] = cp
	return nil
}

func (x *memPostIndex) Get(_ context.Context, esID string) (*domain.Post, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	p, ok := x.docs[esID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (x *memPostIndex) Delete(_ context.Context, esID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.deleteErr != nil {
		return x.deleteErr
	}
	delete(x.docs, esID)
	return nil
}

func (x *memPostIndex) sorted(keep func(domain.Post) bool, size int) *domain.PostPage {
	x.mu.Lock()
	defer x.mu.Unlock()
	posts := []domain.Post{}
	for _, p := range x.docs {
		if keep(p) {
			posts = append(posts, p)
		}
	}
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].DateTime.Equal(posts[j].DateTime) {
			return posts[i].DateTime.After(posts[j].DateTime)
		}
		return posts[i].PostID > posts[j].PostID
	})
	if len(posts) > size {
		posts = posts[:size]
	}
	return &domain.PostPage{Posts: posts}
}

func (x *memPostIndex) Search(_ context.Context, term string, _ *domain.Cursor, size int) (*domain.PostPage, error) {
	term = strings.ToLower(term)
	return x.sorted(func(p domain.Post) bool {
		if strings.HasPrefix(term, "#") {
			for _, h := range p.Hashtags {
				if h == term {
					return true
				}
			}
			return false
		}
		return strings.Contains(strings.ToLower(p.Caption), term)
	}, size), nil
}

func (x *memPostIndex) ByAuthors(_ context.Context, userIDs []string, _ *domain.Cursor, size int) (*domain.PostPage, error) {
	set := map[string]bool{}
	for _, id := range userIDs {
		set[id] = true
	}
	return x.sorted(func(p domain.Post) bool { return set[p.User.UserID] }, size), nil
}

func (x *memPostIndex) UpdateAuthor(_ context.Context, a domain.PostAuthor) (int64, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.authorErr != nil {
		return 0, x.authorErr
	}
	var n int64
	for id, p := range x.docs {
		if p.User.UserID == a.UserID {
			p.User = a
			x.docs[id] = p
			n++
		}
	}
	return n, nil
}

func (x *memPostIndex) TopHashtags(_ context.Context, prefix string, size int) ([]string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	counts := map[string]int{}
	for _, p := range x.docs {
		for _, h := range p.Hashtags {
			if strings.HasPrefix(h, "#"+strings.ToLower(prefix)) {
				counts[h]++
			}
		}
	}
	out := make([]string, 0, len(counts))
	for h := range counts {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})
	if len(out) > size {
		out = out[:size]
	}
	return out, nil
}

type memProfileIndex struct {
	mu        sync.Mutex
	docs      map[string]domain.Profile
	indexErr  error
	deleteErr error
}

func newMemProfileIndex() *memProfileIndex {
	return &memProfileIndex{docs: map[string]domain.Profile{}}
}

func (x *memProfileIndex) Index(_ context.Context, p *domain.Profile) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.indexErr != nil {
		return x.indexErr
	}
	x.docs[p.UserID] = *p
	return nil
}

func (x *memProfileIndex) Get(_ context.Context, userID string) (*domain.Profile, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	p, ok := x.docs[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (x *memProfileIndex) Delete(_ context.Context, userID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.deleteErr != nil {
		return x.deleteErr
	}
	delete(x.docs, userID)
	return nil
}

func (x *memProfileIndex) Search(_ context.Context, term string, size int) ([]domain.Profile, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := []domain.Profile{}
	for _, p := range x.docs {
		if strings.Contains(strings.ToLower(p.UserName+" "+p.Name), strings.ToLower(term)) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserName < out[j].UserName })
	if len(out) > size {
		out = out[:size]
	}
	return out, nil
}

// --- cache ---

type memCache struct {
	mu        sync.Mutex
	profiles  map[string]domain.Profile
	posts     map[string]domain.Post
	deleteErr error
	deleted   []string
}

func newMemCache() *memCache {
	return &memCache{profiles: map[string]domain.Profile{}, posts: map[string]domain.Post{}}
}

func (c *memCache) GetProfile(_ context.Context, key string) (*domain.Profile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.profiles[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return &p, nil
}

func (c *memCache) SetProfile(_ context.Context, p *domain.Profile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles[c.ProfileKeyByID(p.UserID)] = *p
	c.profiles[c.ProfileKeyByName(p.UserName)] = *p
	return nil
}

func (c *memCache) GetPost(_ context.Context, esID string) (*domain.Post, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.posts[esID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return &p, nil
}

func (c *memCache) SetPost(_ context.Context, p *domain.Post) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.posts[p.ESID] = *p
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deleteErr != nil {
		return c.deleteErr
	}
	for _, k := range keys {
		delete(c.profiles, k)
		delete(c.posts, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

func (c *memCache) ProfileKeyByID(userID string) string { return "profile:id:" + userID }
func (c *memCache) ProfileKeyByName(name string) string {
	return "profile:name:" + strings.ToLower(name)
}
func (c *memCache) PostKey(esID string) string { return esID }

// --- media ---

type memMedia struct {
	mu        sync.Mutex
	objects   map[string]bool
	n         int
	failAfter int // fail the upload after this many successes; 0 disables
	removeErr error
	invalid   bool
}

func newMemMedia() *memMedia {
	return &memMedia{objects: map[string]bool{}}
}

func (m *memMedia) store(prefix, userID string, r io.Reader) (*media.Stored, error) {
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.invalid {
		return nil, media.ErrInvalidImage
	}
	if m.failAfter > 0 && m.n >= m.failAfter {
		return nil, errBoom
	}
	m.n++
	key := fmt.Sprintf("%s/%s/%d.jpg", prefix, userID, m.n)
	m.objects[key] = true
	return &media.Stored{Key: key, URL: "https://cdn.test/" + key, MimeType: "image/jpeg", Width: 10, Height: 10}, nil
}

func (m *memMedia) StorePostImage(_ context.Context, userID string, r io.Reader) (*media.Stored, error) {
	return m.store("posts", userID, r)
}

func (m *memMedia) StoreProfilePhoto(_ context.Context, userID string, r io.Reader) (*media.Stored, error) {
	return m.store("profiles", userID, r)
}

func (m *memMedia) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeErr != nil {
		return m.removeErr
	}
	delete(m.objects, key)
	return nil
}

func (m *memMedia) KeyFromURL(url string) (string, bool) {
	key := strings.TrimPrefix(url, "https://cdn.test/")
	if key == url || key == "" {
		return "", false
	}
	return key, true
}

func (m *memMedia) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// --- events, repairs, tokens, notifier, ids ---

type memEvents struct {
	mu    sync.Mutex
	types []string
}

func (e *memEvents) Enqueue(_ context.Context, _, eventType, _ string, _ interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.types = append(e.types, eventType)
	return nil
}

func (e *memEvents) list() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.types...)
}

type memRepairs struct {
	mu      sync.Mutex
	repairs []saga.Repair
}

func (r *memRepairs) AddRepair(_ context.Context, rep saga.Repair) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.repairs = append(r.repairs, rep)
	return nil
}

func (r *memRepairs) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, rep := range r.repairs {
		out = append(out, rep.Kind)
	}
	return out
}

type fakeTokens struct {
	revoked     []string
	revokedUser []string
}

func (f *fakeTokens) GenerateTokenPair(userID, _ string) (*jwt.TokenPair, error) {
	return &jwt.TokenPair{AccessToken: "access-" + userID, RefreshToken: "refresh-" + userID}, nil
}

func (f *fakeTokens) RefreshTokens(_ context.Context, token string) (*jwt.TokenPair, error) {
	if !strings.HasPrefix(token, "refresh-") {
		return nil, jwt.ErrInvalidToken
	}
	return f.GenerateTokenPair(strings.TrimPrefix(token, "refresh-"), "")
}

func (f *fakeTokens) RevokeToken(_ context.Context, c *jwt.Claims) error {
	f.revoked = append(f.revoked, c.ID)
	return nil
}

func (f *fakeTokens) RevokeUserTokens(_ context.Context, userID string) error {
	f.revokedUser = append(f.revokedUser, userID)
	return nil
}

type fakeNotifier struct {
	codes  map[string]string
	resets map[string]string
	notice []string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{codes: map[string]string{}, resets: map[string]string{}}
}

func (n *fakeNotifier) SendConfirmCode(_ context.Context, _, userName, code string) error {
	n.codes[userName] = code
	return nil
}

func (n *fakeNotifier) SendResetLink(_ context.Context, _, userName, token string) error {
	n.resets[userName] = token
	return nil
}

func (n *fakeNotifier) SendPasswordChanged(_ context.Context, _, userName string) error {
	n.notice = append(n.notice, userName)
	return nil
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.n
}

func (s *seqIDs) UserID() string               { return fmt.Sprintf("user-%d", s.next()) }
func (s *seqIDs) SortableID() (string, error)  { return fmt.Sprintf("01ID%06d", s.next()), nil }
func (s *seqIDs) ConfirmCode() (string, error) { return fmt.Sprintf("%06d", s.next()), nil }
func (s *seqIDs) ResetToken() (string, error)  { return fmt.Sprintf("reset-%d", s.next()), nil }
func (s *seqIDs) MediaKey() (string, error)    { return fmt.Sprintf("key-%d", s.next()), nil }

// --- fixture ---

type fixture struct {
	graph    *memGraph
	posts    *memPostIndex
	profiles *memProfileIndex
	cache    *memCache
	media    *memMedia
	events   *memEvents
	repairs  *memRepairs
	tokens   *fakeTokens
	notifier *fakeNotifier
	deps     Deps
	opts     Options
}

func newFixture() *fixture {
	f := &fixture{
		graph:    newMemGraph(),
		posts:    newMemPostIndex(),
		profiles: newMemProfileIndex(),
		cache:    newMemCache(),
		media:    newMemMedia(),
		events:   &memEvents{},
		repairs:  &memRepairs{},
		tokens:   &fakeTokens{},
		notifier: newFakeNotifier(),
	}
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.deps = Deps{
		Graph:    f.graph,
		Posts:    f.posts,
		Profiles: f.profiles,
		Cache:    f.cache,
		Media:    f.media,
		Events:   f.events,
		Repairs:  f.repairs,
		IDs:      &seqIDs{},
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	}
	f.opts = Options{BcryptCost: 4}
	return f
}

func (f *fixture) user(id, name string) domain.User {
	u := domain.User{ID: id, UserName: name, Name: strings.ToUpper(name[:1]) + name[1:], Email: name + "@example.com"}
	f.graph.addUser(u)
	return u
}

func images(n int) []io.Reader {
	out := make([]io.Reader, n)
	for i := range out {
		out[i] = strings.NewReader("img")
	}
	return out
}
